package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/edulive/classroom-api/internal/models"
)

// EnrollmentRepository defines persistence operations for enrollments,
// including the attendance bookkeeping primitives used by the state machine.
type EnrollmentRepository interface {
	ListBySession(ctx context.Context, sessionID uint) ([]models.Enrollment, error)
	GetBySessionAndLearner(ctx context.Context, sessionID, learnerID uint) (models.Enrollment, error)
	MarkAttended(ctx context.Context, sessionID, learnerID uint, at time.Time) (bool, error)
	MarkLeft(ctx context.Context, sessionID, learnerID uint, at time.Time) error
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository instantiates a GORM-backed repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) ListBySession(ctx context.Context, sessionID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&enrollments).Error; err != nil {
		return nil, err
	}

	return enrollments, nil
}

func (r *enrollmentRepository) GetBySessionAndLearner(ctx context.Context, sessionID, learnerID uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND learner_id = ?", sessionID, learnerID).
		First(&enrollment).Error
	if err != nil {
		return models.Enrollment{}, err
	}

	return enrollment, nil
}

// MarkAttended records the learner's first join. The conditional update only
// touches a row still in registered state, which makes repeat joins no-ops
// and guarantees joined_at is written exactly once. The boolean reports
// whether this call performed the transition.
func (r *enrollmentRepository) MarkAttended(ctx context.Context, sessionID, learnerID uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("session_id = ? AND learner_id = ? AND attendance_status = ?",
			sessionID, learnerID, models.AttendanceRegistered).
		Updates(map[string]interface{}{
			"attendance_status": models.AttendanceAttended,
			"joined_at":         at,
			"updated_at":        at,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// MarkLeft stamps left_at on an attended enrollment that has not left yet.
// Attendance status never changes here.
func (r *enrollmentRepository) MarkLeft(ctx context.Context, sessionID, learnerID uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("session_id = ? AND learner_id = ? AND attendance_status = ? AND left_at IS NULL",
			sessionID, learnerID, models.AttendanceAttended).
		Updates(map[string]interface{}{
			"left_at":    at,
			"updated_at": at,
		}).Error
}
