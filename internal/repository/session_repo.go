package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/edulive/classroom-api/internal/models"
)

// ErrVersionConflict indicates a compare-and-swap update lost to a concurrent
// writer; the caller should reload the row and decide whether the desired
// outcome already holds.
var ErrVersionConflict = errors.New("session version conflict")

// SessionRepository defines persistence operations for sessions. State
// writes go through compare-and-swap on the version column so concurrent
// transitions serialise without row locks.
type SessionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	UpdateStateCAS(ctx context.Context, session *models.Session) error
	CompleteWithSweep(ctx context.Context, session *models.Session) error
	CancelWithSweep(ctx context.Context, session *models.Session) error
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository instantiates a GORM-backed repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) GetByID(ctx context.Context, id uint) (models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return models.Session{}, err
	}

	return session, nil
}

func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// UpdateStateCAS persists the session's state, meeting fields and updated_at
// in a single conditional write. The session's Version must hold the value
// read before mutation; on success it is bumped in place.
func (r *sessionRepository) UpdateStateCAS(ctx context.Context, session *models.Session) error {
	return casWrite(r.db.WithContext(ctx), session)
}

// CompleteWithSweep transitions the session to completed and flips every
// still-registered enrollment to absent inside one transaction, so no window
// exists where a completed session still shows pending registrations.
func (r *sessionRepository) CompleteWithSweep(ctx context.Context, session *models.Session) error {
	return r.transitionWithSweep(ctx, session, models.AttendanceAbsent)
}

// CancelWithSweep transitions the session to cancelled and cancels every
// still-registered enrollment in the same transaction.
func (r *sessionRepository) CancelWithSweep(ctx context.Context, session *models.Session) error {
	return r.transitionWithSweep(ctx, session, models.AttendanceCancelled)
}

func (r *sessionRepository) transitionWithSweep(ctx context.Context, session *models.Session, sweepTo models.AttendanceStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := casWrite(tx, session); err != nil {
			return err
		}

		return tx.Model(&models.Enrollment{}).
			Where("session_id = ? AND attendance_status = ?", session.ID, models.AttendanceRegistered).
			Updates(map[string]interface{}{
				"attendance_status": sweepTo,
				"updated_at":        time.Now().UTC(),
			}).Error
	})
}

func casWrite(tx *gorm.DB, session *models.Session) error {
	fromVersion := session.Version

	result := tx.Model(&models.Session{}).
		Where("id = ? AND version = ?", session.ID, fromVersion).
		Updates(map[string]interface{}{
			"state":       session.State,
			"meeting_url": session.MeetingURL,
			"meeting_id":  session.MeetingID,
			"version":     fromVersion + 1,
			"updated_at":  session.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	session.Version = fromVersion + 1
	return nil
}
