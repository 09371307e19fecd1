package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/edulive/classroom-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Classroom{}, &models.Teacher{}, &models.Session{}, &models.Enrollment{}, &models.AuditEntry{}))
	return db
}

func seedLiveSession(t *testing.T, db *gorm.DB) models.Session {
	t.Helper()
	session := models.Session{
		ClassroomID:     1,
		TeacherID:       7,
		ScheduledAt:     time.Now().Add(-10 * time.Minute),
		DurationMinutes: 60,
		State:           models.SessionStateLive,
		MeetingURL:      "https://rooms.example/class-1-abc",
		MeetingID:       "daily:class-1-abc",
	}
	require.NoError(t, db.Create(&session).Error)
	return session
}

func TestSessionRepositoryUpdateStateCAS(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)

	session := models.Session{
		ClassroomID:     1,
		TeacherID:       7,
		ScheduledAt:     time.Now().Add(5 * time.Minute),
		DurationMinutes: 60,
		State:           models.SessionStateScheduled,
	}
	require.NoError(t, repo.Create(context.Background(), &session))

	session.State = models.SessionStateLive
	session.MeetingURL = "https://rooms.example/class"
	session.MeetingID = "daily:class"
	session.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.UpdateStateCAS(context.Background(), &session))
	require.Equal(t, uint(1), session.Version)

	stored, err := repo.GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStateLive, stored.State)
	require.Equal(t, "https://rooms.example/class", stored.MeetingURL)
	require.Equal(t, uint(1), stored.Version)
}

func TestSessionRepositoryUpdateStateCASConflict(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)

	session := models.Session{
		ClassroomID: 1,
		TeacherID:   7,
		ScheduledAt: time.Now(),
		State:       models.SessionStateScheduled,
	}
	require.NoError(t, repo.Create(context.Background(), &session))

	winner := session
	winner.State = models.SessionStateLive
	winner.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.UpdateStateCAS(context.Background(), &winner))

	loser := session
	loser.State = models.SessionStateLive
	loser.UpdatedAt = time.Now().UTC()
	err := repo.UpdateStateCAS(context.Background(), &loser)
	require.ErrorIs(t, err, ErrVersionConflict)

	stored, err := repo.GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, uint(1), stored.Version, "only one writer may bump the version")
}

func TestSessionRepositoryCompleteWithSweep(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)
	session := seedLiveSession(t, db)

	joined := time.Now().Add(-5 * time.Minute)
	enrollments := []models.Enrollment{
		{SessionID: session.ID, LearnerID: 1, AttendanceStatus: models.AttendanceRegistered},
		{SessionID: session.ID, LearnerID: 2, AttendanceStatus: models.AttendanceRegistered},
		{SessionID: session.ID, LearnerID: 3, AttendanceStatus: models.AttendanceRegistered},
		{SessionID: session.ID, LearnerID: 4, AttendanceStatus: models.AttendanceAttended, JoinedAt: &joined},
		{SessionID: session.ID, LearnerID: 5, AttendanceStatus: models.AttendanceAttended, JoinedAt: &joined},
	}
	require.NoError(t, db.Create(&enrollments).Error)

	session.State = models.SessionStateCompleted
	session.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.CompleteWithSweep(context.Background(), &session))

	var registered int64
	require.NoError(t, db.Model(&models.Enrollment{}).
		Where("session_id = ? AND attendance_status = ?", session.ID, models.AttendanceRegistered).
		Count(&registered).Error)
	require.Zero(t, registered, "no registered enrollments may survive completion")

	var absent, attended int64
	require.NoError(t, db.Model(&models.Enrollment{}).
		Where("session_id = ? AND attendance_status = ?", session.ID, models.AttendanceAbsent).
		Count(&absent).Error)
	require.NoError(t, db.Model(&models.Enrollment{}).
		Where("session_id = ? AND attendance_status = ?", session.ID, models.AttendanceAttended).
		Count(&attended).Error)
	require.Equal(t, int64(3), absent)
	require.Equal(t, int64(2), attended, "attended rows are untouched by the sweep")

	stored, err := repo.GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStateCompleted, stored.State)
}

func TestSessionRepositoryCompleteWithSweepRollsBackOnConflict(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)
	session := seedLiveSession(t, db)

	enrollment := models.Enrollment{SessionID: session.ID, LearnerID: 1, AttendanceStatus: models.AttendanceRegistered}
	require.NoError(t, db.Create(&enrollment).Error)

	stale := session
	stale.Version = session.Version + 5
	stale.State = models.SessionStateCompleted
	stale.UpdatedAt = time.Now().UTC()
	require.ErrorIs(t, repo.CompleteWithSweep(context.Background(), &stale), ErrVersionConflict)

	var stored models.Enrollment
	require.NoError(t, db.First(&stored, enrollment.ID).Error)
	require.Equal(t, models.AttendanceRegistered, stored.AttendanceStatus, "sweep must not apply when the state write loses")
}

func TestSessionRepositoryCancelWithSweep(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)

	session := models.Session{
		ClassroomID: 1,
		TeacherID:   7,
		ScheduledAt: time.Now().Add(time.Hour),
		State:       models.SessionStateScheduled,
	}
	require.NoError(t, repo.Create(context.Background(), &session))

	enrollment := models.Enrollment{SessionID: session.ID, LearnerID: 9, AttendanceStatus: models.AttendanceRegistered}
	require.NoError(t, db.Create(&enrollment).Error)

	session.State = models.SessionStateCancelled
	session.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.CancelWithSweep(context.Background(), &session))

	var stored models.Enrollment
	require.NoError(t, db.First(&stored, enrollment.ID).Error)
	require.Equal(t, models.AttendanceCancelled, stored.AttendanceStatus)
}
