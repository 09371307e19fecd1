package dto

import (
	"time"

	"github.com/edulive/classroom-api/internal/models"
)

// ScheduleSessionRequest is the payload the scheduling service posts to
// create a session occurrence for a classroom.
type ScheduleSessionRequest struct {
	ClassroomID     uint   `json:"classroom_id" validate:"required"`
	ScheduledAt     string `json:"scheduled_at" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=1,max=480"`
}

// SessionResponse is the read projection of a session row.
type SessionResponse struct {
	ID                 uint      `json:"id"`
	ClassroomID        uint      `json:"classroom_id"`
	TeacherID          uint      `json:"teacher_id"`
	CategoryID         uint      `json:"category_id"`
	ScheduledAt        time.Time `json:"scheduled_at"`
	DurationMinutes    int       `json:"duration_minutes"`
	State              string    `json:"state"`
	MeetingURL         string    `json:"meeting_url,omitempty"`
	MaxStudents        int       `json:"max_students"`
	CurrentEnrollments int       `json:"current_enrollments"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewSessionResponse maps a session model to its response form.
func NewSessionResponse(session models.Session) SessionResponse {
	return SessionResponse{
		ID:                 session.ID,
		ClassroomID:        session.ClassroomID,
		TeacherID:          session.TeacherID,
		CategoryID:         session.CategoryID,
		ScheduledAt:        session.ScheduledAt,
		DurationMinutes:    session.DurationMinutes,
		State:              string(session.State),
		MeetingURL:         session.MeetingURL,
		MaxStudents:        session.MaxStudents,
		CurrentEnrollments: session.CurrentEnrollments,
		UpdatedAt:          session.UpdatedAt,
	}
}

// MeetingDescriptor is what start/join return so a client can enter the room.
// It is identical for the caller that created the room and every later caller.
type MeetingDescriptor struct {
	MeetingURL      string    `json:"meeting_url"`
	MeetingID       string    `json:"meeting_id"`
	ClassroomTitle  string    `json:"classroom_title"`
	TeacherName     string    `json:"teacher_name"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
}
