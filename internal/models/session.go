package models

import "time"

// SessionState captures the lifecycle of a scheduled classroom session.
type SessionState string

const (
	SessionStateScheduled SessionState = "scheduled"
	SessionStateLive      SessionState = "live"
	SessionStateCompleted SessionState = "completed"
	SessionStateCancelled SessionState = "cancelled"
)

// Terminal reports whether no further transition is defined from the state.
func (s SessionState) Terminal() bool {
	return s == SessionStateCompleted || s == SessionStateCancelled
}

// Session is one scheduled occurrence of a classroom. The teacher and
// category identifiers are denormalised from the classroom so permission
// checks need no extra lookup.
type Session struct {
	ID                 uint         `gorm:"primaryKey" json:"id"`
	ClassroomID        uint         `gorm:"index;not null" json:"classroom_id"`
	TeacherID          uint         `gorm:"index;not null" json:"teacher_id"`
	CategoryID         uint         `json:"category_id"`
	ScheduledAt        time.Time    `gorm:"not null" json:"scheduled_at"`
	DurationMinutes    int          `gorm:"not null" json:"duration_minutes"`
	State              SessionState `gorm:"size:16;not null;default:scheduled" json:"state"`
	MeetingURL         string       `gorm:"size:512" json:"meeting_url"`
	MeetingID          string       `gorm:"size:255" json:"meeting_id"`
	MaxStudents        int          `json:"max_students"`
	CurrentEnrollments int          `json:"current_enrollments"`
	Version            uint         `gorm:"not null;default:0" json:"-"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// HasMeeting reports whether a meeting room was already provisioned.
func (s Session) HasMeeting() bool {
	return s.MeetingURL != ""
}
