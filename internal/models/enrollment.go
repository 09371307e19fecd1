package models

import "time"

// AttendanceStatus tracks a learner's outcome for one session.
type AttendanceStatus string

const (
	AttendanceRegistered AttendanceStatus = "registered"
	AttendanceAttended   AttendanceStatus = "attended"
	AttendanceAbsent     AttendanceStatus = "absent"
	AttendanceCancelled  AttendanceStatus = "cancelled"
)

// Enrollment links a learner to a session. (session_id, learner_id) is unique.
type Enrollment struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	SessionID        uint             `gorm:"uniqueIndex:idx_session_learner;not null" json:"session_id"`
	LearnerID        uint             `gorm:"uniqueIndex:idx_session_learner;not null" json:"learner_id"`
	AttendanceStatus AttendanceStatus `gorm:"size:16;not null;default:registered" json:"attendance_status"`
	JoinedAt         *time.Time       `json:"joined_at"`
	LeftAt           *time.Time       `json:"left_at"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
