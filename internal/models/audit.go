package models

import "time"

// AuditEntry is an append-only record of an access decision. Writing one is
// always best-effort and never blocks the action that triggered it.
type AuditEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ActorID   uint      `gorm:"index" json:"actor_id"`
	ActorRole string    `gorm:"size:16" json:"actor_role"`
	Action    string    `gorm:"size:32;not null" json:"action"`
	SessionID uint      `gorm:"index" json:"session_id"`
	Outcome   string    `gorm:"size:32;not null" json:"outcome"`
	Detail    string    `gorm:"size:255" json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}
