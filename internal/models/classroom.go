package models

import "time"

// Classroom is owned by the course service; this API only reads it to
// denormalise session rows and fill meeting descriptors.
type Classroom struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	CategoryID  uint      `json:"category_id"`
	TeacherID   uint      `gorm:"index;not null" json:"teacher_id"`
	MaxStudents int       `json:"max_students"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Teacher is the read-only account projection used for descriptor names.
type Teacher struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
