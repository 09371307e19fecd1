package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edulive/classroom-api/internal/models"
)

// ClassroomRepository reads classroom and teacher projections owned by the
// course service; this API never writes them.
type ClassroomRepository interface {
	GetByID(ctx context.Context, id uint) (models.Classroom, error)
	GetTeacher(ctx context.Context, id uint) (models.Teacher, error)
}

type classroomRepository struct {
	db *gorm.DB
}

// NewClassroomRepository instantiates a GORM-backed repository.
func NewClassroomRepository(db *gorm.DB) ClassroomRepository {
	return &classroomRepository{db: db}
}

func (r *classroomRepository) GetByID(ctx context.Context, id uint) (models.Classroom, error) {
	var classroom models.Classroom
	if err := r.db.WithContext(ctx).First(&classroom, id).Error; err != nil {
		return models.Classroom{}, err
	}

	return classroom, nil
}

func (r *classroomRepository) GetTeacher(ctx context.Context, id uint) (models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.WithContext(ctx).First(&teacher, id).Error; err != nil {
		return models.Teacher{}, err
	}

	return teacher, nil
}
