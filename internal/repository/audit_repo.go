package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edulive/classroom-api/internal/models"
)

// AuditRepository appends access-decision records. Append-only: no update or
// delete operations exist on purpose.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	ListBySession(ctx context.Context, sessionID uint, limit int) ([]models.AuditEntry, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository instantiates a GORM-backed repository.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) ListBySession(ctx context.Context, sessionID uint, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var entries []models.AuditEntry
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}
