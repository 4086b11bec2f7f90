package persistence

import (
	"context"

	"github.com/kitchenledger/backend/internal/domain/audit"
	"github.com/kitchenledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditRepository implements audit.Repository using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append inserts the entry and trims the log to the newest retain rows
func (r *GormAuditRepository) Append(ctx context.Context, entry *audit.Entry, retain int) error {
	m, err := models.AuditEntryModelFromDomain(entry)
	if err != nil {
		return err
	}
	if retain <= 0 {
		retain = audit.DefaultRetention
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Exec(
			"DELETE FROM audit_log WHERE seq <= (SELECT seq FROM audit_log ORDER BY seq DESC LIMIT 1 OFFSET ?)",
			retain,
		).Error
	})
}

// FindRecent returns up to limit entries, newest first
func (r *GormAuditRepository) FindRecent(ctx context.Context, limit int) ([]*audit.Entry, error) {
	query := r.db.WithContext(ctx).Order("seq DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.AuditEntryModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*audit.Entry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Count returns the number of stored entries
func (r *GormAuditRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AuditEntryModel{}).Count(&count).Error
	return count, err
}

// Ensure GormAuditRepository implements audit.Repository
var _ audit.Repository = (*GormAuditRepository)(nil)
