package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/kitchenledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDocumentRepository implements inventory.DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

func (r *GormDocumentRepository) withLines(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_no ASC")
	})
}

// FindByID finds a document with its lines
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Document, error) {
	var m models.DocumentModel
	if err := r.withLines(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain()
}

// FindAll lists documents newest first
func (r *GormDocumentRepository) FindAll(ctx context.Context, filter inventory.DocumentFilter) ([]*inventory.Document, error) {
	query := r.withLines(ctx).Model(&models.DocumentModel{})
	if filter.Type != "" {
		query = query.Where("doc_type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	sortField := ValidateSortField(filter.OrderBy, DocumentSortFields, "doc_date")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortField + " " + sortOrder)
	if sortField != "doc_number" {
		query = query.Order("doc_number " + sortOrder)
	}

	var rows []models.DocumentModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	docs := make([]*inventory.Document, 0, len(rows))
	for i := range rows {
		doc, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Save writes the header and replaces the lines
func (r *GormDocumentRepository) Save(ctx context.Context, doc *inventory.Document) error {
	m := models.DocumentModelFromDomain(doc)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(m).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", m.ID).Delete(&models.DocumentLineModel{}).Error; err != nil {
			return err
		}
		if len(m.Lines) == 0 {
			return nil
		}
		return tx.Create(&m.Lines).Error
	})
}

// CountByNumberPrefix counts documents whose number starts with prefix
func (r *GormDocumentRepository) CountByNumberPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Where("doc_number LIKE ?", prefix+"%").
		Count(&count).Error
	return count, err
}

// DeleteSyncedBefore removes synced documents dated before the cutoff.
// Drafts and posted documents are never removed.
func (r *GormDocumentRepository) DeleteSyncedBefore(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		if err := tx.Model(&models.DocumentModel{}).
			Where("status = ? AND doc_date < ?", inventory.DocumentStatusSynced, before).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("document_id IN ?", ids).Delete(&models.DocumentLineModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&models.DocumentModel{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

// Ensure GormDocumentRepository implements DocumentRepository
var _ inventory.DocumentRepository = (*GormDocumentRepository)(nil)
