package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
	"github.com/erp/pdfonsubmit/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ensure GormDocumentRepository implements DocumentRepository
var _ attachment.DocumentRepository = (*GormDocumentRepository)(nil)

// GormDocumentRepository stores submitted document snapshots using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// Save upserts the snapshot keyed by (doctype, name)
func (r *GormDocumentRepository) Save(ctx context.Context, doc *attachment.SubmittedDocument) error {
	model, err := models.DocumentModelFromDomain(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document snapshot: %w", err)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "doctype"}, {Name: "name"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

// FindByName loads a snapshot
func (r *GormDocumentRepository) FindByName(ctx context.Context, docType attachment.DocType, name string) (*attachment.SubmittedDocument, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Where("doctype = ? AND name = ?", string(docType), name).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	doc, err := model.ToDomain()
	if err != nil {
		return nil, fmt.Errorf("failed to decode document snapshot: %w", err)
	}
	return doc, nil
}
