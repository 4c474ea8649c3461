package persistence

import (
	"context"
	"errors"

	"github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
	"github.com/erp/pdfonsubmit/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ensure GormFileRepository implements FileRepository
var _ attachment.FileRepository = (*GormFileRepository)(nil)

// GormFileRepository implements FileRepository using GORM
type GormFileRepository struct {
	db *gorm.DB
}

// NewGormFileRepository creates a new GormFileRepository
func NewGormFileRepository(db *gorm.DB) *GormFileRepository {
	return &GormFileRepository{db: db}
}

// Save creates or updates a file record
func (r *GormFileRepository) Save(ctx context.Context, file *attachment.FileRecord) error {
	model := models.FileModelFromDomain(file)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a file record by ID
func (r *GormFileRepository) FindByID(ctx context.Context, id uuid.UUID) (*attachment.FileRecord, error) {
	var model models.FileModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAttachment lists the files attached to a document, newest first
func (r *GormFileRepository) FindByAttachment(ctx context.Context, docType attachment.DocType, docName string) ([]attachment.FileRecord, error) {
	var fileModels []models.FileModel
	if err := r.db.WithContext(ctx).
		Where("attached_to_doctype = ? AND attached_to_name = ?", string(docType), docName).
		Order("created_at DESC").
		Find(&fileModels).Error; err != nil {
		return nil, err
	}

	files := make([]attachment.FileRecord, len(fileModels))
	for i, model := range fileModels {
		files[i] = *model.ToDomain()
	}
	return files, nil
}

// FindByContentHash finds a file with identical content attached to the document
func (r *GormFileRepository) FindByContentHash(ctx context.Context, docType attachment.DocType, docName, hash string) (*attachment.FileRecord, error) {
	var model models.FileModel
	if err := r.db.WithContext(ctx).
		Where("attached_to_doctype = ? AND attached_to_name = ? AND content_hash = ?", string(docType), docName, hash).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
