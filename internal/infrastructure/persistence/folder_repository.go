package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
	"github.com/erp/pdfonsubmit/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// Ensure GormFolderRepository implements FolderRepository
var _ attachment.FolderRepository = (*GormFolderRepository)(nil)

// GormFolderRepository implements FolderRepository using GORM
type GormFolderRepository struct {
	db *gorm.DB
}

// NewGormFolderRepository creates a new GormFolderRepository
func NewGormFolderRepository(db *gorm.DB) *GormFolderRepository {
	return &GormFolderRepository{db: db}
}

// Create inserts a folder; a taken (parent, name) yields shared.ErrAlreadyExists
func (r *GormFolderRepository) Create(ctx context.Context, folder *attachment.Folder) error {
	model := models.FolderModelFromDomain(folder)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("folder %s: %w", model.Path, shared.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

// FindByPath finds a folder by its full path
func (r *GormFolderRepository) FindByPath(ctx context.Context, path string) (*attachment.Folder, error) {
	var model models.FolderModel
	if err := r.db.WithContext(ctx).First(&model, "path = ?", path).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindChildren lists the folders directly below parent, by name
func (r *GormFolderRepository) FindChildren(ctx context.Context, parent string) ([]attachment.Folder, error) {
	var folderModels []models.FolderModel
	if err := r.db.WithContext(ctx).
		Where("parent = ?", parent).
		Order("name ASC").
		Find(&folderModels).Error; err != nil {
		return nil, err
	}

	folders := make([]attachment.Folder, len(folderModels))
	for i, model := range folderModels {
		folders[i] = *model.ToDomain()
	}
	return folders, nil
}
