package persistence

import (
	"context"
	"errors"

	"github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ensure GormSettingsRepository implements SettingsRepository
var _ attachment.SettingsRepository = (*GormSettingsRepository)(nil)

// GormSettingsRepository implements SettingsRepository using GORM
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// Get returns the settings row. A missing row means every flag is off.
func (r *GormSettingsRepository) Get(ctx context.Context) (*attachment.Settings, error) {
	var model models.SettingsModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", attachment.SettingsID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &attachment.Settings{}, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save upserts the settings row
func (r *GormSettingsRepository) Save(ctx context.Context, settings *attachment.Settings) error {
	model := models.SettingsModelFromDomain(settings)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}
