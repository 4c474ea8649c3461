package persistence

import "github.com/erp/pdfonsubmit/internal/infrastructure/persistence/models"

// AllModels lists every GORM model, in dependency order
func AllModels() []any {
	return []any{
		&models.SettingsModel{},
		&models.FolderModel{},
		&models.FileModel{},
		&models.DocumentModel{},
		&models.JobModel{},
	}
}
