package attachment

import (
	"context"
	"fmt"

	domain "github.com/erp/pdfonsubmit/internal/domain/attachment"
	"go.uber.org/zap"
)

// SettingsService reads and updates the PDF on Submit settings
type SettingsService struct {
	repo   domain.SettingsRepository
	logger *zap.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(repo domain.SettingsRepository, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, logger: logger}
}

// Get returns the current settings
func (s *SettingsService) Get(ctx context.Context) (*SettingsResponse, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return toSettingsResponse(settings), nil
}

// Update applies the flags present in req
func (s *SettingsService) Update(ctx context.Context, req UpdateSettingsRequest) (*SettingsResponse, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if settings == nil {
		settings = &domain.Settings{}
	}

	changed := make([]zap.Field, 0, len(domain.AllDocTypes()))
	for docType, flag := range req.flags() {
		if flag == nil {
			continue
		}
		settings.Set(docType, *flag)
		changed = append(changed, zap.Bool(docType.SettingsField(), *flag))
	}
	if len(changed) == 0 {
		return toSettingsResponse(settings), nil
	}

	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	s.logger.Info("settings updated", changed...)
	return toSettingsResponse(settings), nil
}
