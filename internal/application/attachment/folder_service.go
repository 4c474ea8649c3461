package attachment

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
	"go.uber.org/zap"
)

// FolderService maintains the document-management folder tree
type FolderService struct {
	repo   domain.FolderRepository
	logger *zap.Logger
}

// NewFolderService creates a new FolderService
func NewFolderService(repo domain.FolderRepository, logger *zap.Logger) *FolderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FolderService{repo: repo, logger: logger}
}

// EnsureHome creates the root folder if it is missing
func (s *FolderService) EnsureHome(ctx context.Context) error {
	err := s.repo.Create(ctx, domain.NewHomeFolder())
	if err != nil && !errors.Is(err, shared.ErrAlreadyExists) {
		return fmt.Errorf("failed to create home folder: %w", err)
	}
	return nil
}

// EnsureFolder creates name below parent and returns its path. A folder that
// already exists is not an error.
func (s *FolderService) EnsureFolder(ctx context.Context, name, parent string) (string, error) {
	folder, err := domain.NewFolder(name, parent)
	if err != nil {
		return "", err
	}

	if err := s.repo.Create(ctx, folder); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			s.logger.Debug("folder already exists", zap.String("path", folder.Path()))
			return folder.Path(), nil
		}
		return "", fmt.Errorf("failed to create folder %s: %w", folder.Path(), err)
	}

	s.logger.Info("folder created", zap.String("path", folder.Path()))
	return folder.Path(), nil
}

// ListFolders returns the direct children of parent
func (s *FolderService) ListFolders(ctx context.Context, parent string) ([]FolderResponse, error) {
	if parent == "" {
		parent = domain.HomeFolder
	}
	folders, err := s.repo.FindChildren(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	out := make([]FolderResponse, 0, len(folders))
	for i := range folders {
		out = append(out, toFolderResponse(&folders[i]))
	}
	return out, nil
}
