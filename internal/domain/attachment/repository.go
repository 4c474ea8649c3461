package attachment

import (
	"context"

	"github.com/google/uuid"
)

// SettingsRepository persists the settings singleton
type SettingsRepository interface {
	// Get returns the settings; a missing row yields all flags off
	Get(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, settings *Settings) error
}

// FolderRepository persists the folder tree
type FolderRepository interface {
	// Create inserts a folder. Returns shared.ErrAlreadyExists when
	// (parent, name) is taken.
	Create(ctx context.Context, folder *Folder) error
	FindByPath(ctx context.Context, path string) (*Folder, error)
	FindChildren(ctx context.Context, parent string) ([]Folder, error)
}

// FileRepository persists file records
type FileRepository interface {
	Save(ctx context.Context, file *FileRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*FileRecord, error)
	FindByAttachment(ctx context.Context, docType DocType, docName string) ([]FileRecord, error)
	// FindByContentHash returns the file with the given hash attached to the
	// document, or shared.ErrNotFound
	FindByContentHash(ctx context.Context, docType DocType, docName, hash string) (*FileRecord, error)
}

// DocumentRepository stores snapshots of submitted documents
type DocumentRepository interface {
	Save(ctx context.Context, doc *SubmittedDocument) error
	FindByName(ctx context.Context, docType DocType, name string) (*SubmittedDocument, error)
}

// JobFilter narrows job listings
type JobFilter struct {
	DocType  DocType
	Name     string
	Status   JobStatus
	OrderBy  string
	OrderDir string
	Page     int
	PageSize int
}

// JobRepository persists attachment job records
type JobRepository interface {
	Save(ctx context.Context, job *Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)
	FindAll(ctx context.Context, filter JobFilter) ([]Job, int64, error)
}
