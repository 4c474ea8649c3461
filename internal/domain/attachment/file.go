package attachment

import (
	"strings"

	"github.com/erp/pdfonsubmit/internal/domain/shared"
)

// FileRecord is a stored file attached to a document
type FileRecord struct {
	shared.BaseEntity
	FileName          string
	Folder            string
	AttachedToDocType DocType
	AttachedToName    string
	IsPrivate         bool
	StorageKey        string
	FileURL           string
	FileSize          int64
	ContentHash       string
	PageCount         int
}

// NewFileRecord creates a private file record attached to a document
func NewFileRecord(fileName, folder string, docType DocType, docName string) (*FileRecord, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if strings.TrimSpace(folder) == "" {
		return nil, shared.NewDomainError("INVALID_FOLDER", "Folder cannot be empty")
	}
	if !docType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCTYPE", "Unsupported document type: "+string(docType))
	}
	return &FileRecord{
		BaseEntity:        shared.NewBaseEntity(),
		FileName:          fileName,
		Folder:            folder,
		AttachedToDocType: docType,
		AttachedToName:    docName,
		IsPrivate:         true,
	}, nil
}

// SanitizeFileName derives the PDF file name from a document name:
// spaces and slashes become hyphens. "SINV 0001/A" gives "SINV-0001-A.pdf".
func SanitizeFileName(name string) string {
	return strings.NewReplacer(" ", "-", "/", "-").Replace(name) + ".pdf"
}
