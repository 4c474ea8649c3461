package attachment

import (
	"strings"

	"github.com/erp/pdfonsubmit/internal/domain/shared"
)

// HomeFolder is the root of the folder tree
const HomeFolder = "Home"

// Folder is a node in the document-management folder tree.
// (Parent, Name) is unique.
type Folder struct {
	shared.BaseEntity
	Name   string
	Parent string
}

// NewFolder creates a folder below parent
func NewFolder(name, parent string) (*Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_FOLDER_NAME", "Folder name cannot be empty")
	}
	if strings.Contains(name, "/") {
		return nil, shared.NewDomainError("INVALID_FOLDER_NAME", "Folder name cannot contain '/'")
	}
	if strings.TrimSpace(parent) == "" {
		return nil, shared.NewDomainError("INVALID_FOLDER_PARENT", "Folder parent cannot be empty")
	}
	return &Folder{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Parent:     parent,
	}, nil
}

// Path returns the full path of the folder
func (f *Folder) Path() string {
	return JoinFolderPath(f.Parent, f.Name)
}

// JoinFolderPath joins a parent path and a folder name. The root folder has no parent.
func JoinFolderPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// NewHomeFolder creates the root folder
func NewHomeFolder() *Folder {
	return &Folder{
		BaseEntity: shared.NewBaseEntity(),
		Name:       HomeFolder,
	}
}

// IsRoot reports whether this is the root folder
func (f *Folder) IsRoot() bool {
	return f.Parent == ""
}

// FolderPath returns Home/<label>/<party>
func FolderPath(label, party string) string {
	return JoinFolderPath(JoinFolderPath(HomeFolder, label), party)
}

// FolderName converts a free-text value such as a customer name into a
// usable folder name.
func FolderName(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "/", "-"))
}

