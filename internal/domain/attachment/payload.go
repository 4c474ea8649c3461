package attachment

import (
	"strings"

	"github.com/erp/pdfonsubmit/internal/domain/shared"
)

// Queue routing for attachment jobs
const (
	JobMethod = "execute"
	JobQueue  = "long"
)

// JobPayload is what the dispatcher hands to the queue
type JobPayload struct {
	DocType DocType `json:"doctype"`
	Name    string  `json:"name"`
	Party   string  `json:"party"`
}

// Validate checks that a payload can be executed
func (p JobPayload) Validate() error {
	if !p.DocType.IsValid() {
		return shared.NewDomainError("INVALID_DOCTYPE", "Unsupported document type: "+string(p.DocType))
	}
	if strings.TrimSpace(p.Name) == "" {
		return shared.NewDomainError("INVALID_DOCUMENT_NAME", "Document name cannot be empty")
	}
	if strings.TrimSpace(p.Party) == "" {
		return shared.NewDomainError("INVALID_PARTY", "Party cannot be empty")
	}
	return nil
}
