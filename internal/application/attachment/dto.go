package attachment

import (
	"time"

	domain "github.com/erp/pdfonsubmit/internal/domain/attachment"
)

// =============================================================================
// Settings DTOs
// =============================================================================

// SettingsResponse represents the per document type flags
type SettingsResponse struct {
	SalesInvoice bool      `json:"sales_invoice"`
	DeliveryNote bool      `json:"delivery_note"`
	SalesOrder   bool      `json:"sales_order"`
	Quotation    bool      `json:"quotation"`
	Dunning      bool      `json:"dunning"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UpdateSettingsRequest changes the flags that are set; nil leaves a flag alone
type UpdateSettingsRequest struct {
	SalesInvoice *bool `json:"sales_invoice"`
	DeliveryNote *bool `json:"delivery_note"`
	SalesOrder   *bool `json:"sales_order"`
	Quotation    *bool `json:"quotation"`
	Dunning      *bool `json:"dunning"`
}

// flags maps the request onto document types
func (r UpdateSettingsRequest) flags() map[domain.DocType]*bool {
	return map[domain.DocType]*bool{
		domain.DocTypeSalesInvoice: r.SalesInvoice,
		domain.DocTypeDeliveryNote: r.DeliveryNote,
		domain.DocTypeSalesOrder:   r.SalesOrder,
		domain.DocTypeQuotation:    r.Quotation,
		domain.DocTypeDunning:      r.Dunning,
	}
}

// =============================================================================
// Job DTOs
// =============================================================================

// ListJobsRequest represents a request to list attachment jobs
type ListJobsRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	DocType  string `form:"doctype"`
	Name     string `form:"name"`
	Status   string `form:"status" binding:"omitempty,oneof=queued completed failed"`
}

// JobResponse represents an attachment job
type JobResponse struct {
	ID           string     `json:"id"`
	Method       string     `json:"method"`
	Queue        string     `json:"queue"`
	TimeoutSecs  int        `json:"timeout"`
	DocType      string     `json:"doctype"`
	Name         string     `json:"name"`
	Party        string     `json:"party"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	FileID       string     `json:"file_id,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ListJobsResponse represents a paginated list of jobs
type ListJobsResponse struct {
	Items []JobResponse `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
}

// =============================================================================
// File and folder DTOs
// =============================================================================

// FileResponse represents a stored file record
type FileResponse struct {
	ID                string    `json:"id"`
	FileName          string    `json:"file_name"`
	Folder            string    `json:"folder"`
	AttachedToDocType string    `json:"attached_to_doctype"`
	AttachedToName    string    `json:"attached_to_name"`
	IsPrivate         bool      `json:"is_private"`
	FileURL           string    `json:"file_url"`
	FileSize          int64     `json:"file_size"`
	ContentHash       string    `json:"content_hash"`
	PageCount         int       `json:"page_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// FolderResponse represents a folder
type FolderResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Parent string `json:"parent"`
	Path   string `json:"path"`
}

// DocTypeResponse describes a supported document type
type DocTypeResponse struct {
	DocType       string `json:"doctype"`
	Label         string `json:"label"`
	SettingsField string `json:"settings_field"`
	Slug          string `json:"slug"`
}

func toSettingsResponse(s *domain.Settings) *SettingsResponse {
	if s == nil {
		return &SettingsResponse{}
	}
	return &SettingsResponse{
		SalesInvoice: s.SalesInvoice,
		DeliveryNote: s.DeliveryNote,
		SalesOrder:   s.SalesOrder,
		Quotation:    s.Quotation,
		Dunning:      s.Dunning,
		UpdatedAt:    s.UpdatedAt,
	}
}

func toJobResponse(j *domain.Job) JobResponse {
	resp := JobResponse{
		ID:           j.ID.String(),
		Method:       j.Method,
		Queue:        j.Queue,
		TimeoutSecs:  int(j.Timeout / time.Second),
		DocType:      j.Payload.DocType.String(),
		Name:         j.Payload.Name,
		Party:        j.Payload.Party,
		Status:       j.Status.String(),
		ErrorMessage: j.ErrorMessage,
		StartedAt:    j.StartedAt,
		FinishedAt:   j.FinishedAt,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
	if j.FileID != nil {
		resp.FileID = j.FileID.String()
	}
	return resp
}

func toFileResponse(f *domain.FileRecord) FileResponse {
	return FileResponse{
		ID:                f.ID.String(),
		FileName:          f.FileName,
		Folder:            f.Folder,
		AttachedToDocType: f.AttachedToDocType.String(),
		AttachedToName:    f.AttachedToName,
		IsPrivate:         f.IsPrivate,
		FileURL:           f.FileURL,
		FileSize:          f.FileSize,
		ContentHash:       f.ContentHash,
		PageCount:         f.PageCount,
		CreatedAt:         f.CreatedAt,
	}
}

func toFolderResponse(f *domain.Folder) FolderResponse {
	return FolderResponse{
		ID:     f.ID.String(),
		Name:   f.Name,
		Parent: f.Parent,
		Path:   f.Path(),
	}
}
