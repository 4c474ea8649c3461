package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
)

// SettingsModel is the GORM model for the pdf_on_submit_settings singleton row
type SettingsModel struct {
	ID           int       `gorm:"primary_key"`
	SalesInvoice bool      `gorm:"column:sales_invoice;not null;default:false"`
	DeliveryNote bool      `gorm:"column:delivery_note;not null;default:false"`
	SalesOrder   bool      `gorm:"column:sales_order;not null;default:false"`
	Quotation    bool      `gorm:"column:quotation;not null;default:false"`
	Dunning      bool      `gorm:"column:dunning;not null;default:false"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for SettingsModel
func (SettingsModel) TableName() string {
	return "pdf_on_submit_settings"
}

// ToDomain converts SettingsModel to domain Settings
func (m *SettingsModel) ToDomain() *attachment.Settings {
	return &attachment.Settings{
		SalesInvoice: m.SalesInvoice,
		DeliveryNote: m.DeliveryNote,
		SalesOrder:   m.SalesOrder,
		Quotation:    m.Quotation,
		Dunning:      m.Dunning,
		UpdatedAt:    m.UpdatedAt,
	}
}

// SettingsModelFromDomain creates a SettingsModel from domain Settings
func SettingsModelFromDomain(s *attachment.Settings) *SettingsModel {
	updated := s.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return &SettingsModel{
		ID:           attachment.SettingsID,
		SalesInvoice: s.SalesInvoice,
		DeliveryNote: s.DeliveryNote,
		SalesOrder:   s.SalesOrder,
		Quotation:    s.Quotation,
		Dunning:      s.Dunning,
		UpdatedAt:    updated,
	}
}

// FolderModel is the GORM model for the folders table
type FolderModel struct {
	BaseModel
	Name   string `gorm:"type:varchar(255);not null;uniqueIndex:idx_folders_parent_name,priority:2"`
	Parent string `gorm:"type:varchar(1024);not null;default:'';uniqueIndex:idx_folders_parent_name,priority:1"`
	Path   string `gorm:"type:varchar(1300);not null;uniqueIndex"`
}

// TableName returns the table name for FolderModel
func (FolderModel) TableName() string {
	return "folders"
}

// ToDomain converts FolderModel to domain Folder
func (m *FolderModel) ToDomain() *attachment.Folder {
	return &attachment.Folder{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		Parent:     m.Parent,
	}
}

// FolderModelFromDomain creates a FolderModel from domain Folder
func FolderModelFromDomain(f *attachment.Folder) *FolderModel {
	m := &FolderModel{
		Name:   f.Name,
		Parent: f.Parent,
		Path:   f.Path(),
	}
	m.FromDomainBaseEntity(f.BaseEntity)
	return m
}

// FileModel is the GORM model for the files table
type FileModel struct {
	BaseModel
	FileName          string `gorm:"column:file_name;type:varchar(255);not null"`
	Folder            string `gorm:"type:varchar(1300);not null;index"`
	AttachedToDocType string `gorm:"column:attached_to_doctype;type:varchar(50);not null;index:idx_files_attached_to,priority:1"`
	AttachedToName    string `gorm:"column:attached_to_name;type:varchar(140);not null;index:idx_files_attached_to,priority:2"`
	IsPrivate         bool   `gorm:"column:is_private;not null;default:true"`
	StorageKey        string `gorm:"column:storage_key;type:varchar(1024);not null"`
	FileURL           string `gorm:"column:file_url;type:varchar(1024);not null"`
	FileSize          int64  `gorm:"column:file_size;not null;default:0"`
	ContentHash       string `gorm:"column:content_hash;type:varchar(64);not null;index"`
	PageCount         int    `gorm:"column:page_count;not null;default:0"`
}

// TableName returns the table name for FileModel
func (FileModel) TableName() string {
	return "files"
}

// ToDomain converts FileModel to domain FileRecord
func (m *FileModel) ToDomain() *attachment.FileRecord {
	return &attachment.FileRecord{
		BaseEntity:        m.BaseModel.ToDomain(),
		FileName:          m.FileName,
		Folder:            m.Folder,
		AttachedToDocType: attachment.DocType(m.AttachedToDocType),
		AttachedToName:    m.AttachedToName,
		IsPrivate:         m.IsPrivate,
		StorageKey:        m.StorageKey,
		FileURL:           m.FileURL,
		FileSize:          m.FileSize,
		ContentHash:       m.ContentHash,
		PageCount:         m.PageCount,
	}
}

// FileModelFromDomain creates a FileModel from domain FileRecord
func FileModelFromDomain(f *attachment.FileRecord) *FileModel {
	m := &FileModel{
		FileName:          f.FileName,
		Folder:            f.Folder,
		AttachedToDocType: string(f.AttachedToDocType),
		AttachedToName:    f.AttachedToName,
		IsPrivate:         f.IsPrivate,
		StorageKey:        f.StorageKey,
		FileURL:           f.FileURL,
		FileSize:          f.FileSize,
		ContentHash:       f.ContentHash,
		PageCount:         f.PageCount,
	}
	m.FromDomainBaseEntity(f.BaseEntity)
	return m
}

// DocumentModel is the GORM model for the submitted_documents table.
// The full snapshot is kept as JSON; the lookup columns are copied out of it.
type DocumentModel struct {
	DocType      string    `gorm:"column:doctype;type:varchar(50);primaryKey"`
	Name         string    `gorm:"type:varchar(140);primaryKey"`
	Customer     string    `gorm:"type:varchar(140);not null;default:''"`
	PartyName    string    `gorm:"column:party_name;type:varchar(140);not null;default:''"`
	SalesInvoice string    `gorm:"column:sales_invoice;type:varchar(140);not null;default:''"`
	DataJSON     string    `gorm:"column:data;type:text;not null"`
	SubmittedAt  time.Time `gorm:"column:submitted_at;not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for DocumentModel
func (DocumentModel) TableName() string {
	return "submitted_documents"
}

// ToDomain converts DocumentModel to domain SubmittedDocument
func (m *DocumentModel) ToDomain() (*attachment.SubmittedDocument, error) {
	var doc attachment.SubmittedDocument
	if err := json.Unmarshal([]byte(m.DataJSON), &doc); err != nil {
		return nil, err
	}
	doc.DocType = attachment.DocType(m.DocType)
	doc.Name = m.Name
	return &doc, nil
}

// DocumentModelFromDomain creates a DocumentModel from domain SubmittedDocument
func DocumentModelFromDomain(d *attachment.SubmittedDocument) (*DocumentModel, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	submitted := d.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}
	return &DocumentModel{
		DocType:      string(d.DocType),
		Name:         d.Name,
		Customer:     d.Customer,
		PartyName:    d.PartyName,
		SalesInvoice: d.SalesInvoice,
		DataJSON:     string(data),
		SubmittedAt:  submitted,
		UpdatedAt:    time.Now(),
	}, nil
}

// JobModel is the GORM model for the attachment_jobs table
type JobModel struct {
	BaseModel
	Method         string     `gorm:"type:varchar(50);not null"`
	Queue          string     `gorm:"type:varchar(50);not null"`
	TimeoutSeconds int        `gorm:"column:timeout_seconds;not null;default:30"`
	DocType        string     `gorm:"column:doctype;type:varchar(50);not null;index:idx_jobs_document,priority:1"`
	Name           string     `gorm:"type:varchar(140);not null;index:idx_jobs_document,priority:2"`
	Party          string     `gorm:"type:varchar(140);not null"`
	Status         string     `gorm:"type:varchar(20);not null;index"`
	ErrorMessage   string     `gorm:"column:error_message;type:text"`
	FileID         *uuid.UUID `gorm:"column:file_id;type:uuid"`
	StartedAt      *time.Time `gorm:"column:started_at"`
	FinishedAt     *time.Time `gorm:"column:finished_at"`
}

// TableName returns the table name for JobModel
func (JobModel) TableName() string {
	return "attachment_jobs"
}

// ToDomain converts JobModel to domain Job
func (m *JobModel) ToDomain() *attachment.Job {
	return &attachment.Job{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Method:  m.Method,
		Queue:   m.Queue,
		Timeout: time.Duration(m.TimeoutSeconds) * time.Second,
		Payload: attachment.JobPayload{
			DocType: attachment.DocType(m.DocType),
			Name:    m.Name,
			Party:   m.Party,
		},
		Status:       attachment.JobStatus(m.Status),
		ErrorMessage: m.ErrorMessage,
		FileID:       m.FileID,
		StartedAt:    m.StartedAt,
		FinishedAt:   m.FinishedAt,
	}
}

// JobModelFromDomain creates a JobModel from domain Job
func JobModelFromDomain(j *attachment.Job) *JobModel {
	m := &JobModel{
		Method:         j.Method,
		Queue:          j.Queue,
		TimeoutSeconds: int(j.Timeout / time.Second),
		DocType:        string(j.Payload.DocType),
		Name:           j.Payload.Name,
		Party:          j.Payload.Party,
		Status:         string(j.Status),
		ErrorMessage:   j.ErrorMessage,
		FileID:         j.FileID,
		StartedAt:      j.StartedAt,
		FinishedAt:     j.FinishedAt,
	}
	m.FromDomainBaseEntity(j.BaseEntity)
	return m
}
