package attachment

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	domain "github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
)

// QueryService answers read requests about jobs, files and document types
type QueryService struct {
	jobs    domain.JobRepository
	files   domain.FileRepository
	store   FileStore
	labeler Labeler
}

// NewQueryService creates a new QueryService. labeler may be nil.
func NewQueryService(jobs domain.JobRepository, files domain.FileRepository, store FileStore, labeler Labeler) *QueryService {
	return &QueryService{jobs: jobs, files: files, store: store, labeler: labeler}
}

// ListJobs returns a page of jobs, newest first
func (s *QueryService) ListJobs(ctx context.Context, req ListJobsRequest) (*ListJobsResponse, error) {
	filter := domain.JobFilter{
		Name:     req.Name,
		Status:   domain.JobStatus(req.Status),
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if req.DocType != "" {
		docType, ok := domain.ParseDocType(req.DocType)
		if !ok {
			return nil, shared.NewDomainError("INVALID_DOCTYPE", "Unsupported document type: "+req.DocType)
		}
		filter.DocType = docType
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Unknown job status: "+req.Status)
	}

	jobs, total, err := s.jobs.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	items := make([]JobResponse, 0, len(jobs))
	for i := range jobs {
		items = append(items, toJobResponse(&jobs[i]))
	}
	return &ListJobsResponse{Items: items, Total: total, Page: filter.Page, Size: filter.PageSize}, nil
}

// GetJob returns one job
func (s *QueryService) GetJob(ctx context.Context, id uuid.UUID) (*JobResponse, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toJobResponse(job)
	return &resp, nil
}

// ListAttachments returns the files attached to a document
func (s *QueryService) ListAttachments(ctx context.Context, docType domain.DocType, name string) ([]FileResponse, error) {
	if !docType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCTYPE", "Unsupported document type: "+string(docType))
	}
	files, err := s.files.FindByAttachment(ctx, docType, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	out := make([]FileResponse, 0, len(files))
	for i := range files {
		out = append(out, toFileResponse(&files[i]))
	}
	return out, nil
}

// GetFile returns one file record
func (s *QueryService) GetFile(ctx context.Context, id uuid.UUID) (*FileResponse, error) {
	file, err := s.files.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toFileResponse(file)
	return &resp, nil
}

// OpenFile returns the record and a reader on its content. The caller closes the reader.
func (s *QueryService) OpenFile(ctx context.Context, id uuid.UUID) (*FileResponse, io.ReadCloser, error) {
	file, err := s.files.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.store.Download(ctx, file.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", file.FileName, err)
	}
	resp := toFileResponse(file)
	return &resp, body, nil
}

// DocTypes lists the supported document types with their folder labels
func (s *QueryService) DocTypes() []DocTypeResponse {
	out := make([]DocTypeResponse, 0, len(domain.AllDocTypes()))
	for _, d := range domain.AllDocTypes() {
		label := d.String()
		if s.labeler != nil {
			label = s.labeler.Label(d)
		}
		out = append(out, DocTypeResponse{
			DocType:       d.String(),
			Label:         label,
			SettingsField: d.SettingsField(),
			Slug:          d.Slug(),
		})
	}
	return out
}
