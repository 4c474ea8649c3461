package attachment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	domain "github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
	"github.com/erp/pdfonsubmit/internal/infrastructure/printing"
	"github.com/erp/pdfonsubmit/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PDFContentType is the MIME type of generated files
const PDFContentType = "application/pdf"

// StorageKeyPrefix is prepended to every private file key
const StorageKeyPrefix = "private/files"

// AttachmentJobDeps holds the collaborators of an AttachmentJob
type AttachmentJobDeps struct {
	Folders   *FolderService
	Documents domain.DocumentRepository
	Files     domain.FileRepository
	Store     FileStore
	Printer   DocumentPrinter
	Converter PDFConverter
	Inspector PDFInspector
	Labeler   Labeler
	Logger    *zap.Logger
}

// AttachmentJob renders a submitted document to PDF and files it under
// Home/<label>/<party> as a private attachment of the document.
type AttachmentJob struct {
	folders   *FolderService
	docs      domain.DocumentRepository
	files     domain.FileRepository
	store     FileStore
	printer   DocumentPrinter
	converter PDFConverter
	inspector PDFInspector
	labeler   Labeler
	logger    *zap.Logger
}

// NewAttachmentJob creates a new AttachmentJob
func NewAttachmentJob(deps AttachmentJobDeps) *AttachmentJob {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentJob{
		folders:   deps.Folders,
		docs:      deps.Documents,
		files:     deps.Files,
		store:     deps.Store,
		printer:   deps.Printer,
		converter: deps.Converter,
		inspector: deps.Inspector,
		labeler:   deps.Labeler,
		logger:    logger,
	}
}

// StorageKey returns the object key of a file record
func StorageKey(file *domain.FileRecord) string {
	return StorageKeyPrefix + "/" + file.ID.String() + "/" + file.FileName
}

// Execute runs one attachment job. When an identical print is already
// attached to the document the existing record is returned and nothing is
// converted or written.
func (j *AttachmentJob) Execute(ctx context.Context, payload domain.JobPayload) (*domain.FileRecord, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "attachment_job", "execute",
		telemetry.WithAttribute(telemetry.SpanAttrDocType, payload.DocType.String()),
		telemetry.WithAttribute(telemetry.SpanAttrDocName, payload.Name),
		telemetry.WithAttribute(telemetry.SpanAttrParty, payload.Party),
	)
	defer span.End()

	log := j.logger.With(
		zap.String("doctype", payload.DocType.String()),
		zap.String("name", payload.Name),
		zap.String("party", payload.Party),
	)

	folderPath, err := j.ensureFolders(ctx, payload)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrFolder, folderPath)

	doc, err := j.docs.FindByName(ctx, payload.DocType, payload.Name)
	if err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%s %s: %w", payload.DocType, payload.Name, shared.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	// Dunning carries no party of its own; print the one the hook resolved.
	if doc.DirectParty() == "" && doc.Customer == "" {
		doc.Customer = payload.Party
	}

	req, err := j.printer.Render(ctx, doc)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to render print format: %w", err)
	}
	hash := PrintHash(req)

	existing, err := j.files.FindByContentHash(ctx, payload.DocType, payload.Name, hash)
	if err == nil {
		log.Info("identical print already attached", zap.String("file_id", existing.ID.String()))
		telemetry.SetAttribute(span, telemetry.SpanAttrFileID, existing.ID.String())
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		log.Warn("content hash lookup failed, storing a new copy", zap.Error(err))
	}

	data, pages, err := j.convert(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.AddEvent(span, "pdf_rendered", "size", len(data), "pages", pages)

	record, err := domain.NewFileRecord(domain.SanitizeFileName(payload.Name), folderPath, payload.DocType, payload.Name)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	record.StorageKey = StorageKey(record)
	record.FileURL = "/" + record.StorageKey
	record.FileSize = int64(len(data))
	record.ContentHash = hash
	record.PageCount = pages

	if err := j.store.Upload(ctx, record.StorageKey, data, PDFContentType); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to store pdf: %w", err)
	}
	if err := j.files.Save(ctx, record); err != nil {
		if delErr := j.store.Delete(ctx, record.StorageKey); delErr != nil {
			log.Warn("failed to remove orphaned object", zap.String("key", record.StorageKey), zap.Error(delErr))
		}
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save file record: %w", err)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrFileID, record.ID.String(),
		telemetry.SpanAttrFileSize, record.FileSize,
		telemetry.SpanAttrPageCount, pages,
	)
	log.Info("pdf attached",
		zap.String("file_id", record.ID.String()),
		zap.String("file_name", record.FileName),
		zap.String("folder", folderPath),
		zap.Int64("size", record.FileSize))
	return record, nil
}

// ensureFolders creates Home/<label> and Home/<label>/<party>
func (j *AttachmentJob) ensureFolders(ctx context.Context, payload domain.JobPayload) (string, error) {
	label := payload.DocType.String()
	if j.labeler != nil {
		label = j.labeler.Label(payload.DocType)
	}

	labelPath, err := j.folders.EnsureFolder(ctx, domain.FolderName(label), domain.HomeFolder)
	if err != nil {
		return "", err
	}
	return j.folders.EnsureFolder(ctx, domain.FolderName(payload.Party), labelPath)
}

// PrintHash identifies a rendered print by its HTML and page setup. Chrome
// stamps creation times into the PDF, so the PDF bytes cannot serve.
func PrintHash(req *printing.RenderRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d/%d/%d/%d\x00%s\x00",
		req.PaperSize, req.Orientation, req.Title,
		req.Margins.Top, req.Margins.Right, req.Margins.Bottom, req.Margins.Left,
		req.FooterHTML)
	h.Write([]byte(req.HTML))
	return hex.EncodeToString(h.Sum(nil))
}

func (j *AttachmentJob) convert(ctx context.Context, req *printing.RenderRequest) ([]byte, int, error) {
	result, err := j.converter.Render(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to convert to pdf: %w", err)
	}

	if j.inspector == nil {
		return result.PDFData, 0, nil
	}
	info, err := j.inspector.Inspect(result.PDFData)
	if err != nil {
		return nil, 0, err
	}
	return result.PDFData, info.PageCount, nil
}
