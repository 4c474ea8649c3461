package attachment

import (
	"context"
	"io"
	"time"

	domain "github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/infrastructure/printing"
	"github.com/erp/pdfonsubmit/internal/infrastructure/queue"
)

// FileStore persists generated PDF bytes under a storage key.
type FileStore interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	Download(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}

// TaskQueue accepts background tasks.
type TaskQueue interface {
	Enqueue(ctx context.Context, task *queue.Task) error
}

// PartyLookup resolves the customer of a linked Sales Invoice.
type PartyLookup interface {
	InvoiceCustomer(ctx context.Context, invoiceName string) (string, error)
}

// HostDocumentClient reads single field values from the host ERP.
type HostDocumentClient interface {
	GetValue(ctx context.Context, docType, name, field string) (string, error)
}

// Labeler translates a document type into its folder label.
type Labeler interface {
	Label(docType domain.DocType) string
}

// DocumentPrinter renders a document snapshot with its default print format.
type DocumentPrinter interface {
	Render(ctx context.Context, doc *domain.SubmittedDocument) (*printing.RenderRequest, error)
}

// PDFConverter turns rendered HTML into PDF bytes.
type PDFConverter interface {
	Render(ctx context.Context, req *printing.RenderRequest) (*printing.RenderResult, error)
}

// PDFInspector validates generated PDF bytes.
type PDFInspector interface {
	Inspect(data []byte) (*printing.PDFInfo, error)
}

// DispatchMetrics counts submit hook outcomes.
type DispatchMetrics interface {
	RecordDispatch(ctx context.Context, docType domain.DocType, outcome string)
}

// JobMetrics records worker activity.
type JobMetrics interface {
	JobStarted(docType string)
	JobFinished(docType, status string, duration time.Duration)
}

// Dispatch outcomes reported to DispatchMetrics.
const (
	OutcomeEnqueued      = "enqueued"
	OutcomeDisabled      = "disabled"
	OutcomeNoParty       = "no_party"
	OutcomeEnqueueFailed = "enqueue_failed"
)

type noopDispatchMetrics struct{}

func (noopDispatchMetrics) RecordDispatch(context.Context, domain.DocType, string) {}

type noopJobMetrics struct{}

func (noopJobMetrics) JobStarted(string) {}
func (noopJobMetrics) JobFinished(string, string, time.Duration) {}
