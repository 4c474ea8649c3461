package attachment

import (
	"context"
	"fmt"
	"time"

	domain "github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
	"github.com/erp/pdfonsubmit/internal/infrastructure/queue"
	"github.com/erp/pdfonsubmit/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultJobTimeout bounds one attachment job
const DefaultJobTimeout = 30 * time.Second

// Reasons reported when nothing was enqueued
const (
	ReasonDisabled      = "pdf generation disabled for document type"
	ReasonNoParty       = "party could not be determined"
	ReasonEnqueueFailed = "job could not be enqueued"
)

// DispatchResult describes what a submit hook did. It is informational only.
type DispatchResult struct {
	DocType  domain.DocType `json:"doctype"`
	Name     string         `json:"name"`
	Party    string         `json:"party,omitempty"`
	Enqueued bool           `json:"enqueued"`
	JobID    string         `json:"job_id,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

// Dispatcher reacts to document submissions. When the settings flag for the
// document type is on it enqueues one attachment job.
type Dispatcher struct {
	settings domain.SettingsRepository
	docs     domain.DocumentRepository
	jobs     domain.JobRepository
	queue    TaskQueue
	parties  PartyLookup
	metrics  DispatchMetrics
	timeout  time.Duration
	logger   *zap.Logger
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithDispatchMetrics sets the hook outcome recorder
func WithDispatchMetrics(m DispatchMetrics) DispatcherOption {
	return func(d *Dispatcher) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithJobTimeout overrides the queued job timeout
func WithJobTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithDispatcherLogger sets the logger
func WithDispatcherLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(
	settings domain.SettingsRepository,
	docs domain.DocumentRepository,
	jobs domain.JobRepository,
	taskQueue TaskQueue,
	parties PartyLookup,
	opts ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		settings: settings,
		docs:     docs,
		jobs:     jobs,
		queue:    taskQueue,
		parties:  parties,
		metrics:  noopDispatchMetrics{},
		timeout:  DefaultJobTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleSubmit routes a submitted document to its handler. The only error is
// an invalid document; queue problems are logged and reported in the result.
func (d *Dispatcher) HandleSubmit(ctx context.Context, doc *domain.SubmittedDocument) (*DispatchResult, error) {
	if doc == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Document is required")
	}
	switch doc.DocType {
	case domain.DocTypeSalesInvoice:
		return d.OnSalesInvoiceSubmit(ctx, doc)
	case domain.DocTypeDeliveryNote:
		return d.OnDeliveryNoteSubmit(ctx, doc)
	case domain.DocTypeSalesOrder:
		return d.OnSalesOrderSubmit(ctx, doc)
	case domain.DocTypeQuotation:
		return d.OnQuotationSubmit(ctx, doc)
	case domain.DocTypeDunning:
		return d.OnDunningSubmit(ctx, doc)
	}
	return nil, shared.NewDomainError("INVALID_DOCTYPE", "Unsupported document type: "+string(doc.DocType))
}

// OnSalesInvoiceSubmit handles a submitted Sales Invoice; the party is its customer
func (d *Dispatcher) OnSalesInvoiceSubmit(ctx context.Context, doc *domain.SubmittedDocument) (*DispatchResult, error) {
	return d.dispatch(ctx, domain.DocTypeSalesInvoice, doc, d.directParty)
}

// OnDeliveryNoteSubmit handles a submitted Delivery Note; the party is its customer
func (d *Dispatcher) OnDeliveryNoteSubmit(ctx context.Context, doc *domain.SubmittedDocument) (*DispatchResult, error) {
	return d.dispatch(ctx, domain.DocTypeDeliveryNote, doc, d.directParty)
}

// OnSalesOrderSubmit handles a submitted Sales Order; the party is its customer
func (d *Dispatcher) OnSalesOrderSubmit(ctx context.Context, doc *domain.SubmittedDocument) (*DispatchResult, error) {
	return d.dispatch(ctx, domain.DocTypeSalesOrder, doc, d.directParty)
}

// OnQuotationSubmit handles a submitted Quotation; the party is its party_name
func (d *Dispatcher) OnQuotationSubmit(ctx context.Context, doc *domain.SubmittedDocument) (*DispatchResult, error) {
	return d.dispatch(ctx, domain.DocTypeQuotation, doc, d.directParty)
}

// OnDunningSubmit handles a submitted Dunning; the party is the customer of
// the linked Sales Invoice
func (d *Dispatcher) OnDunningSubmit(ctx context.Context, doc *domain.SubmittedDocument) (*DispatchResult, error) {
	return d.dispatch(ctx, domain.DocTypeDunning, doc, d.dunningParty)
}

type partyResolver func(ctx context.Context, doc *domain.SubmittedDocument) (string, error)

func (d *Dispatcher) directParty(_ context.Context, doc *domain.SubmittedDocument) (string, error) {
	return doc.DirectParty(), nil
}

func (d *Dispatcher) dunningParty(ctx context.Context, doc *domain.SubmittedDocument) (string, error) {
	if d.parties == nil {
		return "", fmt.Errorf("no party lookup configured")
	}
	return d.parties.InvoiceCustomer(ctx, doc.SalesInvoice)
}

func (d *Dispatcher) dispatch(
	ctx context.Context,
	docType domain.DocType,
	doc *domain.SubmittedDocument,
	resolveParty partyResolver,
) (*DispatchResult, error) {
	if doc == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Document is required")
	}
	if doc.DocType == "" {
		doc.DocType = docType
	}
	if doc.DocType != docType {
		return nil, shared.NewDomainError("INVALID_DOCTYPE",
			fmt.Sprintf("Handler for %s received a %s", docType, doc.DocType))
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if doc.SubmittedAt.IsZero() {
		doc.SubmittedAt = time.Now().UTC()
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "dispatcher", "submit",
		telemetry.WithAttribute(telemetry.SpanAttrDocType, docType.String()),
		telemetry.WithAttribute(telemetry.SpanAttrDocName, doc.Name),
	)
	defer span.End()

	log := d.logger.With(zap.String("doctype", docType.String()), zap.String("name", doc.Name))
	result := &DispatchResult{DocType: docType, Name: doc.Name}

	// Keep the snapshot even when printing is disabled; a Dunning printed
	// later may need this invoice's customer.
	if err := d.docs.Save(ctx, doc); err != nil {
		log.Warn("failed to store document snapshot", zap.Error(err))
	}

	settings, err := d.settings.Get(ctx)
	if err != nil {
		log.Error("failed to read settings, treating document type as disabled", zap.Error(err))
		settings = nil
	}
	if !settings.Enabled(docType) {
		log.Debug("pdf on submit disabled")
		result.Reason = ReasonDisabled
		d.metrics.RecordDispatch(ctx, docType, OutcomeDisabled)
		return result, nil
	}

	party, err := resolveParty(ctx, doc)
	if err != nil || party == "" {
		log.Warn("cannot determine party, no job enqueued",
			zap.String("sales_invoice", doc.SalesInvoice),
			zap.Error(err))
		result.Reason = ReasonNoParty
		d.metrics.RecordDispatch(ctx, docType, OutcomeNoParty)
		return result, nil
	}
	result.Party = party

	job, err := domain.NewJob(domain.JobPayload{DocType: docType, Name: doc.Name, Party: party}, d.timeout)
	if err != nil {
		log.Warn("invalid job payload", zap.Error(err))
		result.Reason = ReasonNoParty
		d.metrics.RecordDispatch(ctx, docType, OutcomeNoParty)
		return result, nil
	}

	task, err := queue.NewTask(job.Method, job.Queue, job.Timeout, job.Payload)
	if err != nil {
		return d.enqueueFailed(ctx, log, result, job, err), nil
	}
	task.ID = job.ID.String()

	if err := d.jobs.Save(ctx, job); err != nil {
		log.Warn("failed to record queued job", zap.String("job_id", task.ID), zap.Error(err))
	}

	if err := d.queue.Enqueue(ctx, task); err != nil {
		telemetry.RecordError(span, err)
		return d.enqueueFailed(ctx, log, result, job, err), nil
	}

	log.Info("attachment job enqueued",
		zap.String("job_id", task.ID),
		zap.String("party", party),
		zap.String("queue", task.Queue))
	telemetry.SetAttribute(span, telemetry.SpanAttrJobID, task.ID)

	result.Enqueued = true
	result.JobID = task.ID
	d.metrics.RecordDispatch(ctx, docType, OutcomeEnqueued)
	return result, nil
}

func (d *Dispatcher) enqueueFailed(ctx context.Context, log *zap.Logger, result *DispatchResult, job *domain.Job, cause error) *DispatchResult {
	log.Error("failed to enqueue attachment job", zap.String("job_id", job.ID.String()), zap.Error(cause))
	if err := job.Fail("enqueue failed: " + cause.Error()); err == nil {
		if err := d.jobs.Save(ctx, job); err != nil {
			log.Warn("failed to record enqueue failure", zap.Error(err))
		}
	}
	result.Reason = ReasonEnqueueFailed
	d.metrics.RecordDispatch(ctx, job.Payload.DocType, OutcomeEnqueueFailed)
	return result
}
