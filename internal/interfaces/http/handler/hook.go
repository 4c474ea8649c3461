package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	app "github.com/erp/pdfonsubmit/internal/application/attachment"
	domain "github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
	"github.com/erp/pdfonsubmit/internal/infrastructure/logger"
	"github.com/erp/pdfonsubmit/internal/interfaces/http/dto"
)

// EventTypeDocumentSubmitted is the CloudEvent type accepted by the events hook
const EventTypeDocumentSubmitted = "erp.document.submitted"

// EventDocTypeExtension names the doctype when the event data omits it
const EventDocTypeExtension = "doctype"

// IdempotencyKeyHeader lets the direct hook caller deduplicate retries
const IdempotencyKeyHeader = "Idempotency-Key"

// SubmitDispatcher handles one submitted document
type SubmitDispatcher interface {
	HandleSubmit(ctx context.Context, doc *domain.SubmittedDocument) (*app.DispatchResult, error)
}

// SubmitResponse is the body of both hook endpoints
type SubmitResponse struct {
	*app.DispatchResult
	Duplicate bool   `json:"duplicate"`
	EventID   string `json:"event_id,omitempty"`
}

// HookHandler receives document submissions from the host ERP
type HookHandler struct {
	BaseHandler
	dispatcher  SubmitDispatcher
	idempotency shared.IdempotencyStore
	ttl         time.Duration
}

// NewHookHandler creates a new HookHandler. idempotency may be nil, which
// disables deduplication.
func NewHookHandler(dispatcher SubmitDispatcher, idempotency shared.IdempotencyStore, ttl time.Duration) *HookHandler {
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	return &HookHandler{dispatcher: dispatcher, idempotency: idempotency, ttl: ttl}
}

// Submit godoc
// @Summary      Submit hook for one document type
// @Tags         hooks
// @Accept       json
// @Produce      json
// @Param        doctype  path  string  true  "Document type slug or settings key"
// @Router       /hooks/{doctype}/submit [post]
func (h *HookHandler) Submit(c *gin.Context) {
	docType, ok := domain.ParseDocType(c.Param("doctype"))
	if !ok {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidDocType, "Unsupported document type: "+c.Param("doctype"))
		return
	}

	var doc domain.SubmittedDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid document body")
		return
	}
	if doc.DocType != "" {
		bodyType, ok := domain.ParseDocType(string(doc.DocType))
		if !ok || bodyType != docType {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidDocType, "Document type in body does not match the hook")
			return
		}
	}
	doc.DocType = docType

	key := ""
	if header := c.GetHeader(IdempotencyKeyHeader); header != "" {
		key = "idem:" + docType.Slug() + ":" + header
	}
	h.dispatch(c, &doc, key, "")
}

// Event godoc
// @Summary      Submit hook for CloudEvents
// @Description  Accepts erp.document.submitted events in structured or binary mode
// @Tags         hooks
// @Accept       json
// @Produce      json
// @Router       /hooks/events [post]
func (h *HookHandler) Event(c *gin.Context) {
	event, err := cehttp.NewEventFromHTTPRequest(c.Request)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Request is not a CloudEvent")
		return
	}
	if err := event.Validate(); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid CloudEvent: "+err.Error())
		return
	}
	if event.Type() != EventTypeDocumentSubmitted {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Unsupported event type: "+event.Type())
		return
	}

	doc, err := documentFromEvent(event)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.dispatch(c, doc, "ce:"+event.Source()+":"+event.ID(), event.ID())
}

func documentFromEvent(event *cloudevents.Event) (*domain.SubmittedDocument, error) {
	var doc domain.SubmittedDocument
	if err := event.DataAs(&doc); err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Event data is not a document")
	}

	raw := string(doc.DocType)
	if raw == "" {
		if ext, ok := event.Extensions()[EventDocTypeExtension].(string); ok {
			raw = ext
		}
	}
	docType, ok := domain.ParseDocType(raw)
	if !ok {
		return nil, shared.NewDomainError("INVALID_DOCTYPE", "Unsupported document type: "+raw)
	}
	doc.DocType = docType
	return &doc, nil
}

// dispatch runs the dispatcher under the delivery key. A key whose delivery
// was not enqueued is released so a redelivery is processed again.
func (h *HookHandler) dispatch(c *gin.Context, doc *domain.SubmittedDocument, key, eventID string) {
	ctx := c.Request.Context()
	log := logger.GetGinLogger(c)

	if key != "" && h.idempotency != nil {
		isNew, err := h.idempotency.MarkProcessed(ctx, key, h.ttl)
		if err != nil {
			log.Warn("idempotency store unavailable, dispatching anyway", zap.Error(err))
			key = ""
		} else if !isNew {
			log.Info("duplicate submission ignored",
				zap.String("doctype", doc.DocType.String()),
				zap.String("name", doc.Name),
				zap.String("delivery_key", key))
			h.Success(c, SubmitResponse{
				DispatchResult: &app.DispatchResult{DocType: doc.DocType, Name: doc.Name},
				Duplicate:      true,
				EventID:        eventID,
			})
			return
		}
	}

	result, err := h.dispatcher.HandleSubmit(ctx, doc)
	if err != nil || result == nil || result.Reason == app.ReasonEnqueueFailed {
		h.release(ctx, log, key)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result == nil {
		h.HandleError(c, errors.New("dispatcher returned no result"))
		return
	}
	h.Accepted(c, SubmitResponse{DispatchResult: result, EventID: eventID})
}

func (h *HookHandler) release(ctx context.Context, log *zap.Logger, key string) {
	if key == "" || h.idempotency == nil {
		return
	}
	if err := h.idempotency.Release(ctx, key); err != nil {
		log.Warn("failed to release delivery key", zap.String("delivery_key", key), zap.Error(err))
	}
}
