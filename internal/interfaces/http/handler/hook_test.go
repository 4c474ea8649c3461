package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/erp/pdfonsubmit/internal/application/attachment"
	domain "github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
	"github.com/erp/pdfonsubmit/internal/infrastructure/cache"
)

type fakeDispatcher struct {
	mu     sync.Mutex
	docs   []domain.SubmittedDocument
	reason string
	err    error
}

func (f *fakeDispatcher) HandleSubmit(_ context.Context, doc *domain.SubmittedDocument) (*app.DispatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, *doc)
	if f.err != nil {
		return nil, f.err
	}
	res := &app.DispatchResult{DocType: doc.DocType, Name: doc.Name, Reason: f.reason}
	if f.reason == "" {
		res.Enqueued = true
		res.JobID = "job-1"
		res.Party = doc.DirectParty()
	}
	return res, nil
}

func (f *fakeDispatcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

func newHookEngine(d SubmitDispatcher, store shared.IdempotencyStore) http.Handler {
	h := NewHookHandler(d, store, time.Hour)
	r := newTestEngine()
	r.POST("/api/v1/hooks/:doctype/submit", h.Submit)
	r.POST("/api/v1/hooks/events", h.Event)
	return r
}

func TestHookHandler_Submit(t *testing.T) {
	t.Run("slug resolves the doctype", func(t *testing.T) {
		d := &fakeDispatcher{}
		r := newHookEngine(d, nil)

		w := perform(r, http.MethodPost, "/api/v1/hooks/sales-invoice/submit",
			strings.NewReader(`{"name":"ACC-SINV-2024-00001","customer":"Acme GmbH"}`))

		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		var got SubmitResponse
		resp := decode(t, w, &got)
		assert.True(t, resp.Success)
		require.NotNil(t, got.DispatchResult)
		assert.True(t, got.Enqueued)
		assert.Equal(t, "Acme GmbH", got.Party)
		require.Len(t, d.docs, 1)
		assert.Equal(t, domain.DocTypeSalesInvoice, d.docs[0].DocType)
	})

	t.Run("settings key works as well", func(t *testing.T) {
		d := &fakeDispatcher{}
		w := perform(newHookEngine(d, nil), http.MethodPost, "/api/v1/hooks/delivery_note/submit",
			strings.NewReader(`{"name":"MAT-DN-0001","customer":"Acme GmbH"}`))
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, domain.DocTypeDeliveryNote, d.docs[0].DocType)
	})

	t.Run("unknown doctype", func(t *testing.T) {
		d := &fakeDispatcher{}
		w := perform(newHookEngine(d, nil), http.MethodPost, "/api/v1/hooks/purchase-order/submit",
			strings.NewReader(`{"name":"PO-1"}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_INVALID_DOCTYPE")
		assert.Zero(t, d.calls())
	})

	t.Run("body doctype must match the path", func(t *testing.T) {
		d := &fakeDispatcher{}
		w := perform(newHookEngine(d, nil), http.MethodPost, "/api/v1/hooks/quotation/submit",
			strings.NewReader(`{"doctype":"Sales Order","name":"SAL-ORD-1"}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, d.calls())
	})

	t.Run("malformed body", func(t *testing.T) {
		w := perform(newHookEngine(&fakeDispatcher{}, nil), http.MethodPost, "/api/v1/hooks/quotation/submit",
			strings.NewReader(`{"name":`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_INVALID_JSON")
	})

	t.Run("domain validation error maps to 400", func(t *testing.T) {
		d := &fakeDispatcher{err: shared.NewDomainError("INVALID_DUNNING", "Dunning must reference a Sales Invoice")}
		w := perform(newHookEngine(d, nil), http.MethodPost, "/api/v1/hooks/dunning/submit",
			strings.NewReader(`{"name":"DUNN-1"}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_INVALID_DOCUMENT")
	})

	t.Run("not enqueued is still accepted", func(t *testing.T) {
		d := &fakeDispatcher{reason: app.ReasonDisabled}
		w := perform(newHookEngine(d, nil), http.MethodPost, "/api/v1/hooks/sales-order/submit",
			strings.NewReader(`{"name":"SAL-ORD-1","customer":"Acme GmbH"}`))
		require.Equal(t, http.StatusAccepted, w.Code)
		var got SubmitResponse
		decode(t, w, &got)
		assert.False(t, got.Enqueued)
		assert.Equal(t, app.ReasonDisabled, got.Reason)
	})
}

func TestHookHandler_SubmitIdempotencyKey(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	d := &fakeDispatcher{}
	r := newHookEngine(d, store)

	body := `{"name":"ACC-SINV-2024-00002","customer":"Acme GmbH"}`
	first := perform(r, http.MethodPost, "/api/v1/hooks/sales-invoice/submit", strings.NewReader(body), IdempotencyKeyHeader, "k1")
	second := perform(r, http.MethodPost, "/api/v1/hooks/sales-invoice/submit", strings.NewReader(body), IdempotencyKeyHeader, "k1")

	assert.Equal(t, http.StatusAccepted, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	var got SubmitResponse
	decode(t, second, &got)
	assert.True(t, got.Duplicate)
	assert.Equal(t, 1, d.calls())
}

func TestHookHandler_ReleasesKeyWhenEnqueueFails(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	d := &fakeDispatcher{reason: app.ReasonEnqueueFailed}
	r := newHookEngine(d, store)

	body := `{"name":"SAL-QTN-1","party_name":"Acme GmbH"}`
	w := perform(r, http.MethodPost, "/api/v1/hooks/quotation/submit", strings.NewReader(body), IdempotencyKeyHeader, "retry-me")
	assert.Equal(t, http.StatusAccepted, w.Code)

	seen, err := store.IsProcessed(context.Background(), "idem:quotation:retry-me")
	require.NoError(t, err)
	assert.False(t, seen)

	d.reason = ""
	w = perform(r, http.MethodPost, "/api/v1/hooks/quotation/submit", strings.NewReader(body), IdempotencyKeyHeader, "retry-me")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 2, d.calls())
}

func newSubmittedEvent(t *testing.T, id string, data any) cloudevents.Event {
	t.Helper()
	e := cloudevents.NewEvent()
	e.SetID(id)
	e.SetSource("erp/site1")
	e.SetType(EventTypeDocumentSubmitted)
	require.NoError(t, e.SetData(cloudevents.ApplicationJSON, data))
	return e
}

func TestHookHandler_EventStructured(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	d := &fakeDispatcher{}
	r := newHookEngine(d, store)

	e := newSubmittedEvent(t, "evt-1", map[string]any{
		"doctype":  "Sales Invoice",
		"name":     "ACC-SINV-2024-00003",
		"customer": "Acme GmbH",
	})
	raw, err := e.MarshalJSON()
	require.NoError(t, err)

	send := func() int {
		w := perform(r, http.MethodPost, "/api/v1/hooks/events", strings.NewReader(string(raw)),
			"Content-Type", "application/cloudevents+json")
		return w.Code
	}

	assert.Equal(t, http.StatusAccepted, send())
	assert.Equal(t, http.StatusOK, send(), "redelivery is a duplicate")
	require.Equal(t, 1, d.calls())
	assert.Equal(t, domain.DocTypeSalesInvoice, d.docs[0].DocType)
}

func TestHookHandler_EventBinaryWithExtension(t *testing.T) {
	d := &fakeDispatcher{}
	r := newHookEngine(d, nil)

	w := perform(r, http.MethodPost, "/api/v1/hooks/events",
		strings.NewReader(`{"name":"DUNN-0001","sales_invoice":"ACC-SINV-2024-00001"}`),
		"Ce-Id", "evt-2",
		"Ce-Source", "erp/site1",
		"Ce-Type", EventTypeDocumentSubmitted,
		"Ce-Specversion", "1.0",
		"Ce-Doctype", "dunning",
	)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var got SubmitResponse
	decode(t, w, &got)
	assert.Equal(t, "evt-2", got.EventID)
	require.Len(t, d.docs, 1)
	assert.Equal(t, domain.DocTypeDunning, d.docs[0].DocType)
	assert.Equal(t, "ACC-SINV-2024-00001", d.docs[0].SalesInvoice)
}

func TestHookHandler_EventRejections(t *testing.T) {
	d := &fakeDispatcher{}
	r := newHookEngine(d, nil)

	t.Run("plain json is not an event", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/api/v1/hooks/events", strings.NewReader(`{"name":"x"}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong type", func(t *testing.T) {
		e := newSubmittedEvent(t, "evt-3", map[string]any{"doctype": "Quotation", "name": "Q-1"})
		e.SetType("erp.document.cancelled")
		raw, err := e.MarshalJSON()
		require.NoError(t, err)
		w := perform(r, http.MethodPost, "/api/v1/hooks/events", strings.NewReader(string(raw)),
			"Content-Type", "application/cloudevents+json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown doctype", func(t *testing.T) {
		e := newSubmittedEvent(t, "evt-4", map[string]any{"doctype": "Journal Entry", "name": "JV-1"})
		raw, err := e.MarshalJSON()
		require.NoError(t, err)
		w := perform(r, http.MethodPost, "/api/v1/hooks/events", strings.NewReader(string(raw)),
			"Content-Type", "application/cloudevents+json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_INVALID_DOCTYPE")
	})

	assert.Zero(t, d.calls())
}

func TestHookHandler_UnexpectedErrorIs500(t *testing.T) {
	d := &fakeDispatcher{err: errors.New("boom")}
	w := perform(newHookEngine(d, nil), http.MethodPost, "/api/v1/hooks/sales-invoice/submit",
		strings.NewReader(`{"name":"ACC-SINV-1","customer":"Acme"}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}
