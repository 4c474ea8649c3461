package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/erp/pdfonsubmit/internal/domain/attachment"
)

// DispatchMetrics exports submit hook outcomes and queue depth over OTLP.
type DispatchMetrics struct {
	logger *zap.Logger

	dispatchTotal *Counter
	queueDepth    *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// QueueDepthProvider reports how many tasks sit in each queue state.
// The redis queue implements it.
type QueueDepthProvider interface {
	Depth(ctx context.Context) (pending, processing, failed int64, err error)
}

// NewDispatchMetrics registers the dispatch instruments on meter.
func NewDispatchMetrics(meter metric.Meter, logger *zap.Logger) (*DispatchMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dm := &DispatchMetrics{logger: logger, stopChan: make(chan struct{})}

	var err error
	dm.dispatchTotal, err = NewCounter(meter,
		"pdfsubmit_dispatch_total",
		"Submit hook invocations by document type and outcome",
		"{submissions}",
	)
	if err != nil {
		return nil, err
	}

	dm.queueDepth, err = NewGauge(meter,
		"pdfsubmit_queue_depth",
		"Attachment tasks per queue state",
		"{tasks}",
	)
	if err != nil {
		return nil, err
	}
	return dm, nil
}

// RecordDispatch counts one submit hook outcome.
func (dm *DispatchMetrics) RecordDispatch(ctx context.Context, docType attachment.DocType, outcome string) {
	dm.dispatchTotal.Inc(ctx, AttrDocType.String(docType.String()), AttrOutcome.String(outcome))
}

// StartQueueDepthCollection samples the queue depth every interval (default
// 30s) until ctx is cancelled or Stop is called. Only the first call starts a loop.
func (dm *DispatchMetrics) StartQueueDepthCollection(ctx context.Context, provider QueueDepthProvider, interval time.Duration) {
	if provider == nil {
		return
	}
	dm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 30 * time.Second
		}
		go dm.runQueueDepthCollection(ctx, provider, interval)
	})
}

func (dm *DispatchMetrics) runQueueDepthCollection(ctx context.Context, provider QueueDepthProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	dm.collectQueueDepth(ctx, provider)
	for {
		select {
		case <-dm.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			dm.collectQueueDepth(ctx, provider)
		}
	}
}

func (dm *DispatchMetrics) collectQueueDepth(ctx context.Context, provider QueueDepthProvider) {
	pending, processing, failed, err := provider.Depth(ctx)
	if err != nil {
		dm.logger.Warn("Failed to read queue depth", zap.Error(err))
		return
	}
	dm.queueDepth.Record(ctx, pending, AttrQueueState.String("pending"))
	dm.queueDepth.Record(ctx, processing, AttrQueueState.String("processing"))
	dm.queueDepth.Record(ctx, failed, AttrQueueState.String("failed"))
}

// Stop stops the queue depth collection.
func (dm *DispatchMetrics) Stop() {
	dm.stopOnce.Do(func() {
		close(dm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewDispatchMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
