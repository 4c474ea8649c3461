package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey int

const (
	loggerKey contextKey = iota
	requestIDKey
	jobIDKey
	documentKey
)

// DocumentRef identifies a submitted document in log output
type DocumentRef struct {
	DocType string
	Name    string
}

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger attached to ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID records the HTTP request ID on ctx and attaches a logger
// carrying it.
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithJobID records the attachment job ID on ctx and attaches a logger
// carrying it.
func WithJobID(ctx context.Context, logger *zap.Logger, jobID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, jobIDKey, jobID)
	enriched := logger.With(zap.String("job_id", jobID))
	return WithContext(ctx, enriched), enriched
}

// WithDocument records the document being printed on ctx and attaches a
// logger carrying its doctype and name.
func WithDocument(ctx context.Context, logger *zap.Logger, docType, name string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, documentKey, DocumentRef{DocType: docType, Name: name})
	enriched := logger.With(zap.String("doctype", docType), zap.String("docname", name))
	return WithContext(ctx, enriched), enriched
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func GetJobID(ctx context.Context) string {
	id, _ := ctx.Value(jobIDKey).(string)
	return id
}

func GetDocument(ctx context.Context) (DocumentRef, bool) {
	ref, ok := ctx.Value(documentKey).(DocumentRef)
	return ref, ok
}

// GetTraceID returns the trace ID of the span in ctx, or "" without a valid span
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// GetSpanID returns the span ID of the span in ctx, or "" without a valid span
func GetSpanID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.SpanID().String()
}

// ContextFields collects the correlation fields present on ctx: trace and
// span IDs, the request ID, the job ID and the document. Loggers that are not
// taken from ctx, such as the gorm logger, use it to tie their entries to
// the request or job that caused them.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID), zap.String("span_id", GetSpanID(ctx)))
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetJobID(ctx); id != "" {
		fields = append(fields, zap.String("job_id", id))
	}
	if ref, ok := GetDocument(ctx); ok {
		fields = append(fields, zap.String("doctype", ref.DocType), zap.String("docname", ref.Name))
	}
	return fields
}
