package observability

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanParse     = "filterql.parse"
	SpanRender    = "filterql.render"
	SpanTranslate = "filterql.translate"
	SpanRequest   = "filterql.request"
	SpanDBQuery   = "db.query"
)

// Tracer starts the spans of parses, translations, requests and the
// database statements they lead to.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer on tp.
func NewTracer(tp trace.TracerProvider, serviceName string) *Tracer {
	return &Tracer{
		tracer: tp.Tracer(TracerName, trace.WithInstrumentationAttributes(semconv.ServiceName(serviceName))),
	}
}

func (t *Tracer) start(ctx context.Context, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithSpanKind(kind), trace.WithAttributes(attrs...))
}

// StartParse starts a parse span. The filter text is attached only when
// withText is set, since filters may carry user data.
func (t *Tracer) StartParse(ctx context.Context, input string, withText bool) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{OperationAttr(OpParse), QueryLengthAttr(len(input))}
	if withText {
		attrs = append(attrs, QueryTextAttr(input))
	}
	return t.start(ctx, SpanParse, trace.SpanKindInternal, attrs...)
}

// StartRender starts a span for rendering an expression to text.
func (t *Tracer) StartRender(ctx context.Context) (context.Context, trace.Span) {
	return t.start(ctx, SpanRender, trace.SpanKindInternal, OperationAttr(OpRender))
}

// StartTranslate starts a span for translating an expression to SQL.
func (t *Tracer) StartTranslate(ctx context.Context, dialect string) (context.Context, trace.Span) {
	return t.start(ctx, SpanTranslate, trace.SpanKindInternal, OperationAttr(OpTranslate), SQLDialectAttr(dialect))
}

// StartRequest starts the server span of an HTTP request.
func (t *Tracer) StartRequest(ctx context.Context, r *http.Request) (context.Context, trace.Span) {
	return t.start(ctx, SpanRequest, trace.SpanKindServer,
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.URLFull(r.URL.String()),
		semconv.HTTPRoute(r.URL.Path),
	)
}

// SetHTTPStatus records the response status on the span of ctx. Client
// and server errors mark the span as failed.
func (t *Tracer) SetHTTPStatus(ctx context.Context, statusCode int) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(semconv.HTTPResponseStatusCode(statusCode))
	if statusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(statusCode))
	}
}

// StartDBQuery starts a client span for one database statement.
func (t *Tracer) StartDBQuery(ctx context.Context, system, operation string) (context.Context, trace.Span) {
	return t.start(ctx, SpanDBQuery, trace.SpanKindClient,
		semconv.DBSystemKey.String(system),
		semconv.DBOperationName(operation),
	)
}

// RecordError marks span as failed with err. A nil err is ignored.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddParseResult adds the outcome of a successful parse to a span.
func (t *Tracer) AddParseResult(span trace.Span, tokens, depth int, fields []string, fingerprint uint64, cached bool) {
	span.SetAttributes(
		QueryTokensAttr(tokens),
		QueryDepthAttr(depth),
		QueryFieldsAttr(fields),
		FingerprintAttr(fingerprint),
		CacheHitAttr(cached),
	)
}

// LoggerWithTrace returns logger with the trace and span IDs of ctx, if
// ctx carries a valid span.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}
	return logger.With(
		slog.String(LogFieldTraceID, sc.TraceID().String()),
		slog.String(LogFieldSpanID, sc.SpanID().String()),
	)
}
