// Package observability provides OpenTelemetry-based instrumentation for
// filter parsing, SQL translation and the HTTP API.
//
// All observability features are opt-in. When not configured, no-op implementations
// are used with zero performance overhead.
package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// Instrumentation identity constants
const (
	// TracerName is the instrumentation name for tracing.
	TracerName = "github.com/nlstn/go-filterql"
	// MeterName is the instrumentation name for metrics.
	MeterName = "github.com/nlstn/go-filterql"
)

// Semantic attribute keys following OpenTelemetry conventions.
const (
	AttrOperation = "filterql.operation"

	// Query attributes
	AttrQueryText        = "filterql.query.text"
	AttrQueryLength      = "filterql.query.length"
	AttrQueryTokens      = "filterql.query.tokens"
	AttrQueryDepth       = "filterql.query.depth"
	AttrQueryFields      = "filterql.query.fields"
	AttrQueryFingerprint = "filterql.query.fingerprint"
	AttrCacheHit         = "filterql.cache.hit"

	// Translation attributes
	AttrSQLDialect = "filterql.sql.dialect"

	// Database attributes
	AttrRowsAffected = "filterql.db.rows_affected"

	// Error attributes
	AttrErrorCode     = "filterql.error.code"
	AttrErrorPosition = "filterql.error.position"
)

// Operation types for the filterql.operation attribute.
const (
	OpParse     = "parse"
	OpRender    = "render"
	OpValidate  = "validate"
	OpTranslate = "translate"
)

// Log field keys for structured logging with trace context.
const (
	LogFieldOperation   = "filterql.operation"
	LogFieldQuery       = "query"
	LogFieldTraceID     = "trace_id"
	LogFieldSpanID      = "span_id"
	LogFieldRequestID   = "request_id"
	LogFieldDuration    = "duration_ms"
	LogFieldTokens      = "tokens"
	LogFieldFingerprint = "fingerprint"
	LogFieldError       = "error"
)

// OperationAttr creates an attribute for the operation type.
func OperationAttr(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// QueryTextAttr creates an attribute for the raw filter text.
func QueryTextAttr(text string) attribute.KeyValue {
	return attribute.String(AttrQueryText, text)
}

// QueryLengthAttr creates an attribute for the filter length in bytes.
func QueryLengthAttr(n int) attribute.KeyValue {
	return attribute.Int(AttrQueryLength, n)
}

// QueryTokensAttr creates an attribute for the number of lexed tokens.
func QueryTokensAttr(n int) attribute.KeyValue {
	return attribute.Int(AttrQueryTokens, n)
}

// QueryDepthAttr creates an attribute for the deepest nesting reached.
func QueryDepthAttr(n int) attribute.KeyValue {
	return attribute.Int(AttrQueryDepth, n)
}

// QueryFieldsAttr creates an attribute listing referenced fields.
func QueryFieldsAttr(fields []string) attribute.KeyValue {
	return attribute.StringSlice(AttrQueryFields, fields)
}

// FingerprintAttr creates an attribute for a metadata fingerprint.
func FingerprintAttr(fp uint64) attribute.KeyValue {
	return attribute.String(AttrQueryFingerprint, fmt.Sprintf("%016x", fp))
}

// CacheHitAttr creates an attribute recording whether a cached parse was used.
func CacheHitAttr(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// SQLDialectAttr creates an attribute for the SQL dialect name.
func SQLDialectAttr(dialect string) attribute.KeyValue {
	return attribute.String(AttrSQLDialect, dialect)
}

// ErrorCodeAttr creates an attribute for the error code.
func ErrorCodeAttr(code string) attribute.KeyValue {
	return attribute.String(AttrErrorCode, code)
}

// ErrorPositionAttr creates an attribute for the byte offset of an error.
func ErrorPositionAttr(pos int) attribute.KeyValue {
	return attribute.Int(AttrErrorPosition, pos)
}
