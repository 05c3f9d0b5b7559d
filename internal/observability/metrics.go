package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Parse outcomes for the filterql.parse.outcome attribute.
const (
	OutcomeParsed = "parsed"
	OutcomeCached = "cached"
	OutcomeFailed = "failed"
)

const attrParseOutcome = "filterql.parse.outcome"

// Metrics holds the metric instruments.
type Metrics struct {
	parseDuration   metric.Float64Histogram
	parseCount      metric.Int64Counter
	errorCount      metric.Int64Counter
	tokenCount      metric.Int64Histogram
	translateCount  metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestCount    metric.Int64Counter
	dbQueryDuration metric.Float64Histogram
}

type instrument struct {
	name, desc, unit string
}

func (i instrument) float64Histogram(meter metric.Meter) metric.Float64Histogram {
	h, err := meter.Float64Histogram(i.name, metric.WithDescription(i.desc), metric.WithUnit(i.unit))
	if err != nil {
		h, _ = meter.Float64Histogram(i.name)
	}
	return h
}

func (i instrument) int64Histogram(meter metric.Meter) metric.Int64Histogram {
	h, err := meter.Int64Histogram(i.name, metric.WithDescription(i.desc), metric.WithUnit(i.unit))
	if err != nil {
		h, _ = meter.Int64Histogram(i.name)
	}
	return h
}

func (i instrument) int64Counter(meter metric.Meter) metric.Int64Counter {
	c, err := meter.Int64Counter(i.name, metric.WithDescription(i.desc), metric.WithUnit(i.unit))
	if err != nil {
		c, _ = meter.Int64Counter(i.name)
	}
	return c
}

// NewMetrics creates the instruments on mp. An instrument whose options
// are rejected is recreated with its name only.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter(MeterName)
	return &Metrics{
		parseDuration:   instrument{"filterql.parse.duration", "Duration of filter parses", "ms"}.float64Histogram(meter),
		parseCount:      instrument{"filterql.parse.count", "Filter parses by outcome", "{parse}"}.int64Counter(meter),
		errorCount:      instrument{"filterql.error.count", "Lex, parse and translation errors", "{error}"}.int64Counter(meter),
		tokenCount:      instrument{"filterql.token.count", "Tokens per parsed filter", "{token}"}.int64Histogram(meter),
		translateCount:  instrument{"filterql.translate.count", "SQL translations", "{translation}"}.int64Counter(meter),
		requestDuration: instrument{"filterql.http.request.duration", "Duration of HTTP API requests", "ms"}.float64Histogram(meter),
		requestCount:    instrument{"filterql.http.request.count", "HTTP API requests", "{request}"}.int64Counter(meter),
		dbQueryDuration: instrument{"filterql.db.query.duration", "Duration of database queries", "ms"}.float64Histogram(meter),
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// RecordParse records a completed parse. Tokens is ignored unless the
// outcome is OutcomeParsed.
func (m *Metrics) RecordParse(ctx context.Context, outcome string, tokens int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrParseOutcome, outcome))
	m.parseDuration.Record(ctx, millis(duration), attrs)
	m.parseCount.Add(ctx, 1, attrs)
	if outcome == OutcomeParsed {
		m.tokenCount.Record(ctx, int64(tokens))
	}
}

// RecordError counts a failed operation by error code.
func (m *Metrics) RecordError(ctx context.Context, operation, code string) {
	m.errorCount.Add(ctx, 1, metric.WithAttributes(OperationAttr(operation), ErrorCodeAttr(code)))
}

// RecordTranslate counts an SQL translation.
func (m *Metrics) RecordTranslate(ctx context.Context, dialect string) {
	m.translateCount.Add(ctx, 1, metric.WithAttributes(SQLDialectAttr(dialect)))
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(ctx context.Context, route string, statusCode int, duration time.Duration) {
	attrs := metric.WithAttributes(semconv.HTTPRoute(route), semconv.HTTPResponseStatusCode(statusCode))
	m.requestDuration.Record(ctx, millis(duration), attrs)
	m.requestCount.Add(ctx, 1, attrs)
}

// RecordDBQuery records the duration of a database statement.
func (m *Metrics) RecordDBQuery(ctx context.Context, operation string, duration time.Duration) {
	m.dbQueryDuration.Record(ctx, millis(duration), metric.WithAttributes(semconv.DBOperationName(operation)))
}
