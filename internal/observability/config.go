package observability

import (
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// DefaultServiceName identifies the library when no service name is set.
const DefaultServiceName = "filterql"

// Config holds the instruments shared by parsing, SQL translation and the
// HTTP API. A nil *Config is valid and records nothing.
type Config struct {
	serviceName    string
	serviceVersion string

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	// Filter text may contain user data, so it stays off spans unless asked for.
	queryText    bool
	dbTracing    bool
	serverTiming bool

	tracer  *Tracer
	metrics *Metrics
}

// Option configures a Config.
type Option func(*Config)

// WithTracerProvider enables tracing through tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) { c.tracerProvider = tp }
}

// WithMeterProvider enables metrics through mp.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Config) { c.meterProvider = mp }
}

// WithService names the service in spans. An empty name keeps the default.
func WithService(name, version string) Option {
	return func(c *Config) {
		if name != "" {
			c.serviceName = name
		}
		c.serviceVersion = version
	}
}

// WithQueryText attaches the raw filter text to parse spans.
func WithQueryText() Option {
	return func(c *Config) { c.queryText = true }
}

// WithDBTracing traces the statements run through translated filters.
// It has no effect without a tracer provider.
func WithDBTracing() Option {
	return func(c *Config) { c.dbTracing = true }
}

// WithServerTiming enables the Server-Timing response header.
func WithServerTiming() Option {
	return func(c *Config) { c.serverTiming = true }
}

// New builds a Config. Signals without a provider get no-op instruments.
func New(opts ...Option) *Config {
	c := &Config{serviceName: DefaultServiceName}
	for _, opt := range opts {
		opt(c)
	}

	if c.tracerProvider != nil {
		c.tracer = NewTracer(c.tracerProvider, c.serviceName)
	} else {
		c.tracer = noopTracer
	}
	if c.meterProvider != nil {
		c.metrics = NewMetrics(c.meterProvider)
	} else {
		c.metrics = noopMetrics
	}
	return c
}

// The no-op instruments hold no state, so one pair serves every Config.
var (
	noopTracer  = &Tracer{tracer: tracenoop.NewTracerProvider().Tracer("")}
	noopMetrics = NewMetrics(metricnoop.NewMeterProvider())
)

// NewNoopTracer returns the shared tracer that does nothing.
func NewNoopTracer() *Tracer {
	return noopTracer
}

// NewNoopMetrics returns the shared metrics that do nothing.
func NewNoopMetrics() *Metrics {
	return noopMetrics
}

// Tracer returns the configured tracer, or a no-op tracer.
func (c *Config) Tracer() *Tracer {
	if c == nil || c.tracer == nil {
		return noopTracer
	}
	return c.tracer
}

// Metrics returns the configured metrics, or no-op metrics.
func (c *Config) Metrics() *Metrics {
	if c == nil || c.metrics == nil {
		return noopMetrics
	}
	return c.metrics
}

// ServiceName returns the name reported in spans.
func (c *Config) ServiceName() string {
	if c == nil {
		return DefaultServiceName
	}
	return c.serviceName
}

// ServiceVersion returns the configured service version.
func (c *Config) ServiceVersion() string {
	if c == nil {
		return ""
	}
	return c.serviceVersion
}

// Enabled reports whether a tracer or meter provider is configured.
func (c *Config) Enabled() bool {
	return c != nil && (c.tracerProvider != nil || c.meterProvider != nil)
}

// QueryTextEnabled reports whether filter text goes on parse spans.
func (c *Config) QueryTextEnabled() bool {
	return c != nil && c.queryText
}

// DBTracingEnabled reports whether database statements are traced.
func (c *Config) DBTracingEnabled() bool {
	return c != nil && c.dbTracing && c.tracerProvider != nil
}

// ServerTimingEnabled reports whether the Server-Timing header is written.
func (c *Config) ServerTimingEnabled() bool {
	return c != nil && c.serverTiming
}
