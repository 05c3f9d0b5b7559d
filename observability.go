package filterql

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nlstn/go-filterql/internal/observability"
)

// ObservabilityConfig configures OpenTelemetry instrumentation. A nil
// provider disables that signal.
type ObservabilityConfig struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	ServiceName    string
	ServiceVersion string
	// EnableQueryTextTracing attaches the raw filter text to parse spans.
	// Filters may contain user data, so this is off by default.
	EnableQueryTextTracing bool
	// EnableDetailedDBTracing traces the SQL queries run through the
	// translated filters.
	EnableDetailedDBTracing bool
	// EnableServerTiming adds a Server-Timing header in the HTTP API.
	EnableServerTiming bool
}

func (c ObservabilityConfig) build() *observability.Config {
	opts := []observability.Option{observability.WithService(c.ServiceName, c.ServiceVersion)}
	if c.TracerProvider != nil {
		opts = append(opts, observability.WithTracerProvider(c.TracerProvider))
	}
	if c.MeterProvider != nil {
		opts = append(opts, observability.WithMeterProvider(c.MeterProvider))
	}
	if c.EnableQueryTextTracing {
		opts = append(opts, observability.WithQueryText())
	}
	if c.EnableDetailedDBTracing {
		opts = append(opts, observability.WithDBTracing())
	}
	if c.EnableServerTiming {
		opts = append(opts, observability.WithServerTiming())
	}
	return observability.New(opts...)
}

// ServerTimingMetric times one operation of a request.
type ServerTimingMetric = observability.ServerTimingMetric

// StartServerTiming starts a Server-Timing metric. It is a no-op unless the
// request passed through the HTTP API's server timing middleware.
func StartServerTiming(ctx context.Context, name string) *ServerTimingMetric {
	return observability.StartServerTiming(ctx, name)
}

// StartServerTimingWithDesc starts a Server-Timing metric with a description.
func StartServerTimingWithDesc(ctx context.Context, name, description string) *ServerTimingMetric {
	return observability.StartServerTimingWithDesc(ctx, name, description)
}
