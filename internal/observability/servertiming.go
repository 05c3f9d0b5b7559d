package observability

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	servertiming "github.com/mitchellh/go-server-timing"
)

// ServerTimingMetric is one running Server-Timing measurement.
type ServerTimingMetric struct {
	metric *servertiming.Metric
}

// Stop ends the measurement. It is safe on a nil or no-op metric.
func (m *ServerTimingMetric) Stop() {
	if m != nil && m.metric != nil {
		m.metric.Stop()
	}
}

// StartServerTiming starts a Server-Timing metric on the request timing
// of ctx. Without one, the returned metric is a no-op.
func StartServerTiming(ctx context.Context, name string) *ServerTimingMetric {
	return StartServerTimingWithDesc(ctx, name, "")
}

// StartServerTimingWithDesc is StartServerTiming with a description.
func StartServerTimingWithDesc(ctx context.Context, name, description string) *ServerTimingMetric {
	timing := servertiming.FromContext(ctx)
	if timing == nil {
		return &ServerTimingMetric{}
	}
	m := timing.NewMetric(name)
	if description != "" {
		m = m.WithDesc(description)
	}
	return &ServerTimingMetric{metric: m.Start()}
}

// ServerTimingMiddleware adds a Server-Timing header to responses when
// enabled in cfg. Each request also gets a DBTimeAccumulator in its context.
func ServerTimingMiddleware(cfg *Config) func(http.Handler) http.Handler {
	if !cfg.ServerTimingEnabled() {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithDBTimeAccumulator(r.Context())))
		})
		return servertiming.Middleware(inner, nil)
	}
}

// FlushDBTiming adds the accumulated database time of ctx as a "db"
// Server-Timing metric. It must run before the response status is written.
func FlushDBTiming(ctx context.Context) {
	timing := servertiming.FromContext(ctx)
	acc := DBTimeAccumulatorFromContext(ctx)
	if timing == nil || acc == nil {
		return
	}
	if d := acc.Duration(); d > 0 {
		timing.Add(&servertiming.Metric{Name: "db", Duration: d, Desc: "Database"})
	}
}

// DBTimeAccumulator sums database time across the queries of one request.
// The zero value is ready to use.
type DBTimeAccumulator struct {
	nanos atomic.Int64
}

// Add adds d to the total.
func (a *DBTimeAccumulator) Add(d time.Duration) {
	a.nanos.Add(int64(d))
}

// Duration returns the total so far.
func (a *DBTimeAccumulator) Duration() time.Duration {
	return time.Duration(a.nanos.Load())
}

type dbTimeKey struct{}

// WithDBTimeAccumulator returns a context carrying a fresh accumulator.
func WithDBTimeAccumulator(ctx context.Context) context.Context {
	return context.WithValue(ctx, dbTimeKey{}, &DBTimeAccumulator{})
}

// DBTimeAccumulatorFromContext returns the accumulator of ctx, or nil.
func DBTimeAccumulatorFromContext(ctx context.Context) *DBTimeAccumulator {
	acc, _ := ctx.Value(dbTimeKey{}).(*DBTimeAccumulator)
	return acc
}

// AddDBTime adds d to the accumulator of ctx, if any.
func AddDBTime(ctx context.Context, d time.Duration) {
	if acc := DBTimeAccumulatorFromContext(ctx); acc != nil {
		acc.Add(d)
	}
}
