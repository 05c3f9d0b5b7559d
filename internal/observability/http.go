package observability

import (
	"net/http"
	"time"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware returns an HTTP middleware that instruments requests with
// a span and request metrics. The route label is the request path.
func HTTPMiddleware(cfg *Config) func(http.Handler) http.Handler {
	if !cfg.Enabled() {
		// Return a passthrough middleware if observability is not configured
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	tracer := cfg.Tracer()
	metrics := cfg.Metrics()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracer.StartRequest(r.Context(), r)
			defer span.End()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			tracer.SetHTTPStatus(ctx, rec.status)
			metrics.RecordRequest(ctx, r.URL.Path, rec.status, time.Since(start))
		})
	}
}
