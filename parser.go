package filterql

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/nlstn/go-filterql/internal/observability"
	"github.com/nlstn/go-filterql/internal/query"
)

// Parser parses filters with a fixed configuration. It is safe for
// concurrent use. Every call returns a tree of its own, including cache
// hits.
type Parser struct {
	opts      query.ParserOptions
	maxLength int
	cacheSize int
	logger    *slog.Logger
	cache     *query.ParseCache
	obs       *observability.Config
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger for debug output. Nil selects slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithMaxDepth limits nesting of groups, NOT and function calls. Values
// below 1 select DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		p.opts.MaxDepth = depth
	}
}

// WithMaxLength rejects inputs longer than n bytes with ErrInputTooLong.
// Zero disables the limit.
func WithMaxLength(n int) Option {
	return func(p *Parser) {
		p.maxLength = n
	}
}

// WithFunctions sets the function catalog used by WithStrictFunctions.
func WithFunctions(catalog *FunctionCatalog) Option {
	return func(p *Parser) {
		p.opts.Functions = catalog
	}
}

// WithStrictFunctions rejects calls to functions missing from the catalog
// and calls with the wrong number of arguments.
func WithStrictFunctions() Option {
	return func(p *Parser) {
		p.opts.StrictFunctions = true
	}
}

// WithFoldIdentifiers lower-cases field names.
func WithFoldIdentifiers() Option {
	return func(p *Parser) {
		p.opts.FoldIdentifiers = true
	}
}

// WithCacheSize caches up to n successful parses keyed by input text.
// Zero disables caching.
func WithCacheSize(n int) Option {
	return func(p *Parser) {
		p.cacheSize = n
	}
}

// WithObservability enables tracing and metrics for parses.
func WithObservability(cfg ObservabilityConfig) Option {
	return func(p *Parser) {
		p.obs = cfg.build()
	}
}

// New returns a Parser configured by opts.
func New(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.cache = query.NewParseCache(p.cacheSize)
	return p
}

// Observability returns the instrumentation config, or nil when not configured.
func (p *Parser) Observability() *observability.Config {
	return p.obs
}

// Functions returns the catalog the Parser checks calls against.
func (p *Parser) Functions() *FunctionCatalog {
	if p.opts.Functions == nil {
		return query.DefaultFunctions()
	}
	return p.opts.Functions
}

// CacheLen returns the number of cached results.
func (p *Parser) CacheLen() int {
	return p.cache.Len()
}

// Parse parses input and extracts its metadata.
func (p *Parser) Parse(ctx context.Context, input string) (*Result, error) {
	start := time.Now()
	tracer := p.obs.Tracer()
	metrics := p.obs.Metrics()

	ctx, span := tracer.StartParse(ctx, input, p.obs.QueryTextEnabled())
	defer span.End()
	timing := observability.StartServerTimingWithDesc(ctx, "parse", "Filter parse")
	defer timing.Stop()

	logger := observability.LoggerWithTrace(ctx, p.logger)

	if p.maxLength > 0 && len(input) > p.maxLength {
		err := fmt.Errorf("%w: %d bytes, limit is %d", ErrInputTooLong, len(input), p.maxLength)
		p.fail(ctx, logger, span, tracer, metrics, err, time.Since(start))
		return nil, err
	}

	if cached, ok := p.cache.Get(input); ok {
		tracer.AddParseResult(span, cached.Stats.Tokens, cached.Stats.Depth, cached.Metadata.Fields(), cached.Metadata.Fingerprint(), true)
		metrics.RecordParse(ctx, observability.OutcomeCached, cached.Stats.Tokens, time.Since(start))
		return &Result{Expr: query.Clone(cached.Expr), Metadata: cached.Metadata, Stats: cached.Stats, Cached: true}, nil
	}

	expr, stats, err := query.ParseWithStats(input, p.opts)
	if err != nil {
		p.fail(ctx, logger, span, tracer, metrics, err, time.Since(start))
		return nil, err
	}

	md := query.Extract(expr)
	p.cache.Put(&query.CachedParse{Input: input, Expr: query.Clone(expr), Metadata: md, Stats: stats})

	elapsed := time.Since(start)
	tracer.AddParseResult(span, stats.Tokens, stats.Depth, md.Fields(), md.Fingerprint(), false)
	metrics.RecordParse(ctx, observability.OutcomeParsed, stats.Tokens, elapsed)
	logger.Debug("filter parsed",
		slog.Int(observability.LogFieldTokens, stats.Tokens),
		slog.Int("depth", stats.Depth),
		slog.Any("fields", md.Fields()),
		slog.String(observability.LogFieldFingerprint, fmt.Sprintf("%016x", md.Fingerprint())),
		slog.Float64(observability.LogFieldDuration, float64(elapsed.Microseconds())/1000),
	)

	return &Result{Expr: expr, Metadata: md, Stats: stats}, nil
}

func (p *Parser) fail(ctx context.Context, logger *slog.Logger, span trace.Span, tracer *observability.Tracer, metrics *observability.Metrics, err error, elapsed time.Duration) {
	code := string(Code(err))
	tracer.RecordError(span, err)
	span.SetAttributes(observability.ErrorCodeAttr(code))
	if pos, ok := ErrorPosition(err); ok {
		span.SetAttributes(observability.ErrorPositionAttr(pos))
	}

	metrics.RecordError(ctx, observability.OpParse, code)
	metrics.RecordParse(ctx, observability.OutcomeFailed, 0, elapsed)

	logger.Debug("filter parse failed",
		slog.String("code", code),
		slog.String(observability.LogFieldError, err.Error()),
	)
}
