package filterql

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestParserDefaults(t *testing.T) {
	p := New()
	res, err := p.Parse(context.Background(), "a = 1")
	require.NoError(t, err)
	assert.Equal(t, "a = 1", res.Canonical())
	assert.Equal(t, 0, p.CacheLen())
	assert.Nil(t, p.Observability())
	assert.Equal(t, DefaultFunctions(), p.Functions())
}

func TestParserCacheReturnsOwnedTrees(t *testing.T) {
	p := New(WithCacheSize(4))
	ctx := context.Background()

	first, err := p.Parse(ctx, "a = 1 AND f(b)")
	require.NoError(t, err)
	logical := first.Expr.(*Logical)
	logical.Left.(*Comparison).Left.(*FieldRef).Name = "mutated"
	logical.Right.(*FunctionCall).Args[0] = Field("other")

	second, err := p.Parse(ctx, "a = 1 AND f(b)")
	require.NoError(t, err)
	require.True(t, second.Cached)
	assert.Equal(t, "a = 1 AND f(b)", second.Canonical())

	second.Expr.(*Logical).Op = OpOr
	third, err := p.Parse(ctx, "a = 1 AND f(b)")
	require.NoError(t, err)
	assert.Equal(t, "a = 1 AND f(b)", third.Canonical())
}

func TestParserCache(t *testing.T) {
	p := New(WithCacheSize(2))
	ctx := context.Background()

	first, err := p.Parse(ctx, "a = 1")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := p.Parse(ctx, "a = 1")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.NotSame(t, first.Expr, second.Expr)
	assert.True(t, Equal(first.Expr, second.Expr))
	assert.Equal(t, first.Metadata, second.Metadata)

	_, err = p.Parse(ctx, "b = 2")
	require.NoError(t, err)
	_, err = p.Parse(ctx, "c = 3")
	require.NoError(t, err)
	assert.LessOrEqual(t, p.CacheLen(), 2)

	_, err = p.Parse(ctx, "d =")
	require.Error(t, err)
	assert.LessOrEqual(t, p.CacheLen(), 2)
}

func TestParserConcurrentUse(t *testing.T) {
	p := New(WithCacheSize(8))
	inputs := []string{"a = 1", "b > 2 AND c", "NOT d", "e IN (1, 2)", "f("}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				input := inputs[(i+j)%len(inputs)]
				res, err := p.Parse(context.Background(), input)
				if input == "f(" {
					assert.Error(t, err)
					continue
				}
				if assert.NoError(t, err) {
					assert.NotNil(t, res.Expr)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestParserOptions(t *testing.T) {
	ctx := context.Background()

	_, err := New(WithMaxDepth(2)).Parse(ctx, "(((a)))")
	assert.ErrorIs(t, err, ErrMaxDepthExceeded)

	_, err = New(WithStrictFunctions()).Parse(ctx, "nope(a)")
	assert.ErrorIs(t, err, ErrUnknownFunction)

	catalog, err := NewFunctionCatalog(FunctionSpec{Name: "nope", MinArgs: 1, MaxArgs: 1})
	require.NoError(t, err)
	p := New(WithStrictFunctions(), WithFunctions(catalog))
	_, err = p.Parse(ctx, "nope(a)")
	assert.NoError(t, err)
	_, err = p.Parse(ctx, "nope()")
	assert.ErrorIs(t, err, ErrFunctionArity)
	assert.Equal(t, catalog, p.Functions())

	res, err := New(WithFoldIdentifiers()).Parse(ctx, "User.Name = 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"user.name"}, res.Metadata.Fields())

	_, err = New(WithMaxLength(5)).Parse(ctx, "abc = 1")
	assert.ErrorIs(t, err, ErrInputTooLong)
}

func TestParserLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := New(WithLogger(logger))

	_, err := p.Parse(context.Background(), "a = 1")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "filter parsed")
	assert.Contains(t, buf.String(), "tokens=3")

	buf.Reset()
	_, err = p.Parse(context.Background(), "a = ")
	require.Error(t, err)
	assert.Contains(t, buf.String(), "filter parse failed")
	assert.Contains(t, buf.String(), "code=UNEXPECTED_END")
}

func TestParserObservability(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	p := New(WithCacheSize(4), WithObservability(ObservabilityConfig{
		TracerProvider:         tp,
		MeterProvider:          noop.NewMeterProvider(),
		ServiceName:            "test-service",
		EnableQueryTextTracing: true,
	}))
	require.NotNil(t, p.Observability())

	ctx := context.Background()
	_, err := p.Parse(ctx, "a = 1")
	require.NoError(t, err)
	_, err = p.Parse(ctx, "a = 1")
	require.NoError(t, err)
	_, err = p.Parse(ctx, "a = (")
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 3)
	for _, span := range spans {
		assert.Equal(t, "filterql.parse", span.Name())
	}

	attrs := func(i int) map[string]string {
		out := map[string]string{}
		for _, kv := range spans[i].Attributes() {
			out[string(kv.Key)] = kv.Value.Emit()
		}
		return out
	}
	assert.Equal(t, "a = 1", attrs(0)["filterql.query.text"])
	assert.Equal(t, "false", attrs(0)["filterql.cache.hit"])
	assert.Equal(t, "true", attrs(1)["filterql.cache.hit"])
	assert.Equal(t, "UNEXPECTED_END", attrs(2)["filterql.error.code"])
	assert.Equal(t, "5", attrs(2)["filterql.error.position"])
}

func TestParserMinimalObservability(t *testing.T) {
	p := New(WithObservability(ObservabilityConfig{ServiceName: "minimal-service"}))
	require.NotNil(t, p.Observability())
	assert.False(t, p.Observability().Enabled())

	_, err := p.Parse(context.Background(), "a")
	assert.NoError(t, err)
}

func TestStartServerTiming(t *testing.T) {
	metric := StartServerTiming(context.Background(), "test-operation")
	require.NotNil(t, metric)
	metric.Stop()

	metricWithDesc := StartServerTimingWithDesc(context.Background(), "test-op", "Test operation description")
	require.NotNil(t, metricWithDesc)
	metricWithDesc.Stop()
}

func TestParserQueryTextOptIn(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	p := New(WithObservability(ObservabilityConfig{TracerProvider: tp}))
	_, err := p.Parse(context.Background(), "secret = 'x'")
	require.NoError(t, err)

	for _, kv := range sr.Ended()[0].Attributes() {
		assert.False(t, strings.HasSuffix(string(kv.Key), "query.text"), "query text must not be traced by default")
	}
}
