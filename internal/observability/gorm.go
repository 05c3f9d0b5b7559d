package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	gormSpanKey        = "filterql:gorm:span"
	gormStartKey       = "filterql:gorm:start"
	gormTimingStartKey = "filterql:gorm:timing_start"
)

// readChain is one of the gorm callback chains a filtered read goes through.
type readChain struct {
	callback  string // gorm's own callback, e.g. "gorm:query"
	operation string
}

// Translated filters only read, so the create, update and delete chains
// are left alone.
var readChains = []readChain{
	{callback: "gorm:query", operation: "SELECT"},
	{callback: "gorm:row", operation: "ROW"},
	{callback: "gorm:raw", operation: "RAW"},
}

// around registers before and after hooks on both sides of the chain's
// gorm callback.
func (c readChain) around(db *gorm.DB, name string, before, after func(*gorm.DB)) error {
	name += "_" + c.operation
	var err error
	switch c.callback {
	case "gorm:query":
		if err = db.Callback().Query().Before(c.callback).Register(name+"_before", before); err == nil {
			err = db.Callback().Query().After(c.callback).Register(name+"_after", after)
		}
	case "gorm:row":
		if err = db.Callback().Row().Before(c.callback).Register(name+"_before", before); err == nil {
			err = db.Callback().Row().After(c.callback).Register(name+"_after", after)
		}
	default:
		if err = db.Callback().Raw().Before(c.callback).Register(name+"_before", before); err == nil {
			err = db.Callback().Raw().After(c.callback).Register(name+"_after", after)
		}
	}
	return err
}

// RegisterGORMCallbacks traces every statement db runs for a filter. It
// does nothing unless cfg enables database tracing.
func RegisterGORMCallbacks(db *gorm.DB, cfg *Config) error {
	if !cfg.DBTracingEnabled() {
		return nil
	}

	tracer := cfg.Tracer()
	metrics := cfg.Metrics()
	for _, chain := range readChains {
		operation := chain.operation
		err := chain.around(db, "filterql:trace",
			func(tx *gorm.DB) { startStatementSpan(tx, tracer, operation) },
			func(tx *gorm.DB) { endStatementSpan(tx, tracer, metrics, operation) },
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// RegisterServerTimingCallbacks adds the time db spends on statements to
// the request's "db" Server-Timing metric. It works without OpenTelemetry.
func RegisterServerTimingCallbacks(db *gorm.DB) error {
	for _, chain := range readChains {
		if err := chain.around(db, "filterql:timing", startStatementTimer, addStatementTime); err != nil {
			return err
		}
	}
	return nil
}

func startStatementTimer(tx *gorm.DB) {
	tx.InstanceSet(gormTimingStartKey, time.Now())
}

func addStatementTime(tx *gorm.DB) {
	v, ok := tx.InstanceGet(gormTimingStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok || tx.Statement == nil || tx.Statement.Context == nil {
		return
	}
	AddDBTime(tx.Statement.Context, time.Since(start))
}

func startStatementSpan(tx *gorm.DB, tracer *Tracer, operation string) {
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := tracer.StartDBQuery(ctx, tx.Dialector.Name(), operation)
	tx.Statement.Context = ctx
	tx.InstanceSet(gormSpanKey, span)
	tx.InstanceSet(gormStartKey, time.Now())
}

func endStatementSpan(tx *gorm.DB, tracer *Tracer, metrics *Metrics, operation string) {
	v, ok := tx.InstanceGet(gormSpanKey)
	if !ok {
		return
	}
	span, ok := v.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if table := tx.Statement.Table; table != "" {
		span.SetAttributes(semconv.DBCollectionName(table))
	}
	span.SetAttributes(attribute.Int64(AttrRowsAffected, tx.RowsAffected))
	tracer.RecordError(span, tx.Error)

	if v, ok := tx.InstanceGet(gormStartKey); ok {
		if start, ok := v.(time.Time); ok {
			metrics.RecordDBQuery(tx.Statement.Context, operation, time.Since(start))
		}
	}
}
