// Package sqlfilter translates filter expressions into parameterized SQL
// conditions for gorm.
package sqlfilter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/nlstn/go-filterql/internal/observability"
	"github.com/nlstn/go-filterql/internal/query"
)

var (
	// ErrFieldNotAllowed is returned when a filter references a field outside Options.AllowedFields.
	ErrFieldNotAllowed = errors.New("field not allowed")
	// ErrUnsupportedFunction is returned for functions without an SQL mapping.
	ErrUnsupportedFunction = errors.New("function not supported in SQL filters")
	// ErrAggregateFunction is returned for aggregates, which cannot appear in a WHERE clause.
	ErrAggregateFunction = errors.New("aggregate functions are not allowed in filters")
	// ErrUnsupportedOperand is returned when an operand has no SQL translation.
	ErrUnsupportedOperand = errors.New("unsupported operand")
)

// Options controls translation.
type Options struct {
	// Columns maps field names to column names. Unmapped fields use the
	// snake_case form of each dotted segment.
	Columns map[string]string
	// AllowedFields restricts the fields a filter may reference. Empty
	// allows every field.
	AllowedFields []string
	// Functions is consulted to reject aggregates. Defaults to the built-in catalog.
	Functions *query.FunctionCatalog
	// Logger receives debug output of translated conditions.
	Logger *slog.Logger
	// Observability enables translate spans and metrics.
	Observability *observability.Config
}

// Dialect returns the dialect name of db ("sqlite", "postgres", ...).
func Dialect(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	return db.Dialector.Name()
}

func statementContext(db *gorm.DB) context.Context {
	if db != nil && db.Statement != nil && db.Statement.Context != nil {
		return db.Statement.Context
	}
	return context.Background()
}

// Build translates expr into an SQL condition with "?" placeholders and
// its arguments.
func Build(db *gorm.DB, expr query.Expression, opts Options) (string, []any, error) {
	dialect := Dialect(db)
	ctx := statementContext(db)
	tracer := opts.Observability.Tracer()
	metrics := opts.Observability.Metrics()

	ctx, span := tracer.StartTranslate(ctx, dialect)
	defer span.End()

	if err := query.Validate(expr); err != nil {
		tracer.RecordError(span, err)
		metrics.RecordError(ctx, observability.OpTranslate, "invalid_expression")
		return "", nil, err
	}

	t := newTranslator(opts)
	sql, err := t.condition(expr)
	if err != nil {
		tracer.RecordError(span, err)
		metrics.RecordError(ctx, observability.OpTranslate, ErrorCode(err))
		return "", nil, err
	}
	metrics.RecordTranslate(ctx, dialect)
	return sql, t.args, nil
}

// Apply adds the translated condition to db as a WHERE clause.
func Apply(db *gorm.DB, expr query.Expression, opts Options) (*gorm.DB, error) {
	start := time.Now()
	sql, args, err := Build(db, expr, opts)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = loggerFromDB(db)
	}
	logger.Debug("filter translated",
		slog.String("dialect", Dialect(db)),
		slog.String("condition", sql),
		slog.Int("args", len(args)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return setLoggerInDB(db, logger).Where(sql, args...), nil
}

// Explain renders the SELECT statement Apply would run against table, with
// arguments inlined for display. Nothing is executed.
func Explain(db *gorm.DB, table string, expr query.Expression, opts Options) (string, error) {
	sql, args, err := Build(db, expr, opts)
	if err != nil {
		return "", err
	}
	return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []map[string]any
		return tx.Table(table).Where(sql, args...).Find(&rows)
	}), nil
}

// ErrorCode returns a short snake_case label for a translation error.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrFieldNotAllowed):
		return "field_not_allowed"
	case errors.Is(err, ErrAggregateFunction):
		return "aggregate_function"
	case errors.Is(err, ErrUnsupportedFunction):
		return "unsupported_function"
	case errors.Is(err, ErrUnsupportedOperand):
		return "unsupported_operand"
	case errors.Is(err, ErrUnsupportedDialect):
		return "unsupported_dialect"
	}
	return "translate_failed"
}

func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedOperand, fmt.Sprintf(format, args...))
}
