package sqlfilter

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported dialect names.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// ErrUnsupportedDialect is returned by Open for unknown dialect names.
var ErrUnsupportedDialect = errors.New("unsupported SQL dialect")

const defaultPostgresDSN = "host=localhost user=filterql dbname=filterql sslmode=disable"

// Open returns a gorm handle for rendering conditions in the given dialect.
// SQLite opens dsn (an in-memory database when empty). Postgres handles
// are dry-run only: no connection is made and statements are never sent.
func Open(dialect, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	switch strings.ToLower(dialect) {
	case DialectSQLite, "sqlite3", "":
		if dsn == "" {
			dsn = ":memory:"
		}
		return gorm.Open(sqlite.Open(dsn), cfg)
	case DialectPostgres, "postgresql", "pg":
		if dsn == "" {
			dsn = defaultPostgresDSN
		}
		cfg.DryRun = true
		cfg.DisableAutomaticPing = true
		return gorm.Open(postgres.New(postgres.Config{DSN: dsn}), cfg)
	}
	return nil, fmt.Errorf("%w %q", ErrUnsupportedDialect, dialect)
}
