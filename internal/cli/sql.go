package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	filterql "github.com/nlstn/go-filterql"
	"github.com/nlstn/go-filterql/internal/sqlfilter"
)

type sqlOutput struct {
	Dialect   string `json:"dialect" yaml:"dialect"`
	Condition string `json:"condition" yaml:"condition"`
	Args      []any  `json:"args" yaml:"args"`
	Statement string `json:"statement,omitempty" yaml:"statement,omitempty"`
}

func (a *app) sqlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql [filter]",
		Short: "Translate a filter into a SQL WHERE condition",
		Long: `Sql translates a filter into a parameterized SQL condition for the
chosen dialect. With --table the full SELECT statement is printed with
its arguments inlined. Nothing is executed; postgres output needs no
running server.

Field names are converted to snake_case columns unless --column maps them.`,
		Example: `  filterql sql 'userName startswith "a" and age >= 18'
  filterql sql --dialect postgres --table users --column name=full_name 'name = "x"'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := a.readFilter(args)
			if err != nil {
				return err
			}
			table := a.v.GetString("sql.table")
			if table != "" && !filterql.IsIdentifier(table) {
				return fmt.Errorf("invalid table name %q", table)
			}

			parser, err := a.newParser()
			if err != nil {
				return err
			}
			res, err := parser.Parse(cmd.Context(), input)
			if err != nil {
				return a.reportError(input, err)
			}

			db, err := sqlfilter.Open(a.v.GetString("sql.dialect"), a.v.GetString("sql.dsn"))
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			tx := db.WithContext(cmd.Context())
			opts := sqlfilter.Options{
				Columns:       a.v.GetStringMapString("sql.columns"),
				AllowedFields: a.v.GetStringSlice("sql.allow"),
				Functions:     parser.Functions(),
				Logger:        a.logger,
			}

			condition, sqlArgs, err := sqlfilter.Build(tx, res.Expr, opts)
			if err != nil {
				return err
			}
			out := sqlOutput{Dialect: sqlfilter.Dialect(db), Condition: condition, Args: sqlArgs}
			if out.Args == nil {
				out.Args = []any{}
			}
			if table != "" {
				if out.Statement, err = sqlfilter.Explain(tx, table, res.Expr, opts); err != nil {
					return err
				}
			}

			if ok, err := a.print(out); ok {
				return err
			}
			if out.Statement != "" {
				fmt.Fprintln(a.stdout, out.Statement)
				return nil
			}
			fmt.Fprintln(a.stdout, out.Condition)
			if len(out.Args) > 0 {
				fmt.Fprintf(a.stdout, "args: %s\n", formatArgs(out.Args))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("dialect", sqlfilter.DialectSQLite, "SQL dialect (sqlite, postgres)")
	flags.String("dsn", "", "connection string passed to the dialect's driver")
	flags.String("table", "", "print a full SELECT statement for this table")
	flags.StringToString("column", nil, "map a field to a column, e.g. --column name=full_name")
	flags.StringSlice("allow", nil, "only accept these fields")

	// Bound when the command runs: serve binds sql.dialect to its own flag.
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return a.bindFlags(flags, map[string]string{
			"sql.dialect": "dialect",
			"sql.dsn":     "dsn",
			"sql.table":   "table",
			"sql.columns": "column",
			"sql.allow":   "allow",
		})
	}
	return cmd
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case string:
			parts[i] = strconv.Quote(v)
		case fmt.Stringer:
			parts[i] = v.String()
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
