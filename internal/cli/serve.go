package cli

import (
	"github.com/spf13/cobra"

	filterql "github.com/nlstn/go-filterql"
	"github.com/nlstn/go-filterql/internal/server"
)

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the filter HTTP API",
		Long: `Serve starts an HTTP server with the endpoints

  POST /v1/parse      parse a filter, return its tree and metadata
  POST /v1/render     render a JSON tree as canonical filter text
  POST /v1/sql        translate a filter into a SQL condition
  GET  /v1/functions  list the function catalog
  GET  /healthz       health check

It stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parser, err := a.newParser(
				filterql.WithCacheSize(a.v.GetInt("server.cache-size")),
				filterql.WithObservability(filterql.ObservabilityConfig{
					ServiceName:        "filterql",
					ServiceVersion:     version,
					EnableServerTiming: a.v.GetBool("server.server-timing"),
				}),
			)
			if err != nil {
				return err
			}

			srv := server.New(a.serverConfig(), parser, a.logger)
			return srv.StartWithGracefulShutdown(cmd.Context())
		},
	}

	defaults := server.DefaultConfig()
	flags := cmd.Flags()
	flags.String("host", defaults.Host, "address to listen on")
	flags.Int("port", defaults.Port, "port to listen on")
	flags.Bool("cors", defaults.EnableCORS, "send CORS headers")
	flags.Bool("server-timing", false, "add Server-Timing headers to responses")
	flags.Int64("max-body", defaults.MaxBodyBytes, "maximum request body size in bytes")
	flags.Int("cache-size", 1024, "number of parsed filters to cache")
	flags.String("dialect", defaults.DefaultDialect, "SQL dialect for requests that name none")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return a.bindFlags(flags, map[string]string{
			"server.host":          "host",
			"server.port":          "port",
			"server.cors":          "cors",
			"server.server-timing": "server-timing",
			"server.max-body":      "max-body",
			"server.cache-size":    "cache-size",
			"sql.dialect":          "dialect",
		})
	}
	return cmd
}

// serverConfig builds the server configuration from flags, config file
// and environment.
func (a *app) serverConfig() *server.Config {
	cfg := server.DefaultConfig()
	cfg.Host = a.v.GetString("server.host")
	cfg.Port = a.v.GetInt("server.port")
	cfg.EnableCORS = a.v.GetBool("server.cors")
	cfg.MaxBodyBytes = a.v.GetInt64("server.max-body")
	cfg.DefaultDialect = a.v.GetString("sql.dialect")
	cfg.Columns = a.v.GetStringMapString("sql.columns")
	cfg.AllowedFields = a.v.GetStringSlice("sql.allow")
	if dsn := a.v.GetString("sql.dsn"); dsn != "" {
		cfg.DSNs = map[string]string{cfg.DefaultDialect: dsn}
	}
	return cfg
}
