// Package cli implements the filterql command line tool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	filterql "github.com/nlstn/go-filterql"
)

// ErrReported is returned when a command has already written its failure
// to the output. Callers should exit non-zero without printing it again.
var ErrReported = errors.New("failure reported")

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// Build information, set with -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// app carries the state shared by all commands.
type app struct {
	v       *viper.Viper
	cfgFile string
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	logger  *slog.Logger
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		v:      viper.New(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// NewRootCommand returns the filterql command tree wired to the process's
// standard streams.
func NewRootCommand() *cobra.Command {
	return newApp(os.Stdin, os.Stdout, os.Stderr).rootCommand()
}

// Execute runs the command line tool.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filterql",
		Short: "Parse, check and translate filter expressions",
		Long: `filterql parses boolean filter expressions such as

  age > 18 AND (status IN ("active", "trial") OR NOT banned)

into a syntax tree, reports the fields, operators and functions they use,
prints them in canonical form and translates them into SQL conditions.

Filters are read from the arguments, or from standard input when none are
given or the argument is "-".`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(); err != nil {
				return err
			}
			a.initLogging()
			switch a.format() {
			case formatText, formatJSON, formatYAML:
				return nil
			}
			return fmt.Errorf("unknown output format %q (want text, json or yaml)", a.format())
		},
	}
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./filterql.yaml or $HOME/.filterql/config.yaml)")
	flags.String("log-level", "disabled", "log level (debug, info, warn, error, disabled)")
	flags.StringP("output", "o", formatText, "output format (text, json, yaml)")
	flags.String("functions", "", "YAML function catalog extending the built-in functions")
	flags.Bool("strict", false, "reject unknown functions and wrong argument counts")
	flags.Int("max-depth", filterql.DefaultMaxDepth, "maximum nesting of groups, NOT and function calls")
	flags.Int("max-length", 0, "maximum filter length in bytes (0 disables the limit)")
	flags.Bool("fold-identifiers", false, "lower-case field names")
	flags.Bool("no-color", false, "disable coloured output")

	for _, name := range []string{"log-level", "output", "functions", "strict", "max-depth", "max-length", "fold-identifiers", "no-color"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	cmd.AddCommand(
		a.parseCommand(),
		a.checkCommand(),
		a.fmtCommand(),
		a.tokensCommand(),
		a.sqlCommand(),
		a.functionsCommand(),
		a.serveCommand(),
	)
	return cmd
}

// initConfig reads the config file, .env and FILTERQL_ environment variables.
func (a *app) initConfig() error {
	_ = godotenv.Load()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(filepath.Join(home, ".filterql"))
		}
		a.v.SetConfigType("yaml")
		a.v.SetConfigName("filterql")
	}

	a.v.SetEnvPrefix("FILTERQL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// initLogging configures the logger from the log-level setting.
func (a *app) initLogging() {
	var level slog.Level
	switch strings.ToLower(a.v.GetString("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		a.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
}

func (a *app) format() string {
	return strings.ToLower(a.v.GetString("output"))
}

// newParser builds a parser from the global flags.
func (a *app) newParser(extra ...filterql.Option) (*filterql.Parser, error) {
	opts := []filterql.Option{
		filterql.WithLogger(a.logger),
		filterql.WithMaxDepth(a.v.GetInt("max-depth")),
		filterql.WithMaxLength(a.v.GetInt("max-length")),
	}

	catalog, err := a.functions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, filterql.WithFunctions(catalog))

	if a.v.GetBool("strict") {
		opts = append(opts, filterql.WithStrictFunctions())
	}
	if a.v.GetBool("fold-identifiers") {
		opts = append(opts, filterql.WithFoldIdentifiers())
	}
	return filterql.New(append(opts, extra...)...), nil
}

// functions returns the built-in catalog extended with the --functions file.
func (a *app) functions() (*filterql.FunctionCatalog, error) {
	path := a.v.GetString("functions")
	if path == "" {
		return filterql.DefaultFunctions(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open function catalog: %w", err)
	}
	defer f.Close()

	catalog, err := filterql.LoadFunctionCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.logger.Debug("function catalog loaded", slog.String("path", path), slog.Int("functions", catalog.Len()))
	return catalog, nil
}

// bindFlags binds config keys to command flags.
func (a *app) bindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// readFilter joins the arguments, or reads standard input when there are
// none or the only argument is "-".
func (a *app) readFilter(args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read filter from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
