package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	filterql "github.com/nlstn/go-filterql"
	"github.com/nlstn/go-filterql/internal/observability"
	"github.com/nlstn/go-filterql/internal/sqlfilter"
)

// Config holds the server configuration
type Config struct {
	Host            string
	Port            int
	EnableCORS      bool
	MaxBodyBytes    int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// DefaultDialect is used by /v1/sql requests that name no dialect.
	DefaultDialect string
	// DSNs maps dialect names to connection strings for sqlfilter.Open.
	DSNs map[string]string
	// Columns maps field names to column names for every SQL translation.
	Columns map[string]string
	// AllowedFields restricts the fields SQL translation accepts.
	AllowedFields []string
}

// DefaultConfig returns a default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            8080,
		EnableCORS:      true,
		MaxBodyBytes:    1 << 20,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		DefaultDialect:  sqlfilter.DialectSQLite,
	}
}

// Server serves the filter HTTP API.
type Server struct {
	config *Config
	parser *filterql.Parser
	logger *slog.Logger
	obs    *observability.Config

	mu  sync.Mutex
	dbs map[string]*gorm.DB

	handler  http.Handler
	server   *http.Server
	listener net.Listener
}

// New creates a server that parses filters with parser. A nil parser
// selects filterql.New() and a nil logger selects slog.Default().
func New(config *Config, parser *filterql.Parser, logger *slog.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if parser == nil {
		parser = filterql.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: config,
		parser: parser,
		logger: logger,
		obs:    parser.Observability(),
		dbs:    make(map[string]*gorm.DB),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the API's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	router := mux.NewRouter()

	if s.config.EnableCORS {
		router.Use(s.corsMiddleware)
	}
	router.Use(s.requestIDMiddleware)
	router.Use(s.loggingMiddleware)
	router.Use(observability.HTTPMiddleware(s.obs))
	router.Use(observability.ServerTimingMiddleware(s.obs))

	api := router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/parse", s.handleParse).Methods(http.MethodPost)
	api.HandleFunc("/parse", s.handleParseQuery).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/render", s.handleRender).Methods(http.MethodPost)
	api.HandleFunc("/sql", s.handleSQL).Methods(http.MethodPost)
	api.HandleFunc("/functions", s.handleFunctions).Methods(http.MethodGet)

	if s.config.EnableCORS {
		api.Methods(http.MethodOptions).HandlerFunc(s.handleOptions)
	}

	router.HandleFunc("/healthz", s.healthCheck).Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errorBody{Code: codeNotFound, Message: "no route for " + r.URL.Path})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errorBody{Code: codeMethodNotAllowed, Message: r.Method + " is not allowed on " + r.URL.Path})
	})
	return router
}

// database returns the shared handle for dialect, opening it on first use.
func (s *Server) database(dialect string) (*gorm.DB, error) {
	if dialect == "" {
		dialect = s.config.DefaultDialect
	}
	key := strings.ToLower(dialect)

	s.mu.Lock()
	defer s.mu.Unlock()
	if db, ok := s.dbs[key]; ok {
		return db, nil
	}

	db, err := sqlfilter.Open(key, s.config.DSNs[key])
	if err != nil {
		return nil, err
	}
	if err := observability.RegisterGORMCallbacks(db, s.obs); err != nil {
		return nil, fmt.Errorf("failed to register tracing callbacks: %w", err)
	}
	if s.obs != nil && s.obs.ServerTimingEnabled() {
		if err := observability.RegisterServerTimingCallbacks(db); err != nil {
			return nil, fmt.Errorf("failed to register server timing callbacks: %w", err)
		}
	}
	s.dbs[key] = db
	return db, nil
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.logger.Info("starting filterql server",
		slog.String("addr", ln.Addr().String()),
		slog.Bool("cors", s.config.EnableCORS),
		slog.String("dialect", s.config.DefaultDialect),
	)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server failed", slog.String(observability.LogFieldError, err.Error()))
		}
	}()
	return nil
}

// Stop stops the HTTP server gracefully and closes database handles.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		s.logger.Info("shutting down server")
		err = s.server.Shutdown(ctx)
		s.server = nil
		s.listener = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, db := range s.dbs {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
	}
	s.dbs = make(map[string]*gorm.DB)
	return err
}

// StartWithGracefulShutdown serves until SIGINT or SIGTERM.
func (s *Server) StartWithGracefulShutdown(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// Addr returns the listening address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
