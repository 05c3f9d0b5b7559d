package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	filterql "github.com/nlstn/go-filterql"
	"github.com/nlstn/go-filterql/internal/etag"
	"github.com/nlstn/go-filterql/internal/observability"
	"github.com/nlstn/go-filterql/internal/preference"
	"github.com/nlstn/go-filterql/internal/sqlfilter"
)

type errorBody = filterql.ErrorDetail

// Error codes produced by the HTTP layer itself.
const (
	codeBadRequest       filterql.ErrorCode = "BAD_REQUEST"
	codeBodyTooLarge     filterql.ErrorCode = "BODY_TOO_LARGE"
	codeNotFound         filterql.ErrorCode = "NOT_FOUND"
	codeMethodNotAllowed filterql.ErrorCode = "METHOD_NOT_ALLOWED"
)

type parseRequest struct {
	Filter string `json:"filter"`
}

type parseResponse struct {
	Canonical string                 `json:"canonical"`
	AST       *filterql.Node         `json:"ast,omitempty"`
	Metadata  filterql.QueryMetadata `json:"metadata"`
	Tokens    int                    `json:"tokens"`
	Depth     int                    `json:"depth"`
	Cached    bool                   `json:"cached"`
}

type renderRequest struct {
	AST *filterql.Node `json:"ast"`
}

type renderResponse struct {
	Canonical string `json:"canonical"`
}

type sqlRequest struct {
	Filter  string `json:"filter"`
	Dialect string `json:"dialect,omitempty"`
	Table   string `json:"table,omitempty"`
}

type sqlResponse struct {
	Dialect   string `json:"dialect"`
	Condition string `json:"condition"`
	Args      []any  `json:"args"`
	Statement string `json:"statement,omitempty"`
}

type functionInfo struct {
	filterql.FunctionSpec
	Arity string `json:"arity"`
}

// handleParse parses a filter and returns its tree and metadata.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.writeParse(w, r, req.Filter, false)
}

// handleParseQuery is the cacheable form of handleParse: the filter comes
// from the query string and If-None-Match is honoured.
func (s *Server) handleParseQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("filter") {
		writeError(w, http.StatusBadRequest, errorBody{Code: codeBadRequest, Message: "missing filter query parameter"})
		return
	}
	s.writeParse(w, r, query.Get("filter"), true)
}

func (s *Server) writeParse(w http.ResponseWriter, r *http.Request, input string, conditional bool) {
	res, err := s.parser.Parse(r.Context(), input)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	pref := preference.ParsePrefer(r)
	variant := etag.VariantFull
	if pref.ReturnMinimal {
		variant = etag.VariantMinimal
	}
	canonical := res.Canonical()
	tag := etag.Generate(canonical, variant)
	w.Header().Set("ETag", tag)
	w.Header().Add("Vary", "Prefer")
	if applied := pref.Applied(); applied != "" {
		w.Header().Set("Preference-Applied", applied)
	}
	if conditional && !etag.NoneMatch(r.Header.Get("If-None-Match"), tag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	out := parseResponse{
		Canonical: canonical,
		Metadata:  res.Metadata,
		Tokens:    res.Stats.Tokens,
		Depth:     res.Stats.Depth,
		Cached:    res.Cached,
	}
	if !pref.ReturnMinimal {
		if out.AST, err = filterql.ToNode(res.Expr); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRender turns a JSON tree back into canonical filter text.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !s.decode(w, r, &req) {
		return
	}

	tracer := s.obs.Tracer()
	ctx, span := tracer.StartRender(r.Context())
	defer span.End()

	if req.AST == nil {
		err := fmt.Errorf("%w: missing ast", filterql.ErrInvalidNode)
		tracer.RecordError(span, err)
		s.fail(w, r.WithContext(ctx), err)
		return
	}
	expr, err := req.AST.Expression()
	if err != nil {
		tracer.RecordError(span, err)
		s.fail(w, r.WithContext(ctx), err)
		return
	}

	writeJSON(w, http.StatusOK, renderResponse{Canonical: filterql.Render(expr)})
}

// handleSQL translates a filter into a WHERE condition for a SQL dialect.
func (s *Server) handleSQL(w http.ResponseWriter, r *http.Request) {
	var req sqlRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	if req.Table != "" && !filterql.IsIdentifier(req.Table) {
		writeError(w, http.StatusBadRequest, errorBody{Code: codeBadRequest, Message: fmt.Sprintf("invalid table name %q", req.Table)})
		return
	}

	res, err := s.parser.Parse(ctx, req.Filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	db, err := s.database(req.Dialect)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tx := db.WithContext(ctx)
	opts := sqlfilter.Options{
		Columns:       s.config.Columns,
		AllowedFields: s.config.AllowedFields,
		Functions:     s.parser.Functions(),
		Logger:        s.logger,
		Observability: s.obs,
	}

	condition, args, err := sqlfilter.Build(tx, res.Expr, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if args == nil {
		args = []any{}
	}
	out := sqlResponse{Dialect: sqlfilter.Dialect(db), Condition: condition, Args: args}

	if req.Table != "" {
		out.Statement, err = sqlfilter.Explain(tx, req.Table, res.Expr, opts)
		if err != nil {
			s.fail(w, r, err)
			return
		}
	}

	observability.FlushDBTiming(ctx)
	writeJSON(w, http.StatusOK, out)
}

// handleFunctions lists the function catalog.
func (s *Server) handleFunctions(w http.ResponseWriter, r *http.Request) {
	specs := s.parser.Functions().Specs()
	out := make([]functionInfo, len(specs))
	for i, spec := range specs {
		out[i] = functionInfo{FunctionSpec: spec, Arity: spec.ArityText()}
	}
	writeJSON(w, http.StatusOK, map[string]any{"functions": out})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleOptions handles CORS preflight requests
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	// CORS headers are already set by middleware
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON request body into v, writing an error response and
// returning false when that fails.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if s.config.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errorBody{Code: codeBodyTooLarge, Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
			return false
		}
		writeError(w, http.StatusBadRequest, errorBody{Code: codeBadRequest, Message: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// fail writes err as a JSON error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := filterql.MapErrorToHTTPStatus(err)
	body := filterql.Describe(err)

	switch {
	case errors.Is(err, sqlfilter.ErrUnsupportedDialect):
		status = http.StatusBadRequest
		body.Code = filterql.ErrorCode(strings.ToUpper(sqlfilter.ErrorCode(err)))
	case errors.Is(err, sqlfilter.ErrFieldNotAllowed),
		errors.Is(err, sqlfilter.ErrUnsupportedFunction),
		errors.Is(err, sqlfilter.ErrAggregateFunction),
		errors.Is(err, sqlfilter.ErrUnsupportedOperand):
		status = http.StatusUnprocessableEntity
		body.Code = filterql.ErrorCode(strings.ToUpper(sqlfilter.ErrorCode(err)))
	}

	if status >= http.StatusInternalServerError {
		observability.LoggerWithTrace(r.Context(), s.logger).Error("request failed",
			slog.String(observability.LogFieldRequestID, RequestID(r.Context())),
			slog.String(observability.LogFieldError, err.Error()),
		)
		body.Message = http.StatusText(status)
	}
	writeError(w, status, body)
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	writeJSON(w, status, map[string]errorBody{"error": body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
