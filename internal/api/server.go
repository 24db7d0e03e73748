// Package api exposes validation and adjustment over HTTP. Tables travel as
// raw TSV text inside JSON request bodies; responses carry records, summary
// counters, and every diagnostic raised.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gsradjust/domain/adjust"
	"gsradjust/domain/core"
	"gsradjust/domain/result"
	"gsradjust/internal"
	engine "gsradjust/internal/adjust"
	"gsradjust/internal/schema"
	"gsradjust/internal/tsv"
)

// Server wires the validator and the adjustment engine behind a chi router.
type Server struct {
	engine    *engine.Engine
	validator *schema.Validator
	log       *internal.Logger
	router    chi.Router
}

// NewServer creates the HTTP server around an engine.
func NewServer(eng *engine.Engine, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		engine:    eng,
		validator: schema.NewValidator(),
		log:       logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Post("/adjust", s.handleAdjust)
	})
	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving the API on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("adjustment API listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

type validateRequest struct {
	Table string `json:"table"`
}

type validateResponse struct {
	Valid      bool               `json:"valid"`
	Report     *schema.Report     `json:"report,omitempty"`
	Missing    []string           `json:"missing_columns,omitempty"`
	Violations []schema.Violation `json:"violations,omitempty"`
}

type adjustRequest struct {
	Real     string   `json:"real"`
	Randoms  []string `json:"randoms"`
	ToolName string   `json:"tool_name"`
}

type adjustResponse struct {
	ID          core.ID                 `json:"id"`
	ToolName    string                  `json:"tool_name"`
	Records     []adjust.AdjustedRecord `json:"records"`
	Summary     adjust.Summary          `json:"summary"`
	Diagnostics []adjust.Diagnostic     `json:"diagnostics"`
}

type errorResponse struct {
	Error      string             `json:"error"`
	Missing    []string           `json:"missing_columns,omitempty"`
	Violations []schema.Violation `json:"violations,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}

	_, report, err := s.parseAndValidate(req.Table)
	if err != nil {
		var schemaErr *schema.Error
		if errors.As(err, &schemaErr) {
			writeJSON(w, http.StatusOK, validateResponse{
				Valid:      false,
				Missing:    schemaErr.Missing,
				Violations: schemaErr.Violations,
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true, Report: report})
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}
	tool := req.ToolName
	if tool == "" {
		tool = "unknown"
	}

	real, _, err := s.parseAndValidate(req.Real)
	if err != nil {
		s.writeError(w, err)
		return
	}
	randoms := make([]*result.Table, 0, len(req.Randoms))
	for _, raw := range req.Randoms {
		t, _, err := s.parseAndValidate(raw)
		if err != nil {
			s.writeError(w, err)
			return
		}
		randoms = append(randoms, t)
	}

	res, err := s.engine.Adjust(real, randoms, tool)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adjustResponse{
		ID:          res.ID,
		ToolName:    res.ToolName,
		Records:     res.Records,
		Summary:     res.Summary,
		Diagnostics: res.Diagnostics,
	})
}

func (s *Server) parseAndValidate(text string) (*result.Table, *schema.Report, error) {
	raw, err := tsv.Read(strings.NewReader(text))
	if err != nil {
		return nil, nil, err
	}
	return s.validator.Validate(raw)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var schemaErr *schema.Error
	switch {
	case errors.As(err, &schemaErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:      err.Error(),
			Missing:    schemaErr.Missing,
			Violations: schemaErr.Violations,
		})
	case errors.Is(err, core.ErrNoNullData):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		s.log.Error("adjustment request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
