// Package server exposes the compatibility checker over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/velofit/fitcheck/internal/pipeline"
	"github.com/velofit/fitcheck/internal/store"
	"github.com/velofit/fitcheck/pkg/airtable"
)

// Options configures the HTTP server behavior.
type Options struct {
	// AccessPassword gates all /api routes when non-empty. Clients send it
	// in the X-Access-Password header.
	AccessPassword string
	// RateLimitRPS throttles /api/check per client IP. Zero disables.
	RateLimitRPS   float64
	RateLimitBurst int
	// Airtable bug report destination. Reports are rejected when unset.
	AirtableBaseID  string
	AirtableTableID string
}

// Checker runs one compatibility check. *pipeline.Checker satisfies it.
type Checker interface {
	Check(ctx context.Context, query pipeline.Query) (*pipeline.Result, error)
}

// Server wires the checker, the audit store and the bug report client into
// an HTTP handler.
type Server struct {
	checker  Checker
	store    store.Store
	airtable airtable.Client
	opts     Options
}

// New creates a Server. store and airtable may be nil; the corresponding
// endpoints then degrade (audit is skipped, reports return 503).
func New(checker Checker, st store.Store, at airtable.Client, opts Options) *Server {
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 1
	}
	return &Server{checker: checker, store: st, airtable: at, opts: opts}
}

// Handler builds the chi router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Access-Password"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Use(passwordGate(s.opts.AccessPassword))
		api.With(rateLimit(s.opts.RateLimitRPS, s.opts.RateLimitBurst)).
			Post("/check", s.handleCheck)
		api.Post("/report", s.handleReport)
		api.Get("/checks", s.handleListChecks)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var query pipeline.Query
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	result, err := s.checker.Check(r.Context(), query)
	if err != nil {
		if errors.Is(err, pipeline.ErrMissingInput) {
			writeError(w, http.StatusBadRequest, "bikeInfo and productUrl are required")
			return
		}
		zap.L().Error("check failed",
			zap.String("product_url", query.ProductURL),
			zap.Error(err),
		)
		s.audit(r, query, nil, time.Since(start), err)
		writeError(w, http.StatusBadGateway, "compatibility check failed")
		return
	}

	s.audit(r, query, result, time.Since(start), nil)
	writeJSON(w, http.StatusOK, result)
}

// audit saves the check run, best-effort.
func (s *Server) audit(r *http.Request, query pipeline.Query, result *pipeline.Result, elapsed time.Duration, checkErr error) {
	if s.store == nil {
		return
	}
	run := store.CheckRun{
		BikeInfo:   query.BikeInfo,
		ProductURL: query.ProductURL,
		ProductKey: query.ProductKey(),
		DurationMS: elapsed.Milliseconds(),
	}
	if result != nil {
		run.ProductH1 = result.ProductH1
		run.Compatibility = string(result.Verdict.Compatibility)
		run.Confidence = string(result.Verdict.Confidence)
		run.Argument = result.Verdict.Argument
	}
	if checkErr != nil {
		run.Error = checkErr.Error()
	}
	if err := s.store.SaveCheck(r.Context(), run); err != nil {
		zap.L().Warn("audit save failed", zap.Error(err))
	}
}

// reportRequest is a user bug report against a previous check.
type reportRequest struct {
	BikeInfo    string `json:"bikeInfo"`
	ProductURL  string `json:"productUrl"`
	APIResponse string `json:"apiResponse"`
	Comment     string `json:"comment"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.airtable == nil || s.opts.AirtableBaseID == "" || s.opts.AirtableTableID == "" {
		writeError(w, http.StatusServiceUnavailable, "bug reports are not configured")
		return
	}

	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Comment == "" {
		writeError(w, http.StatusBadRequest, "comment is required")
		return
	}

	rec, err := s.airtable.CreateRecord(r.Context(), s.opts.AirtableBaseID, s.opts.AirtableTableID, map[string]any{
		"Bike Info":    req.BikeInfo,
		"Product URL":  req.ProductURL,
		"API Response": req.APIResponse,
		"Comment":      req.Comment,
	})
	if err != nil {
		zap.L().Error("bug report failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "bug report could not be filed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": rec.ID})
}

func (s *Server) handleListChecks(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "audit store is not configured")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	runs, err := s.store.ListChecks(r.Context(), limit)
	if err != nil {
		zap.L().Error("list checks failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list checks")
		return
	}
	if runs == nil {
		runs = []store.CheckRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"checks": runs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
