// Package api provides the HTTP REST API server for FinSight.
//
// It exposes the analysis pipeline and the stock screener over JSON:
// single and batch analysis, screening by preset strategy or custom
// filters, API key status, and a health check.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phuslu/log"

	"github.com/finsightlab/finsight/internal/config"
	"github.com/finsightlab/finsight/internal/screener"
	"github.com/finsightlab/finsight/pkg/models"
	"github.com/finsightlab/finsight/pkg/utils"
)

// Analyzer runs stock analyses. Satisfied by *pipeline.Pipeline.
type Analyzer interface {
	AnalyzeStock(ctx context.Context, ticker string) *models.AnalysisResult
	AnalyzeBatch(ctx context.Context, tickers []string) []*models.AnalysisResult
}

// ScreenRunner runs screening queries. Satisfied by *screener.Screener.
type ScreenRunner interface {
	Run(ctx context.Context, strategy screener.Strategy) (*models.ScreenResult, error)
	RunCustom(ctx context.Context, filters []string, view string) (*models.ScreenResult, error)
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	analyzer Analyzer
	screens  ScreenRunner
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, analyzer Analyzer, screens ScreenRunner) *Server {
	srv := &Server{cfg: cfg, analyzer: analyzer, screens: screens}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and blocks until SIGINT/SIGTERM,
// then shuts down gracefully.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
	}
	log.Info().Msg("shutting down API server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/batch", s.handleBatch)
		r.Post("/screen", s.handleScreen)
		r.Get("/screen/strategies", s.handleStrategies)
		r.Get("/config/keys", s.handleConfigKeys)
	})

	return r
}

// ── Request / response types ──

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// AnalyzeRequest is the body for POST /api/v1/analyze.
type AnalyzeRequest struct {
	Ticker string `json:"ticker"`
}

// BatchRequest is the body for POST /api/v1/batch.
type BatchRequest struct {
	Tickers []string `json:"tickers"`
}

// ScreenRequest is the body for POST /api/v1/screen. Either a preset
// strategy name or a custom filter list; Limit caps the returned rows.
type ScreenRequest struct {
	Strategy string   `json:"strategy,omitempty"`
	Filters  []string `json:"filters,omitempty"`
	View     string   `json:"view,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// ── Handlers ──

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status": "ok",
			"time":   utils.FormatDateTime(time.Now()),
		},
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	result := s.analyzer.AnalyzeStock(r.Context(), req.Ticker)
	writeJSON(w, http.StatusOK, APIResponse{Success: result.Success, Data: result,
		Error: result.Error})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Tickers) == 0 {
		writeError(w, http.StatusBadRequest, "tickers are required")
		return
	}

	results := s.analyzer.AnalyzeBatch(r.Context(), req.Tickers)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: results})
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	var req ScreenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Strategy == "" && len(req.Filters) == 0 {
		writeError(w, http.StatusBadRequest, "strategy or filters are required")
		return
	}

	var result *models.ScreenResult
	var err error
	if req.Strategy != "" {
		strategy, lookupErr := screener.StrategyByName(req.Strategy)
		if lookupErr != nil {
			writeError(w, http.StatusBadRequest, lookupErr.Error())
			return
		}
		result, err = s.screens.Run(r.Context(), strategy)
	} else {
		result, err = s.screens.RunCustom(r.Context(), req.Filters, req.View)
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if req.Limit > 0 {
		result.Rows = result.Top(req.Limit)
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: result})
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: screener.StrategyNames()})
}

func (s *Server) handleConfigKeys(w http.ResponseWriter, r *http.Request) {
	statuses := config.CheckAPIKeys(s.cfg)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: statuses})
}

// ── Helpers ──

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{Success: false, Error: msg})
}

// Addr formats the configured listen address.
func Addr(cfg *config.Config) string {
	return fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
}
