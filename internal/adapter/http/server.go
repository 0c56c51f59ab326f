// Package http exposes the risk engine over HTTP alongside the health,
// readiness, and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/hazard-risk-service/internal/analysis"
	"github.com/couchcryptid/hazard-risk-service/internal/chat"
	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/raster"
)

// DefaultMaxUploadBytes bounds the multipart body of an analysis request.
const DefaultMaxUploadBytes int64 = 20 << 20

// Analyzer scores an uploaded image.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, req analysis.Request) (domain.AnalysisResult, error)
}

// EventFetcher returns normalized hazard events.
type EventFetcher interface {
	FetchHazardEvents(ctx context.Context, hazard domain.HazardType, period, magnitude string) ([]domain.HazardEvent, error)
}

// ChatResponder answers questions about a report.
type ChatResponder interface {
	Respond(ctx context.Context, req chat.Request) (chat.Reply, error)
}

// Handlers are the engine operations served under /api. A nil handler
// leaves its routes unregistered.
type Handlers struct {
	Analyzer       Analyzer
	Events         EventFetcher
	Chat           ChatResponder
	MaxUploadBytes int64
}

// Server exposes the engine API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	handlers   Handlers
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the /api routes and /healthz,
// /readyz, and /metrics.
func NewServer(addr string, h Handlers, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	if h.MaxUploadBytes <= 0 {
		h.MaxUploadBytes = DefaultMaxUploadBytes
	}
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		handlers: h,
		logger:   logger,
	}

	if h.Analyzer != nil {
		mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	}
	if h.Events != nil {
		mux.HandleFunc("GET /api/hazard-events", s.handleEvents)
	}
	if h.Chat != nil {
		mux.HandleFunc("POST /api/chat", s.handleChat)
	}
	mux.HandleFunc("GET /api/chat/greeting", handleGreeting)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleAnalyze reads a multipart form with an "image" file and the fields
// hazard, rows, cols, and location.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.handlers.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.handlers.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read image: "+err.Error())
		return
	}

	rows, err := formInt(r, "rows", 3)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cols, err := formInt(r, "cols", 3)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.handlers.Analyzer.AnalyzeImage(r.Context(), analysis.Request{
		Image:    data,
		MIMEType: header.Header.Get("Content-Type"),
		Hazard:   domain.HazardType(r.FormValue("hazard")),
		Rows:     rows,
		Cols:     cols,
		Location: r.FormValue("location"),
	})
	switch {
	case errors.Is(err, analysis.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, raster.ErrDecode):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		s.logger.Error("analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hazard, err := domain.ParseHazardType(q.Get("hazard"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	period := q.Get("period")
	if period == "" {
		period = "day"
	}
	magnitude := q.Get("magnitude")
	if magnitude == "" {
		magnitude = "all"
	}

	events, err := s.handlers.Events.FetchHazardEvents(r.Context(), hazard, period, magnitude)
	if err != nil {
		s.logger.Warn("hazard event fetch failed", "error", err, "hazard", hazard, "period", period)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat request: "+err.Error())
		return
	}

	reply, err := s.handlers.Chat.Respond(r.Context(), req)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("chat failed", "error", err)
		writeError(w, http.StatusInternalServerError, "chat failed")
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func handleGreeting(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hazard, err := domain.ParseHazardType(q.Get("hazard"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chat.Reply{Text: chat.Greeting(hazard, q.Get("region"))})
}

func formInt(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
