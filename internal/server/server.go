package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/devscan/internal/model"
	"github.com/nao1215/devscan/internal/report"
)

// DefaultMaxRequestBody bounds the size of API request bodies.
const DefaultMaxRequestBody = 1 << 20 // 1MB

// DownloadFilename is the attachment name used by the download endpoint.
const DownloadFilename = "DevScan_Report.json"

// Scanner runs one scan. *scan.Orchestrator satisfies it.
type Scanner interface {
	Run(ctx context.Context, req model.ScanRequest) (*model.Report, error)
}

// Server exposes the scanner over HTTP.
//
// Design decision: The server holds no scan state. Each POST /api/scan runs
// a complete synchronous scan, and /api/download echoes whatever report the
// client posts, so any number of clients can use one server independently.
type Server struct {
	scanner        Scanner
	logger         *slog.Logger
	metrics        http.Handler
	scanOptions    model.ScanOptions
	maxRequestBody int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsHandler serves h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithScanOptions sets the options applied to every API scan.
func WithScanOptions(opts model.ScanOptions) Option {
	return func(s *Server) {
		s.scanOptions = opts
	}
}

// WithMaxRequestBody sets the request body limit in bytes.
func WithMaxRequestBody(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxRequestBody = n
		}
	}
}

// New creates a Server backed by scanner.
func New(scanner Scanner, opts ...Option) *Server {
	s := &Server{
		scanner:        scanner,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		scanOptions:    model.DefaultScanOptions(),
		maxRequestBody: DefaultMaxRequestBody,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed and logged HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/scan", s.handleScan)
	mux.HandleFunc("POST /api/download", s.handleDownload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return s.logRequests(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully, letting in-flight scans finish within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// scanRequest is the body of POST /api/scan.
type scanRequest struct {
	URL string `json:"url"`
}

// errorResponse is the body of every API error.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var body scanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxRequestBody)).Decode(&body); err != nil {
		s.writeBodyError(w, err)
		return
	}
	if body.URL == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No URL provided"})
		return
	}

	rep, err := s.scanner.Run(r.Context(), model.ScanRequest{StartURL: body.URL, Options: s.scanOptions})
	if err != nil {
		if model.IsInputError(err) {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.logger.Error("scan failed", "url", body.URL, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Scan failed: " + err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, report.NewResponse(rep))
}

// handleDownload echoes the posted report as a pretty-printed attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxRequestBody))
	if err != nil {
		s.writeBodyError(w, err)
		return
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, bytes.TrimSpace(raw), "", "  "); err != nil {
		s.writeBodyError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", DownloadFilename))
	w.WriteHeader(http.StatusOK)
	_, _ = pretty.WriteTo(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeBodyError maps a request body failure to 413 or 400.
func (s *Server) writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeJSON(w, http.StatusRequestEntityTooLarge,
			errorResponse{Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
		return
	}
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}
