// Package server provides the HTTP API for résumé analysis.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/logger"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/pipeline"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/queue"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/storage"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/store"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	defaultListen       = ":8080"
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 120 * time.Second
	shutdownTimeout     = 30 * time.Second
)

// DocumentAnalyzer runs the analysis pipeline on a stored résumé.
type DocumentAnalyzer interface {
	AnalyzeDocument(ctx context.Context, req pipeline.DocumentRequest) (*pipeline.Report, error)
}

// Uploader hands out presigned upload URLs.
type Uploader interface {
	PresignUpload(ctx context.Context, ext, contentType string) (*storage.Upload, error)
}

// RoleLister exposes the configured roles.
type RoleLister interface {
	Roles() []string
}

type Config struct {
	Listen       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Deps wires the server. Uploads, Reports and Queue are optional; their endpoints answer
// 503 when missing.
type Deps struct {
	Analyzer DocumentAnalyzer
	Roles    RoleLister
	Uploads  Uploader
	Reports  store.ReportStore
	Queue    queue.Sender
	Logger   *zap.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	analyzer   DocumentAnalyzer
	roles      RoleLister
	uploads    Uploader
	reports    store.ReportStore
	queue      queue.Sender
	validator  *validator.Validate
	logger     *zap.Logger
}

func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Analyzer == nil {
		return nil, errors.New("analyzer is required")
	}
	if deps.Roles == nil {
		return nil, errors.New("role catalog is required")
	}

	s := &Server{
		analyzer:  deps.Analyzer,
		roles:     deps.Roles,
		uploads:   deps.Uploads,
		reports:   deps.Reports,
		queue:     deps.Queue,
		validator: validator.New(),
		logger:    logger.OrNop(deps.Logger),
	}

	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /roles", s.handleRoles)
	mux.HandleFunc("GET /upload-url", s.handleUploadURL)
	mux.HandleFunc("GET /getS3Url", s.handleUploadURL)
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("POST /analyses", s.handleEnqueue)
	mux.HandleFunc("GET /analyses/latest", s.handleLatest)
	mux.HandleFunc("GET /analyses/{id}", s.handleGetAnalysis)

	return s.withLogging(s.withCORS(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("listen", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}
