// Package httpapi serves analyses over HTTP. Requests carry a YAML model,
// responses are JSON unless another rendering is asked for.
package httpapi

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"relana/adapters/yamlmodel"
	"relana/app"
	"relana/domain/project"
	"relana/internal"
	apperrors "relana/internal/errors"
	"relana/internal/report"
)

// Analyzer is the part of the analysis service the API needs
type Analyzer interface {
	Analyze(ctx context.Context, proj *project.Project) (*project.Report, error)
	Validate(ctx context.Context, proj *project.Project) (*app.ValidationResult, error)
}

// Options tune the server
type Options struct {
	MaxBodyBytes int64
	Decimals     int
}

// Server routes API requests to an Analyzer
type Server struct {
	router   *chi.Mux
	analyzer Analyzer
	logger   *internal.Logger
	opts     Options
}

// NewServer creates the API server
func NewServer(analyzer Analyzer, logger *internal.Logger, opts Options) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.Decimals <= 0 {
		opts.Decimals = 12
	}
	s := &Server{router: chi.NewRouter(), analyzer: analyzer, logger: logger, opts: opts}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/analyses", s.handleAnalyze)
		r.Post("/validations", s.handleValidate)
	})
}

// ServeHTTP makes the server an http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	var f report.Format
	if format != "" && format != "json" {
		var err error
		if f, err = report.ParseFormat(format); err != nil {
			s.writeError(w, apperrors.InvalidInput(err.Error()))
			return
		}
	}
	proj, err := s.readProject(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rep, err := s.analyzer.Analyze(r.Context(), proj)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if f == "" {
		writeJSON(w, http.StatusOK, rep)
		return
	}
	switch f {
	case report.FormatHTML:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	case report.FormatMarkdown:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	if err := report.Render(w, rep, f, s.opts.Decimals); err != nil {
		s.logger.Error("failed to render report: %v", err)
	}
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	proj, err := s.readProject(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.analyzer.Validate(r.Context(), proj)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) readProject(w http.ResponseWriter, r *http.Request) (*project.Project, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, apperrors.New(CodeTooLarge, "model exceeds the request size limit")
		}
		return nil, apperrors.Wrap(apperrors.InvalidInput(err.Error()), "cannot read request body")
	}
	if len(body) == 0 {
		return nil, apperrors.InvalidInput("request body must hold a YAML model")
	}
	return yamlmodel.Parse(body)
}

// CodeTooLarge marks request bodies above the configured limit
const CodeTooLarge = "TOO_LARGE"

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	err = apperrors.FromDomain(err)
	code := apperrors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed: %v", err)
	} else {
		s.logger.Debug("request rejected: %v", err)
	}
	writeJSON(w, status, errorResponse{Code: code, Error: err.Error()})
}

func statusFor(code string) int {
	switch code {
	case apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeModelInvalid, apperrors.CodeNotFound:
		return http.StatusUnprocessableEntity
	case CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
