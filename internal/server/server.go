// Package server exposes the generation pipeline over HTTP: one endpoint
// that turns a request into a generated project and one that streams the
// resulting archive back for its bounded retrieval window.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"sitesmith/internal/artifact"
	"sitesmith/internal/filemap"
	"sitesmith/internal/llm"
	"sitesmith/internal/pipeline"
)

// Server routes HTTP requests to the pipeline and artifact registry.
type Server struct {
	pipeline   *pipeline.Pipeline
	registry   *artifact.Registry
	corsOrigin string
	timeout    time.Duration
	log        *zap.Logger

	httpServer *http.Server
}

// New builds a Server. timeout bounds each generation request end to end.
func New(addr string, p *pipeline.Pipeline, r *artifact.Registry, corsOrigin string, timeout time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		pipeline:   p,
		registry:   r,
		corsOrigin: corsOrigin,
		timeout:    timeout,
		log:        logger,
	}
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the routed handler, wrapped in CORS. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /download/{name}", s.handleDownload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.cors(mux)
}

// ListenAndServe runs the server until the context is cancelled, then shuts
// down gracefully and stops the registry's timers.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	s.log.Info("server listening", zap.String("addr", s.httpServer.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.registry.Close()
	return err
}

// generateResponse is the wire shape shared by success and failure replies.
type generateResponse struct {
	Success           bool            `json:"success"`
	Files             filemap.FileMap `json:"files,omitempty"`
	Message           string          `json:"message,omitempty"`
	ZipFileName       string          `json:"zipFileName,omitempty"`
	DownloadURL       string          `json:"downloadUrl,omitempty"`
	ActualProjectName string          `json:"actualProjectName,omitempty"`

	Error       string   `json:"error,omitempty"`
	RawResponse string   `json:"rawResponse,omitempty"`
	Issues      []string `json:"issues,omitempty"`
	Hint        string   `json:"hint,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req llm.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, generateResponse{
			Success: false,
			Error:   "request body must be JSON with a query field",
		})
		return
	}
	if req.Query == "" {
		s.writeJSON(w, http.StatusBadRequest, generateResponse{
			Success: false,
			Error:   "query is required",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.pipeline.Generate(ctx, req)
	if err != nil {
		s.writeGenerateError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, generateResponse{
		Success:           true,
		Files:             res.Files,
		Message:           res.Message,
		ZipFileName:       res.ZipFileName,
		DownloadURL:       res.DownloadURL,
		ActualProjectName: res.ActualProjectName,
	})
}

// writeGenerateError maps the pipeline's error taxonomy onto HTTP responses.
// Decode failures surface the raw model text; validation failures surface
// the full issue list. Neither is retried here.
func (s *Server) writeGenerateError(w http.ResponseWriter, err error) {
	var de *filemap.DecodeError
	if errors.As(err, &de) {
		s.log.Warn("model output could not be decoded", zap.Error(err))
		s.writeJSON(w, http.StatusBadGateway, generateResponse{
			Success:     false,
			Error:       "the model returned output that could not be decoded into a project",
			RawResponse: de.Raw,
		})
		return
	}

	var ve *pipeline.ValidationError
	if errors.As(err, &ve) {
		s.writeJSON(w, http.StatusUnprocessableEntity, generateResponse{
			Success: false,
			Error:   "the generated project is internally inconsistent",
			Issues:  ve.Report,
			Hint:    "adjust the request (or regenerate) so every import is declared in package.json",
		})
		return
	}

	s.log.Error("generation failed", zap.Error(err))
	s.writeJSON(w, http.StatusInternalServerError, generateResponse{
		Success: false,
		Error:   "project generation failed",
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	f, size, err := s.registry.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))

	if _, err := io.Copy(w, f); err != nil {
		// The client dropped mid-stream; the artifact stays until its
		// expiry timer so a retry can succeed.
		s.log.Debug("download interrupted", zap.String("name", name), zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("response encoding failed", zap.Error(err))
	}
}
