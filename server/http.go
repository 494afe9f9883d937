package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/vocalize/fluency-pipeline/config"
	"github.com/vocalize/fluency-pipeline/fluency"
	"github.com/vocalize/fluency-pipeline/metrics"
	"github.com/vocalize/fluency-pipeline/orchestrator"
)

const (
	kindBadRequest = "bad_request"
	kindTooLarge   = "too_large"
)

// HTTPServer exposes the pipeline over HTTP.
type HTTPServer struct {
	server   *http.Server
	log      *logrus.Entry
	config   *config.Root
	pipeline *orchestrator.Pipeline
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer

	startTime time.Time
}

// NewHTTPServer builds the server and its routes. m and g may be nil, in
// which case request metrics and /metrics are disabled.
func NewHTTPServer(cfg *config.Root, p *orchestrator.Pipeline, log *logrus.Logger, m *metrics.Metrics, g prometheus.Gatherer) *HTTPServer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &HTTPServer{
		log:       log.WithField("component", "http"),
		config:    cfg,
		pipeline:  p,
		metrics:   m,
		gatherer:  g,
		startTime: time.Now(),
	}

	h.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      h.Handler(),
		ReadTimeout:  config.DurSeconds(cfg.Server.ReadTimeout),
		WriteTimeout: config.DurSeconds(cfg.Server.WriteTimeout),
		IdleTimeout:  60 * time.Second,
	}
	return h
}

// Handler returns the routed handler wrapped in CORS.
func (h *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/analyze", h.withMetrics("/analyze", h.handleAnalyze))
	mux.HandleFunc("/convert", h.withMetrics("/convert", h.handleConvert))
	mux.HandleFunc("/score", h.withMetrics("/score", h.handleScore))
	if h.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))

	c := cors.New(cors.Options{
		AllowedOrigins:   h.config.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
	})
	return c.Handler(mux)
}

// withMetrics wraps an HTTP handler with metrics collection and request logging
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(ww, r)

		elapsed := time.Since(start)
		h.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"endpoint": endpoint,
			"status":   ww.statusCode,
			"elapsed":  elapsed,
		}).Debug("request handled")

		if h.metrics == nil {
			return
		}
		h.metrics.RecordHTTPRequest(r.Method, endpoint, fmt.Sprintf("%d", ww.statusCode), elapsed.Seconds())
		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server in the background
func (h *HTTPServer) Start() error {
	h.log.WithField("address", h.server.Addr).Info("starting HTTP server")

	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.WithError(err).Error("HTTP server error")
		}
	}()
	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.log.Info("stopping HTTP server")
	return h.server.Shutdown(ctx)
}

func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, kindBadRequest, "not found")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, kindBadRequest, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "Fluency Analysis API Running"})
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, kindBadRequest, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).Round(time.Second).String(),
		"service": map[string]string{
			"name":    h.config.Pipeline.Name,
			"version": h.config.Pipeline.Version,
		},
	})
}

func (h *HTTPServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, kindBadRequest, "method not allowed")
		return
	}
	raw, _, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	res, err := h.pipeline.Run(r.Context(), raw, strings.TrimSpace(r.FormValue("language")))
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTPServer) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, kindBadRequest, "method not allowed")
		return
	}
	raw, name, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	out, _, err := h.pipeline.Normalize(raw)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." {
		base = "audio"
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"_converted.wav"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		h.log.WithError(err).WithField("bytes", len(out)).Warn("failed to write converted audio")
	}
}

func (h *HTTPServer) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, kindBadRequest, "method not allowed")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.Audio.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, kindTooLarge, "request body exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, kindBadRequest, "read request body: "+err.Error())
		return
	}
	words, err := DecodeWords(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.pipeline.Score(words))
}

// readUpload pulls the multipart "file" field into memory.
func (h *HTTPServer) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	limit := h.config.Audio.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	// keep parts in memory up to the same limit
	err := r.ParseMultipartForm(limit)
	var (
		file multipart.File
		hdr  *multipart.FileHeader
	)
	if err == nil {
		file, hdr, err = r.FormFile("file")
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, kindTooLarge, "upload exceeds size limit")
			return nil, "", false
		}
		writeError(w, http.StatusBadRequest, kindBadRequest, "missing multipart field \"file\": "+err.Error())
		return nil, "", false
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, err.Error())
		return nil, "", false
	}
	return raw, hdr.Filename, true
}

func (h *HTTPServer) writePipelineError(w http.ResponseWriter, err error) {
	kind := orchestrator.ErrorKind(err)
	status := http.StatusInternalServerError
	switch kind {
	case orchestrator.KindDecode, orchestrator.KindUnsupportedFormat:
		status = http.StatusBadRequest
	case orchestrator.KindTranscription:
		status = http.StatusBadGateway
	}
	if status >= 500 {
		h.log.WithError(err).WithField("kind", kind).Error("analysis failed")
	}
	writeError(w, status, kind, err.Error())
}

// DecodeWords accepts either a bare JSON array of words or an object with a
// "words" field, the shape /analyze returns.
func DecodeWords(body []byte) ([]fluency.Word, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty request body")
	}
	var words []fluency.Word
	if body[0] == '[' {
		if err := json.Unmarshal(body, &words); err != nil {
			return nil, fmt.Errorf("decode words: %w", err)
		}
		return words, nil
	}
	var wrapped struct {
		Words []fluency.Word `json:"words"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode words: %w", err)
	}
	return wrapped.Words, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "kind": kind})
}
