package httpapi

import (
	"embed"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/lukasbauer/voxlate/internal/artifacts"
	"github.com/lukasbauer/voxlate/internal/pipeline"
	"github.com/lukasbauer/voxlate/internal/tts"
)

//go:embed static/index.html
var staticFiles embed.FS

type RouterConfig struct {
	PublicBaseURL string

	// Download links
	DownloadTokenSecret string
	DownloadTokenTTL    time.Duration

	// Upload limit for POST /api/translate/file and websocket payloads
	MaxUploadBytes int64
}

type Router struct {
	cfg       RouterConfig
	logger    *log.Logger
	pipeline  *pipeline.Service
	artifacts *artifacts.FileStore
	mux       *http.ServeMux
}

func NewRouter(cfg RouterConfig, logger *log.Logger, p *pipeline.Service, store *artifacts.FileStore) http.Handler {
	if cfg.DownloadTokenTTL <= 0 {
		cfg.DownloadTokenTTL = 15 * time.Minute
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}

	r := &Router{
		cfg:       cfg,
		logger:    logger,
		pipeline:  p,
		artifacts: store,
		mux:       http.NewServeMux(),
	}

	r.routes()
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes() {
	r.mux.HandleFunc("GET /{$}", r.handleIndex)
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)

	r.mux.HandleFunc("GET /api/languages", r.handleLanguages)
	r.mux.HandleFunc("POST /api/translate", r.handleTranslate)
	r.mux.HandleFunc("POST /api/translate/file", r.handleTranslateFile)
	r.mux.HandleFunc("GET /api/downloads/{kind}", r.handleDownload)

	// Same pipeline with progress events
	r.mux.HandleFunc("GET /ws/translate", r.handleTranslateWS)
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Router) handleIndex(w http.ResponseWriter, _ *http.Request) {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "page not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (r *Router) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"languages": tts.Languages,
		"default":   tts.DefaultLanguage,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
