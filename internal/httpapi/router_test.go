package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lukasbauer/voxlate/internal/artifacts"
	"github.com/lukasbauer/voxlate/internal/llm"
	"github.com/lukasbauer/voxlate/internal/pipeline"
	"github.com/lukasbauer/voxlate/internal/tts"
)

type stubTranslator struct {
	err error
}

func (s *stubTranslator) Translate(ctx context.Context, chunk, targetLanguage string) (*llm.Translation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Translation{Text: "Hola, ¿cómo estás?", InputTokens: 20, OutputTokens: 8}, nil
}

type stubSynthesizer struct {
	err error
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, text, languageCode string) (*tts.Audio, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &tts.Audio{Data: []byte("ID3-fake-mp3"), Format: "mp3", LanguageCode: languageCode}, nil
}

const testTokenSecret = "test-download-secret"

func newTestRouter(t *testing.T, tr llm.Translator, syn tts.Synthesizer) (http.Handler, *artifacts.FileStore) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	store := artifacts.NewFileStore(t.TempDir())
	p := pipeline.New(pipeline.Config{}, tr, syn, store, nil, nil, logger)
	cfg := RouterConfig{
		DownloadTokenSecret: testTokenSecret,
		DownloadTokenTTL:    time.Hour,
		MaxUploadBytes:      1 << 20,
	}
	return NewRouter(cfg, logger, p, store), store
}

func TestHealthz(t *testing.T) {
	h, _ := newTestRouter(t, &stubTranslator{}, &stubSynthesizer{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q, want 200 ok", rec.Code, rec.Body.String())
	}
}

func TestIndexPage(t *testing.T) {
	h, _ := newTestRouter(t, &stubTranslator{}, &stubSynthesizer{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "/ws/translate") {
		t.Error("page should use the websocket endpoint")
	}

	// Unknown paths are not served the page.
	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope status = %d, want 404", rec.Code)
	}
}

func TestLanguages(t *testing.T) {
	h, _ := newTestRouter(t, &stubTranslator{}, &stubSynthesizer{})

	req := httptest.NewRequest(http.MethodGet, "/api/languages", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body struct {
		Languages []tts.Language `json:"languages"`
		Default   string         `json:"default"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Languages) != 14 {
		t.Errorf("languages = %d, want 14", len(body.Languages))
	}
	if body.Languages[0].Name != "English" || body.Languages[6].Code != "zh-CN" {
		t.Errorf("unexpected order: %+v", body.Languages)
	}
	if body.Default != "Spanish" {
		t.Errorf("default = %q, want Spanish", body.Default)
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestRouter(t, &stubTranslator{}, &stubSynthesizer{})

	req := httptest.NewRequest(http.MethodOptions, "/api/translate", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestSentryRecovery(t *testing.T) {
	h := withSentryRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
