package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lukasbauer/voxlate/internal/artifacts"
	"github.com/lukasbauer/voxlate/internal/eventlog"
	"github.com/lukasbauer/voxlate/internal/httpapi"
	"github.com/lukasbauer/voxlate/internal/jobs"
	"github.com/lukasbauer/voxlate/internal/llm"
	"github.com/lukasbauer/voxlate/internal/notifications"
	"github.com/lukasbauer/voxlate/internal/pipeline"
	"github.com/lukasbauer/voxlate/internal/tts"
)

type App struct {
	cfg       Config
	logger    *log.Logger
	db        *pgxpool.Pool
	eventLog  *eventlog.Logger
	artifacts *artifacts.FileStore
	pipeline  *pipeline.Service
	cleanup   *jobs.ArtifactCleanupJob
}

// New wires providers, storage and the pipeline. Missing credentials for
// the selected providers are returned as *MissingCredentialError.
func New(cfg Config, logger *log.Logger) (*App, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	// Shared HTTP client with connection pooling for the provider APIs.
	httpClient := &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	translator, err := newTranslator(cfg, httpClient)
	if err != nil {
		return nil, err
	}
	synthesizer, err := newSynthesizer(cfg, httpClient)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		artifacts: artifacts.NewFileStore(cfg.OutputDir),
	}

	// The event log is optional; without DATABASE_URL it is a no-op.
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		db, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		a.db = db
		a.eventLog = eventlog.New(db)
		if err := a.eventLog.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate run_events: %w", err)
		}
	}

	a.pipeline = pipeline.New(pipeline.Config{
		MaxChunkChars: cfg.MaxChunkChars,
		Concurrency:   cfg.TranslateConcurrency,
		LLMProvider:   cfg.LLMProvider,
		TTSProvider:   cfg.TTSProvider,
	}, translator, synthesizer, a.artifacts, a.eventLog, notifications.NewDiscord(cfg.DiscordWebhookURL, logger), logger)

	logger.Printf("app: translation=%s speech=%s chunk=%d concurrency=%d output=%s",
		cfg.LLMProvider, cfg.TTSProvider, cfg.MaxChunkChars, cfg.TranslateConcurrency, cfg.OutputDir)
	return a, nil
}

func newTranslator(cfg Config, httpClient *http.Client) (llm.Translator, error) {
	switch cfg.LLMProvider {
	case "gemini", "":
		return llm.NewGeminiClient(llm.GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			HTTPClient:  httpClient,
		}), nil
	case "openai":
		return llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			HTTPClient:  httpClient,
		}), nil
	}
	return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
}

func newSynthesizer(cfg Config, httpClient *http.Client) (tts.Synthesizer, error) {
	switch cfg.TTSProvider {
	case "google", "":
		return tts.NewGoogleTranslateClient(tts.GoogleTranslateConfig{HTTPClient: httpClient}), nil
	case "elevenlabs":
		return tts.NewElevenLabsClient(tts.ElevenLabsConfig{
			APIKey:     cfg.ElevenLabsAPIKey,
			VoiceID:    cfg.TTSVoiceID,
			Stability:  cfg.TTSStability,
			Similarity: cfg.TTSSimilarity,
			HTTPClient: httpClient,
		}), nil
	}
	return nil, fmt.Errorf("unknown TTS_PROVIDER %q", cfg.TTSProvider)
}

// Pipeline returns the configured translation pipeline.
func (a *App) Pipeline() *pipeline.Service { return a.pipeline }

func (a *App) Router() http.Handler {
	secret := a.cfg.DownloadTokenSecret
	if secret == "" {
		// Links then stop working after a restart.
		secret = randomSecret()
		a.logger.Printf("app: DOWNLOAD_TOKEN_SECRET not set, using an ephemeral key")
	}

	routerCfg := httpapi.RouterConfig{
		PublicBaseURL:       a.cfg.PublicBaseURL,
		DownloadTokenSecret: secret,
		DownloadTokenTTL:    a.cfg.DownloadTokenTTL,
		MaxUploadBytes:      int64(a.cfg.MaxUploadMB) << 20,
	}
	return httpapi.NewRouter(routerCfg, a.logger, a.pipeline, a.artifacts)
}

// StartJobs starts background maintenance. Only the server calls it.
func (a *App) StartJobs() {
	// Files must outlive every download link issued for them.
	retention := a.cfg.ArtifactRetention
	if retention < a.cfg.DownloadTokenTTL {
		retention = a.cfg.DownloadTokenTTL
	}
	a.cleanup = jobs.NewArtifactCleanupJob(a.artifacts, retention, a.logger, a.cfg.CleanupInterval)
	a.cleanup.Start()
}

func (a *App) Close() error {
	if a.cleanup != nil {
		a.cleanup.Stop()
	}
	if a.db != nil {
		a.db.Close()
	}
	return nil
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
