package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lukasbauer/voxlate/internal/chunk"
	"github.com/lukasbauer/voxlate/internal/llm"
)

type Config struct {
	HTTPAddr      string
	PublicBaseURL string
	DatabaseURL   string
	LogLevel      string
	Environment   string

	// Translation provider
	LLMProvider    string // "gemini" or "openai"
	LLMModel       string
	LLMTemperature float64
	GeminiAPIKey   string
	OpenAIAPIKey   string

	// Speech provider
	TTSProvider      string // "google" or "elevenlabs"
	TTSVoiceID       string // ElevenLabs voice ID
	TTSStability     float64
	TTSSimilarity    float64
	ElevenLabsAPIKey string

	// Pipeline
	MaxChunkChars        int
	TranslateConcurrency int
	OutputDir            string
	MaxUploadMB          int

	// Server-side cleanup of output files
	ArtifactRetention time.Duration
	CleanupInterval   time.Duration

	// Signed download links
	DownloadTokenSecret string
	DownloadTokenTTL    time.Duration

	// Monitoring
	SentryDSN         string
	DiscordWebhookURL string
}

func LoadConfigFromEnv() Config {
	return loadConfig(defaultSecretSources())
}

func loadConfig(secrets SecretSources) Config {
	secret := func(name string) string {
		v, _ := secrets.Lookup(name)
		return v
	}

	return Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		PublicBaseURL: strings.TrimSuffix(getenv("PUBLIC_BASE_URL", ""), "/"),
		DatabaseURL:   getenv("DATABASE_URL", ""),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		Environment:   getenv("ENVIRONMENT", "development"),

		LLMProvider:    strings.ToLower(getenv("LLM_PROVIDER", "gemini")),
		LLMModel:       getenv("LLM_MODEL", ""),
		LLMTemperature: getenvFloatClamped("LLM_TEMPERATURE", llm.DefaultTemperature, 0, 1),
		GeminiAPIKey:   secret("GEMINI_API_KEY"),
		OpenAIAPIKey:   secret("OPENAI_API_KEY"),

		TTSProvider:      strings.ToLower(getenv("TTS_PROVIDER", "google")),
		TTSVoiceID:       getenv("TTS_VOICE_ID", ""),
		TTSStability:     getenvFloatClamped("TTS_STABILITY", 0.5, 0, 1),
		TTSSimilarity:    getenvFloatClamped("TTS_SIMILARITY", 0.75, 0, 1),
		ElevenLabsAPIKey: secret("ELEVENLABS_API_KEY"),

		MaxChunkChars:        getenvIntClamped("MAX_CHUNK_CHARS", chunk.MaxChunkChars, 100, 30000),
		TranslateConcurrency: getenvIntClamped("TRANSLATE_CONCURRENCY", 1, 1, 8),
		OutputDir:            getenv("OUTPUT_DIR", "."),
		MaxUploadMB:          getenvIntClamped("MAX_UPLOAD_MB", 20, 1, 200),

		ArtifactRetention: getenvDuration("ARTIFACT_RETENTION", 24*time.Hour),
		CleanupInterval:   getenvDuration("CLEANUP_INTERVAL", time.Hour),

		DownloadTokenSecret: secret("DOWNLOAD_TOKEN_SECRET"),
		DownloadTokenTTL:    getenvDuration("DOWNLOAD_TOKEN_TTL", 15*time.Minute),

		SentryDSN:         getenv("SENTRY_DSN", ""),
		DiscordWebhookURL: getenv("DISCORD_WEBHOOK_URL", ""),
	}
}

// RequireCredentials checks that the keys for the selected providers are set.
func (c Config) RequireCredentials() error {
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return &MissingCredentialError{Name: "OPENAI_API_KEY"}
		}
	default:
		if c.GeminiAPIKey == "" {
			return &MissingCredentialError{Name: "GEMINI_API_KEY"}
		}
	}
	if c.TTSProvider == "elevenlabs" && c.ElevenLabsAPIKey == "" {
		return &MissingCredentialError{Name: "ELEVENLABS_API_KEY"}
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getenvIntClamped parses an int env var, falling back to def when unset
// or invalid, and clamps the result to [min, max].
func getenvIntClamped(k string, def, min, max int) int {
	v := def
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			v = n
		}
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// getenvFloatClamped is getenvIntClamped for floats.
func getenvFloatClamped(k string, def, min, max float64) float64 {
	v := def
	if s := os.Getenv(k); s != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			v = f
		}
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func getenvDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getenv(k, ""))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
