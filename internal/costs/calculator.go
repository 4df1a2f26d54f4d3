// Package costs provides cost estimates for API usage.
package costs

import (
	"os"
	"strconv"
)

// Pricing constants (in cents per unit for precision).
// Defaults follow published list prices and can be overridden via environment variables.
var (
	// GeminiCentsPerThousandInputTokens is the cost per 1K input tokens for Gemini 1.5 Flash.
	// Default: $0.075/1M = 0.0075 cents/1K tokens
	GeminiCentsPerThousandInputTokens = getEnvFloat("COST_GEMINI_INPUT_CENTS_PER_1K", 0.0075)

	// GeminiCentsPerThousandOutputTokens is the cost per 1K output tokens for Gemini 1.5 Flash.
	// Default: $0.30/1M = 0.03 cents/1K tokens
	GeminiCentsPerThousandOutputTokens = getEnvFloat("COST_GEMINI_OUTPUT_CENTS_PER_1K", 0.03)

	// OpenAICentsPerThousandInputTokens is the cost per 1K input tokens for GPT-4o-mini.
	// Default: $0.15/1M = 0.015 cents/1K tokens
	OpenAICentsPerThousandInputTokens = getEnvFloat("COST_OPENAI_INPUT_CENTS_PER_1K", 0.015)

	// OpenAICentsPerThousandOutputTokens is the cost per 1K output tokens for GPT-4o-mini.
	// Default: $0.60/1M = 0.06 cents/1K tokens
	OpenAICentsPerThousandOutputTokens = getEnvFloat("COST_OPENAI_OUTPUT_CENTS_PER_1K", 0.06)

	// ElevenLabsCentsPerThousandChars is the cost per 1K characters for ElevenLabs TTS.
	// Default: $0.18/1K chars = 18 cents/1K chars
	ElevenLabsCentsPerThousandChars = getEnvFloat("COST_ELEVENLABS_CENTS_PER_1K_CHARS", 18.0)
)

// RunMetrics contains the raw usage of one pipeline run.
type RunMetrics struct {
	LLMProvider     string // "gemini" or "openai"
	LLMInputTokens  int
	LLMOutputTokens int
	TTSProvider     string // "google" or "elevenlabs"
	TTSCharacters   int
}

// RunCosts contains the estimated costs for a run in micro-dollars
// (millionths of a USD); a short translation costs well below one cent.
type RunCosts struct {
	LLMMicroUSD   int `json:"llm_micro_usd"`
	TTSMicroUSD   int `json:"tts_micro_usd"`
	TotalMicroUSD int `json:"total_micro_usd"`
}

// CalculateRunCosts estimates the cost of a run based on usage metrics.
func CalculateRunCosts(m RunMetrics) RunCosts {
	inRate, outRate := GeminiCentsPerThousandInputTokens, GeminiCentsPerThousandOutputTokens
	if m.LLMProvider == "openai" {
		inRate, outRate = OpenAICentsPerThousandInputTokens, OpenAICentsPerThousandOutputTokens
	}

	// LLM costs: per 1K tokens
	llmCents := (float64(m.LLMInputTokens)/1000.0)*inRate + (float64(m.LLMOutputTokens)/1000.0)*outRate

	// TTS costs: per 1K characters. The Google Translate endpoint is free.
	var ttsCents float64
	if m.TTSProvider == "elevenlabs" {
		ttsCents = (float64(m.TTSCharacters) / 1000.0) * ElevenLabsCentsPerThousandChars
	}

	// 1 cent = 10,000 micro-dollars
	c := RunCosts{
		LLMMicroUSD: roundToInt(llmCents * 10000),
		TTSMicroUSD: roundToInt(ttsCents * 10000),
	}
	c.TotalMicroUSD = c.LLMMicroUSD + c.TTSMicroUSD
	return c
}

// roundToInt rounds a float to the nearest integer.
func roundToInt(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}

// getEnvFloat returns an environment variable as float64, or the default if not set.
func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
