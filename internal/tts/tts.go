package tts

import (
	"context"
	"fmt"
)

// Audio is a synthesized clip for one language.
type Audio struct {
	Data         []byte
	Format       string // e.g. "mp3"
	LanguageCode string
}

// Synthesizer defines the interface for text-to-speech providers.
type Synthesizer interface {
	// Synthesize converts the full text to a single audio stream spoken in
	// languageCode (e.g. "es", "zh-CN").
	Synthesize(ctx context.Context, text, languageCode string) (*Audio, error)
}

// SynthesisError wraps any provider failure. Requests are never retried.
type SynthesisError struct {
	Provider string
	Err      error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("%s speech synthesis failed: %v", e.Provider, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
