package tts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestLanguageCode(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"Spanish", "es", false},
		{"spanish", "es", false},
		{"  German ", "de", false},
		{"Chinese (Simplified)", "zh-CN", false},
		{"Bengali", "bn", false},
		{"Klingon", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LanguageCode(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedLanguage) {
					t.Errorf("LanguageCode(%q) error = %v, want ErrUnsupportedLanguage", tt.name, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LanguageCode(%q) error = %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("LanguageCode(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestLanguagesTable(t *testing.T) {
	if len(Languages) != 14 {
		t.Errorf("Languages has %d entries, want 14", len(Languages))
	}
	if len(languageCodes) != len(Languages) {
		t.Errorf("duplicate display names in Languages")
	}
	if _, err := LanguageCode(DefaultLanguage); err != nil {
		t.Errorf("DefaultLanguage %q is not in Languages", DefaultLanguage)
	}
}

func TestSynthesizerInterface(t *testing.T) {
	var _ Synthesizer = (*ElevenLabsClient)(nil)
	var _ Synthesizer = (*GoogleTranslateClient)(nil)
}

func TestGoogleTranslateSynthesize(t *testing.T) {
	var mu sync.Mutex
	var pieces []string
	var langs []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		pieces = append(pieces, r.URL.Query().Get("q"))
		langs = append(langs, r.URL.Query().Get("tl"))
		mu.Unlock()
		_, _ = w.Write([]byte("[" + r.URL.Query().Get("idx") + "]"))
	}))
	defer srv.Close()

	text := strings.Repeat("Esta es una frase bastante larga para el servicio. ", 5)
	client := NewGoogleTranslateClient(GoogleTranslateConfig{BaseURL: srv.URL})
	audio, err := client.Synthesize(context.Background(), text, "es")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if len(pieces) < 2 {
		t.Fatalf("expected text to be split into several requests, got %d", len(pieces))
	}
	for i, p := range pieces {
		if len([]rune(p)) > googleMaxChars {
			t.Errorf("piece %d has %d chars, want <= %d", i, len([]rune(p)), googleMaxChars)
		}
		if langs[i] != "es" {
			t.Errorf("piece %d tl = %q, want es", i, langs[i])
		}
	}
	if strings.Join(strings.Fields(strings.Join(pieces, " ")), " ") != strings.Join(strings.Fields(text), " ") {
		t.Errorf("pieces do not cover the input text in order")
	}

	var want strings.Builder
	for i := range pieces {
		want.WriteString("[" + string(rune('0'+i)) + "]")
	}
	if string(audio.Data) != want.String() {
		t.Errorf("audio = %q, want %q", audio.Data, want.String())
	}
	if audio.LanguageCode != "es" || audio.Format != "mp3" {
		t.Errorf("audio = %+v", audio)
	}
}

func TestGoogleTranslateSynthesizeErrors(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		client := NewGoogleTranslateClient(GoogleTranslateConfig{BaseURL: "http://127.0.0.1:0"})
		_, err := client.Synthesize(context.Background(), "   ", "es")

		var synthErr *SynthesisError
		if !errors.As(err, &synthErr) {
			t.Fatalf("error = %v, want *SynthesisError", err)
		}
	})

	t.Run("service error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := NewGoogleTranslateClient(GoogleTranslateConfig{BaseURL: srv.URL})
		_, err := client.Synthesize(context.Background(), "Hola", "es")

		var synthErr *SynthesisError
		if !errors.As(err, &synthErr) {
			t.Fatalf("error = %v, want *SynthesisError", err)
		}
		if !strings.Contains(err.Error(), "503") {
			t.Errorf("error should mention status, got %q", err.Error())
		}
	})

	t.Run("empty body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		client := NewGoogleTranslateClient(GoogleTranslateConfig{BaseURL: srv.URL})
		if _, err := client.Synthesize(context.Background(), "Hola", "es"); err == nil {
			t.Fatal("expected error for empty audio")
		}
	})
}
