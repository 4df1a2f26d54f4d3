package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lukasbauer/voxlate/internal/artifacts"
	"github.com/lukasbauer/voxlate/internal/extract"
	"github.com/lukasbauer/voxlate/internal/llm"
	"github.com/lukasbauer/voxlate/internal/tts"
)

type fakeTranslator struct {
	mu    sync.Mutex
	calls []string
	langs []string
	delay func(chunk string) time.Duration
	err   error
}

func (f *fakeTranslator) Translate(ctx context.Context, chunk, targetLanguage string) (*llm.Translation, error) {
	if f.delay != nil {
		time.Sleep(f.delay(chunk))
	}
	f.mu.Lock()
	f.calls = append(f.calls, chunk)
	f.langs = append(f.langs, targetLanguage)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Translation{Text: "[" + chunk + "]", InputTokens: 10, OutputTokens: 12}, nil
}

func (f *fakeTranslator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSynthesizer struct {
	calls []string
	codes []string
	err   error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text, languageCode string) (*tts.Audio, error) {
	f.calls = append(f.calls, text)
	f.codes = append(f.codes, languageCode)
	if f.err != nil {
		return nil, f.err
	}
	return &tts.Audio{Data: []byte("ID3audio"), Format: "mp3", LanguageCode: languageCode}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	stages []string
}

func (f *fakeNotifier) NotifyRunFailed(runID, stage string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages = append(f.stages, stage)
}

func newTestService(t *testing.T, cfg Config, tr llm.Translator, syn tts.Synthesizer, n Notifier) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	logger := log.New(io.Discard, "", 0)
	return New(cfg, tr, syn, artifacts.NewFileStore(dir), nil, n, logger), dir
}

func TestRunHelloSpanish(t *testing.T) {
	tr := &fakeTranslator{}
	syn := &fakeSynthesizer{}
	svc, dir := newTestService(t, Config{}, tr, syn, nil)

	res, err := svc.Run(context.Background(), Request{Text: "Hello, how are you?", TargetLanguage: "Spanish"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(tr.calls) != 1 || tr.calls[0] != "Hello, how are you?" {
		t.Errorf("translator calls = %q, want exactly the input sentence", tr.calls)
	}
	if tr.langs[0] != "Spanish" {
		t.Errorf("target language = %q, want %q", tr.langs[0], "Spanish")
	}
	if len(syn.codes) != 1 || syn.codes[0] != "es" {
		t.Errorf("synthesizer codes = %q, want [es]", syn.codes)
	}
	if syn.calls[0] != res.TranslatedText {
		t.Errorf("synthesized text = %q, want %q", syn.calls[0], res.TranslatedText)
	}
	if res.TranslatedText != "[Hello, how are you?]" {
		t.Errorf("TranslatedText = %q", res.TranslatedText)
	}
	if len(res.Audio.Data) == 0 {
		t.Error("Audio should not be empty")
	}
	if res.RunID == "" {
		t.Error("RunID should be set")
	}
	if res.LanguageCode != "es" || res.Chunks != 1 {
		t.Errorf("LanguageCode = %q, Chunks = %d", res.LanguageCode, res.Chunks)
	}

	if res.TextPath != filepath.Join(dir, artifacts.TextFileName) {
		t.Errorf("TextPath = %q", res.TextPath)
	}
	got, err := os.ReadFile(res.TextPath)
	if err != nil || string(got) != res.TranslatedText {
		t.Errorf("saved text = %q, %v", got, err)
	}
	if _, err := os.Stat(res.AudioPath); err != nil {
		t.Errorf("audio file missing: %v", err)
	}
}

func TestRunUnsupportedLanguageFailsBeforeAnyCall(t *testing.T) {
	tr := &fakeTranslator{}
	syn := &fakeSynthesizer{}
	svc, _ := newTestService(t, Config{}, tr, syn, nil)

	_, err := svc.Run(context.Background(), Request{Text: "Hello", TargetLanguage: "Klingon"})
	if !errors.Is(err, tts.ErrUnsupportedLanguage) {
		t.Fatalf("Run() error = %v, want ErrUnsupportedLanguage", err)
	}
	if tr.count() != 0 || len(syn.calls) != 0 {
		t.Errorf("no provider should be called, got %d translations, %d syntheses", tr.count(), len(syn.calls))
	}
}

func TestRunEmptyInput(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"empty text", Request{Text: "", TargetLanguage: "French"}},
		{"whitespace", Request{Text: "  \n\t ", TargetLanguage: "French"}},
		{"empty document", Request{
			Document:       &extract.Document{Name: "a.txt", Format: extract.FormatPlainText, Data: []byte("\n\n")},
			TargetLanguage: "French",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTranslator{}
			svc, _ := newTestService(t, Config{}, tr, &fakeSynthesizer{}, nil)
			_, err := svc.Run(context.Background(), tt.req)
			if !errors.Is(err, ErrEmptyInput) {
				t.Errorf("Run() error = %v, want ErrEmptyInput", err)
			}
			if tr.count() != 0 {
				t.Errorf("translator called %d times", tr.count())
			}
		})
	}
}

func TestRunDocument(t *testing.T) {
	tr := &fakeTranslator{}
	syn := &fakeSynthesizer{}
	svc, _ := newTestService(t, Config{}, tr, syn, nil)

	doc := &extract.Document{Name: "table.csv", Format: extract.FormatTabular, Data: []byte("a,b\n1,2\n")}
	res, err := svc.Run(context.Background(), Request{Text: "ignored", Document: doc, TargetLanguage: "German"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.SourceText != "a,b\n1,2" {
		t.Errorf("SourceText = %q", res.SourceText)
	}
	if syn.codes[0] != "de" {
		t.Errorf("language code = %q, want de", syn.codes[0])
	}
}

func TestRunDecodeErrorPassesThrough(t *testing.T) {
	svc, _ := newTestService(t, Config{}, &fakeTranslator{}, &fakeSynthesizer{}, nil)

	doc := &extract.Document{Name: "bad.txt", Format: extract.FormatPlainText, Data: []byte{'a', 0xff, 'b'}}
	_, err := svc.Run(context.Background(), Request{Document: doc, TargetLanguage: "Spanish"})
	var decodeErr *extract.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Run() error = %v, want *extract.DecodeError", err)
	}
}

func TestRunPreservesChunkOrder(t *testing.T) {
	paragraphs := []string{"First paragraph.", "Second paragraph.", "Third paragraph.", "Fourth paragraph."}
	text := strings.Join(paragraphs, "\n\n")

	tr := &fakeTranslator{
		// Earlier chunks finish last.
		delay: func(c string) time.Duration {
			for i, p := range paragraphs {
				if c == p {
					return time.Duration(len(paragraphs)-i) * 10 * time.Millisecond
				}
			}
			return 0
		},
	}
	svc, _ := newTestService(t, Config{MaxChunkChars: 20, Concurrency: 4}, tr, &fakeSynthesizer{}, nil)

	var mu sync.Mutex
	var translated int
	res, err := svc.Run(context.Background(), Request{
		Text:           text,
		TargetLanguage: "Italian",
		Progress: func(e Event) {
			if e.Stage == StageTranslation {
				mu.Lock()
				translated++
				mu.Unlock()
			}
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := "[First paragraph.]\n\n[Second paragraph.]\n\n[Third paragraph.]\n\n[Fourth paragraph.]"
	if res.TranslatedText != want {
		t.Errorf("TranslatedText = %q, want %q", res.TranslatedText, want)
	}
	if res.Chunks != 4 || translated != 4 {
		t.Errorf("Chunks = %d, progress events = %d, want 4", res.Chunks, translated)
	}
}

func TestRunTranslationFailure(t *testing.T) {
	failure := &llm.TranslationError{Provider: "gemini", Kind: llm.KindRateLimit, Err: errors.New("quota")}
	tr := &fakeTranslator{err: failure}
	syn := &fakeSynthesizer{}
	n := &fakeNotifier{}
	svc, dir := newTestService(t, Config{}, tr, syn, n)

	_, err := svc.Run(context.Background(), Request{Text: "Hello", TargetLanguage: "Spanish"})
	var trErr *llm.TranslationError
	if !errors.As(err, &trErr) || trErr.Kind != llm.KindRateLimit {
		t.Fatalf("Run() error = %v, want rate_limit TranslationError", err)
	}
	if len(syn.calls) != 0 {
		t.Error("synthesizer should not be called after translation failure")
	}
	if len(n.stages) != 1 || n.stages[0] != string(StageTranslation) {
		t.Errorf("notified stages = %v", n.stages)
	}
	if _, err := os.Stat(filepath.Join(dir, artifacts.TextFileName)); !os.IsNotExist(err) {
		t.Error("no artifact should be written on failure")
	}
}

func TestRunTranslationFailureStopsRemainingChunks(t *testing.T) {
	text := "First paragraph.\n\nSecond paragraph.\n\nThird paragraph."
	tr := &fakeTranslator{err: &llm.TranslationError{Provider: "openai", Kind: llm.KindService, Err: errors.New("boom")}}
	svc, _ := newTestService(t, Config{MaxChunkChars: 20, Concurrency: 1}, tr, &fakeSynthesizer{}, nil)

	if _, err := svc.Run(context.Background(), Request{Text: text, TargetLanguage: "German"}); err == nil {
		t.Fatal("Run() error = nil, want translation failure")
	}
	if got := tr.count(); got != 1 {
		t.Errorf("translator calls = %d, want 1", got)
	}
}

func TestRunSynthesisFailure(t *testing.T) {
	syn := &fakeSynthesizer{err: &tts.SynthesisError{Provider: "google", Err: errors.New("503")}}
	n := &fakeNotifier{}
	svc, _ := newTestService(t, Config{}, &fakeTranslator{}, syn, n)

	_, err := svc.Run(context.Background(), Request{Text: "Hello", TargetLanguage: "Spanish"})
	var synErr *tts.SynthesisError
	if !errors.As(err, &synErr) {
		t.Fatalf("Run() error = %v, want *tts.SynthesisError", err)
	}
	if len(n.stages) != 1 || n.stages[0] != string(StageSynthesis) {
		t.Errorf("notified stages = %v", n.stages)
	}
}

func TestUserErrorsAreNotNotified(t *testing.T) {
	n := &fakeNotifier{}
	svc, _ := newTestService(t, Config{}, &fakeTranslator{}, &fakeSynthesizer{}, n)

	_, _ = svc.Run(context.Background(), Request{Text: "", TargetLanguage: "Spanish"})
	_, _ = svc.Run(context.Background(), Request{Text: "Hi", TargetLanguage: "Elvish"})
	if len(n.stages) != 0 {
		t.Errorf("notified stages = %v, want none", n.stages)
	}
}

func TestRunCosts(t *testing.T) {
	svc, _ := newTestService(t, Config{LLMProvider: "gemini", TTSProvider: "elevenlabs"}, &fakeTranslator{}, &fakeSynthesizer{}, nil)

	res, err := svc.Run(context.Background(), Request{Text: "Hello", TargetLanguage: "Spanish"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Costs.TTSMicroUSD <= 0 {
		t.Errorf("TTSMicroUSD = %d, want > 0 for elevenlabs", res.Costs.TTSMicroUSD)
	}
	if res.Costs.TotalMicroUSD != res.Costs.LLMMicroUSD+res.Costs.TTSMicroUSD {
		t.Errorf("TotalMicroUSD = %d, want sum", res.Costs.TotalMicroUSD)
	}
}
