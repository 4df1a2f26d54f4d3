// Package pipeline runs one translation request end to end: extract, chunk,
// translate, reassemble, synthesize and store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lukasbauer/voxlate/internal/artifacts"
	"github.com/lukasbauer/voxlate/internal/chunk"
	"github.com/lukasbauer/voxlate/internal/costs"
	"github.com/lukasbauer/voxlate/internal/eventlog"
	"github.com/lukasbauer/voxlate/internal/extract"
	"github.com/lukasbauer/voxlate/internal/llm"
	"github.com/lukasbauer/voxlate/internal/tts"
)

// ErrEmptyInput is returned when neither text nor a document with content was provided.
var ErrEmptyInput = errors.New("no input text provided")

// Stage names a step of a run; used in progress events and failure alerts.
type Stage string

const (
	StageExtraction  Stage = "extraction"
	StageTranslation Stage = "translation"
	StageSynthesis   Stage = "synthesis"
	StageStorage     Stage = "storage"
	StageCompleted   Stage = "completed"
)

// Event reports progress of a run.
type Event struct {
	RunID  string `json:"run_id"`
	Stage  Stage  `json:"stage"`
	Chunk  int    `json:"chunk,omitempty"` // 1-based index of the chunk just translated
	Chunks int    `json:"chunks,omitempty"`
}

// Progress receives events as a run advances. It may be called from
// several goroutines when Concurrency > 1.
type Progress func(Event)

// Request is one translation job. Document takes precedence over Text.
type Request struct {
	Text           string
	Document       *extract.Document
	TargetLanguage string
	Progress       Progress
}

// Result holds everything a run produced.
type Result struct {
	RunID          string
	SourceText     string
	TranslatedText string
	Chunks         int
	LanguageCode   string
	Audio          *tts.Audio
	TextPath       string
	AudioPath      string
	Costs          costs.RunCosts
	Duration       time.Duration
}

// Notifier is alerted when a run fails.
type Notifier interface {
	NotifyRunFailed(runID, stage string, err error)
}

type Config struct {
	MaxChunkChars int
	Concurrency   int
	LLMProvider   string
	TTSProvider   string
}

type Service struct {
	cfg         Config
	translator  llm.Translator
	synthesizer tts.Synthesizer
	artifacts   *artifacts.FileStore
	events      *eventlog.Logger
	notifier    Notifier
	logger      *log.Logger
}

// New creates a pipeline service. events and notifier may be nil.
func New(cfg Config, translator llm.Translator, synthesizer tts.Synthesizer, store *artifacts.FileStore, events *eventlog.Logger, notifier Notifier, logger *log.Logger) *Service {
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = chunk.MaxChunkChars
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Service{
		cfg:         cfg,
		translator:  translator,
		synthesizer: synthesizer,
		artifacts:   store,
		events:      events,
		notifier:    notifier,
		logger:      logger,
	}
}

// Run executes the whole pipeline. Errors keep their original type so
// callers can map them with errors.As / errors.Is.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	s.events.LogAsync(runID, eventlog.EventRunStarted, map[string]any{
		"target_language": req.TargetLanguage,
		"has_document":    req.Document != nil,
	})

	res, stage, err := s.run(ctx, runID, req)
	if err != nil {
		s.fail(runID, stage, err)
		return nil, err
	}

	res.Duration = time.Since(start)
	s.events.LogAsync(runID, eventlog.EventRunCompleted, map[string]any{
		"chunks":          res.Chunks,
		"duration_ms":     res.Duration.Milliseconds(),
		"total_micro_usd": res.Costs.TotalMicroUSD,
	})
	s.logger.Printf("pipeline: run %s completed: %d chunks, %s in %v", runID, res.Chunks, res.LanguageCode, res.Duration.Round(time.Millisecond))
	notify(req.Progress, Event{RunID: runID, Stage: StageCompleted, Chunks: res.Chunks})
	return res, nil
}

func (s *Service) run(ctx context.Context, runID string, req Request) (*Result, Stage, error) {
	// Resolve the language before any extraction or network call.
	langCode, err := tts.LanguageCode(req.TargetLanguage)
	if err != nil {
		return nil, StageExtraction, err
	}

	notify(req.Progress, Event{RunID: runID, Stage: StageExtraction})
	source := req.Text
	if req.Document != nil {
		source, err = extract.Extract(ctx, *req.Document)
		if err != nil {
			return nil, StageExtraction, err
		}
		s.events.LogAsync(runID, eventlog.EventExtractionCompleted, map[string]any{
			"format": string(req.Document.Format),
			"bytes":  len(req.Document.Data),
			"chars":  utf8.RuneCountInString(source),
		})
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, StageExtraction, ErrEmptyInput
	}

	chunks := chunk.Split(source, s.cfg.MaxChunkChars)
	translated, metrics, err := s.translate(ctx, runID, chunks, req.TargetLanguage, req.Progress)
	if err != nil {
		return nil, StageTranslation, err
	}
	text := chunk.Join(translated)
	s.events.LogAsync(runID, eventlog.EventTranslationCompleted, map[string]any{
		"chunks":        len(chunks),
		"input_tokens":  metrics.LLMInputTokens,
		"output_tokens": metrics.LLMOutputTokens,
	})

	notify(req.Progress, Event{RunID: runID, Stage: StageSynthesis, Chunks: len(chunks)})
	audio, err := s.synthesizer.Synthesize(ctx, text, langCode)
	if err != nil {
		return nil, StageSynthesis, err
	}
	metrics.TTSCharacters = utf8.RuneCountInString(text)
	s.events.LogAsync(runID, eventlog.EventSynthesisCompleted, map[string]any{
		"audio_bytes": len(audio.Data),
		"language":    langCode,
	})

	res := &Result{
		RunID:          runID,
		SourceText:     source,
		TranslatedText: text,
		Chunks:         len(chunks),
		LanguageCode:   langCode,
		Audio:          audio,
		Costs:          costs.CalculateRunCosts(metrics),
	}

	if s.artifacts != nil {
		notify(req.Progress, Event{RunID: runID, Stage: StageStorage, Chunks: len(chunks)})
		if res.TextPath, err = s.artifacts.SaveText(text); err != nil {
			return nil, StageStorage, fmt.Errorf("failed to save translation: %w", err)
		}
		if res.AudioPath, err = s.artifacts.SaveAudio(audio.Data); err != nil {
			return nil, StageStorage, fmt.Errorf("failed to save audio: %w", err)
		}
	}
	return res, "", nil
}

// translate sends every chunk to the translator. Result i always lands in
// slot i regardless of completion order.
func (s *Service) translate(ctx context.Context, runID string, chunks []string, language string, progress Progress) ([]string, costs.RunMetrics, error) {
	out := make([]string, len(chunks))
	usage := make([]llm.Translation, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tr, err := s.translator.Translate(gctx, c, language)
			if err != nil {
				return err
			}
			out[i] = tr.Text
			usage[i] = *tr
			s.events.LogAsync(runID, eventlog.EventChunkTranslated, map[string]any{
				"index":      i,
				"input_len":  utf8.RuneCountInString(c),
				"output_len": utf8.RuneCountInString(tr.Text),
			})
			notify(progress, Event{RunID: runID, Stage: StageTranslation, Chunk: i + 1, Chunks: len(chunks)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, costs.RunMetrics{}, err
	}

	m := costs.RunMetrics{LLMProvider: s.cfg.LLMProvider, TTSProvider: s.cfg.TTSProvider}
	for _, u := range usage {
		m.LLMInputTokens += u.InputTokens
		m.LLMOutputTokens += u.OutputTokens
	}
	return out, m, nil
}

func (s *Service) fail(runID string, stage Stage, err error) {
	s.logger.Printf("pipeline: run %s failed at %s: %v", runID, stage, err)
	s.events.LogAsync(runID, eventlog.EventRunFailed, map[string]any{
		"stage": string(stage),
		"error": err.Error(),
	})

	// Caller mistakes are not operational failures.
	if isUserError(err) {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("run_id", runID)
		scope.SetTag("stage", string(stage))
		sentry.CaptureException(err)
	})
	if s.notifier != nil {
		s.notifier.NotifyRunFailed(runID, string(stage), err)
	}
}

func isUserError(err error) bool {
	var decodeErr *extract.DecodeError
	var extractErr *extract.ExtractionError
	return errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, tts.ErrUnsupportedLanguage) ||
		errors.Is(err, extract.ErrUnsupportedFormat) ||
		errors.As(err, &decodeErr) ||
		errors.As(err, &extractErr)
}

func notify(p Progress, e Event) {
	if p != nil {
		p(e)
	}
}
