package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventType represents the type of pipeline run event
type EventType string

const (
	EventRunStarted           EventType = "run_started"
	EventExtractionCompleted  EventType = "extraction_completed"
	EventChunkTranslated      EventType = "chunk_translated"
	EventTranslationCompleted EventType = "translation_completed"
	EventSynthesisCompleted   EventType = "synthesis_completed"
	EventRunFailed            EventType = "run_failed"
	EventRunCompleted         EventType = "run_completed"
)

// Schema creates the run_events table. Applied by Migrate.
const Schema = `
CREATE TABLE IF NOT EXISTS run_events (
	id         BIGSERIAL PRIMARY KEY,
	run_id     TEXT NOT NULL,
	event_type TEXT NOT NULL,
	event_data JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS run_events_run_id_idx ON run_events (run_id);
`

// Logger records run metadata (sizes, counts, timings, errors). Source and
// translated text are never written.
type Logger struct {
	db *pgxpool.Pool
}

// New creates a new event logger
func New(db *pgxpool.Pool) *Logger {
	return &Logger{db: db}
}

// Migrate creates the events table if it does not exist.
func (l *Logger) Migrate(ctx context.Context) error {
	if l.db == nil {
		return nil
	}
	_, err := l.db.Exec(ctx, Schema)
	return err
}

// Log writes an event to the database synchronously
func (l *Logger) Log(ctx context.Context, runID string, eventType EventType, data map[string]any) error {
	if l == nil || l.db == nil || runID == "" {
		return nil // Silently skip if no DB or run ID
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		dataJSON = []byte("{}")
	}

	_, err = l.db.Exec(ctx, `
		INSERT INTO run_events (run_id, event_type, event_data)
		VALUES ($1, $2, $3)
	`, runID, string(eventType), dataJSON)

	return err
}

// LogAsync logs an event without blocking the caller
func (l *Logger) LogAsync(runID string, eventType EventType, data map[string]any) {
	if l == nil || l.db == nil || runID == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.Log(ctx, runID, eventType, data)
	}()
}
