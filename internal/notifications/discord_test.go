package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDiscordEnabled(t *testing.T) {
	logger := log.New(io.Discard, "", 0)

	if NewDiscord("", logger).Enabled() {
		t.Error("Enabled() should be false without webhook URL")
	}
	if !NewDiscord("https://discord.example/webhook", logger).Enabled() {
		t.Error("Enabled() should be true with webhook URL")
	}

	var d *Discord
	if d.Enabled() {
		t.Error("nil Discord should not be enabled")
	}
	// Should not panic
	d.NotifyRunFailed("run-1", "translation", errors.New("boom"))
}

func TestRunFailedMessage(t *testing.T) {
	msg := runFailedMessage("run-42", "synthesis", errors.New("service unavailable"))

	if len(msg.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(msg.Embeds))
	}
	embed := msg.Embeds[0]
	if !strings.Contains(embed.Description, "service unavailable") {
		t.Errorf("Description = %q", embed.Description)
	}
	if len(embed.Fields) != 2 || embed.Fields[0].Value != "`run-42`" || embed.Fields[1].Value != "synthesis" {
		t.Errorf("Fields = %+v", embed.Fields)
	}
}

func TestDiscordPost(t *testing.T) {
	var got discordMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, log.New(io.Discard, "", 0))
	if err := d.post(context.Background(), runFailedMessage("run-1", "translation", errors.New("x"))); err != nil {
		t.Fatalf("post() error = %v", err)
	}
	if len(got.Embeds) != 1 || got.Embeds[0].Title != "Translation run failed" {
		t.Errorf("received = %+v", got)
	}
}

func TestDiscordPostError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, log.New(io.Discard, "", 0))
	if err := d.post(context.Background(), discordMessage{Content: "x"}); err == nil {
		t.Error("post() should fail on 400")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("ábcdef", 3); got != "ábc…" {
		t.Errorf("truncate() = %q, want %q", got, "ábc…")
	}
}
