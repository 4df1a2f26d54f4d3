package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lukasbauer/voxlate/internal/chunk"
)

const googleTranslateTTSURL = "https://translate.google.com/translate_tts"

// googleMaxChars is the longest input the translate_tts endpoint accepts.
const googleMaxChars = 100

// GoogleTranslateClient implements Synthesizer with Google Translate's
// public speech endpoint. No API key is needed.
type GoogleTranslateClient struct {
	url        string
	httpClient *http.Client
}

// GoogleTranslateConfig holds configuration for the Google Translate client.
type GoogleTranslateConfig struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewGoogleTranslateClient creates a new Google Translate speech client.
func NewGoogleTranslateClient(cfg GoogleTranslateConfig) *GoogleTranslateClient {
	u := cfg.BaseURL
	if u == "" {
		u = googleTranslateTTSURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &GoogleTranslateClient{url: u, httpClient: httpClient}
}

// Synthesize speaks the text piece by piece and concatenates the MP3
// streams, which play back as one clip.
func (c *GoogleTranslateClient) Synthesize(ctx context.Context, text, languageCode string) (*Audio, error) {
	parts := chunk.Split(text, googleMaxChars)
	if len(parts) == 0 {
		return nil, &SynthesisError{Provider: "google", Err: fmt.Errorf("no text to speak")}
	}

	var out bytes.Buffer
	for i, part := range parts {
		data, err := c.fetch(ctx, part, languageCode, i, len(parts))
		if err != nil {
			return nil, &SynthesisError{Provider: "google", Err: fmt.Errorf("part %d/%d: %w", i+1, len(parts), err)}
		}
		out.Write(data)
	}

	return &Audio{Data: out.Bytes(), Format: "mp3", LanguageCode: languageCode}, nil
}

func (c *GoogleTranslateClient) fetch(ctx context.Context, text, lang string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", text)
	q.Set("textlen", strconv.Itoa(len([]rune(text))))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("total", strconv.Itoa(total))

	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0")
	httpReq.Header.Set("Referer", "https://translate.google.com/")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API error: %s - %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio response")
	}
	return data, nil
}
