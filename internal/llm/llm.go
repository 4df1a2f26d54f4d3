package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// DefaultTemperature keeps decoding close to deterministic so repeated
// requests with the same input give the same translation.
const DefaultTemperature = 0.2

// Translation is the model output for one chunk.
type Translation struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Translator translates one chunk of English text at a time.
type Translator interface {
	// Translate returns only the translated text of chunk in the named
	// target language (display name, e.g. "Spanish").
	Translate(ctx context.Context, chunk, targetLanguage string) (*Translation, error)
}

// ErrorKind classifies translation failures.
type ErrorKind string

const (
	KindNetwork           ErrorKind = "network"
	KindRateLimit         ErrorKind = "rate_limit"
	KindService           ErrorKind = "service"
	KindEmptyResponse     ErrorKind = "empty_response"
	KindMalformedResponse ErrorKind = "malformed_response"
)

// TranslationError is returned for every failed translation request.
// Requests are never retried.
type TranslationError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("%s translation failed (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// statusError maps a non-200 response to a TranslationError.
func statusError(provider string, resp *http.Response, body []byte) *TranslationError {
	kind := KindService
	if resp.StatusCode == http.StatusTooManyRequests {
		kind = KindRateLimit
	}
	return &TranslationError{
		Provider: provider,
		Kind:     kind,
		Err:      fmt.Errorf("API error: %s - %s", resp.Status, strings.TrimSpace(string(body))),
	}
}

// requestError reports a request that could not be built, e.g. a bad base URL.
func requestError(provider string, err error) *TranslationError {
	return &TranslationError{Provider: provider, Kind: KindService, Err: err}
}

func transportError(provider string, err error) *TranslationError {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TranslationError{Provider: provider, Kind: KindNetwork, Err: err}
	}
	return &TranslationError{Provider: provider, Kind: KindNetwork, Err: fmt.Errorf("failed to send request: %w", err)}
}

// cleanTranslation strips wrappers models sometimes add despite the
// instruction: code fences and a single pair of surrounding quotes.
func cleanTranslation(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if i := strings.IndexByte(content, '\n'); i >= 0 && !strings.Contains(content[:i], " ") {
			content = content[i+1:] // language tag line
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	content = strings.TrimSpace(content)

	for _, q := range [][2]string{{`"`, `"`}, {"“", "”"}, {"«", "»"}} {
		if len(content) > len(q[0])+len(q[1]) && strings.HasPrefix(content, q[0]) && strings.HasSuffix(content, q[1]) {
			inner := content[len(q[0]) : len(content)-len(q[1])]
			if !strings.Contains(inner, q[0]) && !strings.Contains(inner, q[1]) {
				content = strings.TrimSpace(inner)
			}
			break
		}
	}
	return content
}
