package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient implements Translator using the Gemini generateContent API.
type GeminiClient struct {
	apiKey      string
	model       string
	temperature float64
	baseURL     string
	httpClient  *http.Client
}

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey      string
	Model       string  // e.g., "gemini-1.5-flash"
	Temperature float64 // negative uses DefaultTemperature
	BaseURL     string
	HTTPClient  *http.Client
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	temperature := cfg.Temperature
	if temperature < 0 {
		temperature = DefaultTemperature
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = geminiAPIURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &GeminiClient{
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: temperature,
		baseURL:     baseURL,
		httpClient:  httpClient,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generateRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Translate sends one chunk with the fixed translation instruction.
func (c *GeminiClient) Translate(ctx context.Context, chunk, targetLanguage string) (*Translation, error) {
	var req generateRequest
	req.Contents = []geminiContent{{
		Role:  "user",
		Parts: []geminiPart{{Text: TranslationPrompt(chunk, targetLanguage)}},
	}}
	req.GenerationConfig.Temperature = c.temperature

	body, err := json.Marshal(req)
	if err != nil {
		return nil, requestError("gemini", fmt.Errorf("failed to marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, requestError("gemini", fmt.Errorf("failed to create request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError("gemini", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, statusError("gemini", resp, respBody)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, &TranslationError{Provider: "gemini", Kind: KindMalformedResponse, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if genResp.PromptFeedback.BlockReason != "" {
		return nil, &TranslationError{Provider: "gemini", Kind: KindService, Err: fmt.Errorf("prompt blocked: %s", genResp.PromptFeedback.BlockReason)}
	}
	if len(genResp.Candidates) == 0 {
		return nil, &TranslationError{Provider: "gemini", Kind: KindEmptyResponse, Err: fmt.Errorf("no candidates in response")}
	}

	var sb strings.Builder
	for _, p := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := cleanTranslation(sb.String())
	if text == "" {
		return nil, &TranslationError{
			Provider: "gemini",
			Kind:     KindEmptyResponse,
			Err:      fmt.Errorf("empty translation (finish reason %q)", genResp.Candidates[0].FinishReason),
		}
	}

	return &Translation{
		Text:         text,
		InputTokens:  genResp.UsageMetadata.PromptTokenCount,
		OutputTokens: genResp.UsageMetadata.CandidatesTokenCount,
	}, nil
}
