package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIClient implements Translator using OpenAI's chat completions API.
type OpenAIClient struct {
	apiKey      string
	model       string
	temperature float64
	url         string
	httpClient  *http.Client
}

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey      string
	Model       string  // e.g., "gpt-4o-mini"
	Temperature float64 // negative uses DefaultTemperature
	BaseURL     string  // overrides the chat completions URL
	HTTPClient  *http.Client
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	temperature := cfg.Temperature
	if temperature < 0 {
		temperature = DefaultTemperature
	}
	url := cfg.BaseURL
	if url == "" {
		url = openaiAPIURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIClient{
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: temperature,
		url:         url,
		httpClient:  httpClient,
	}
}

// chatRequest represents an OpenAI chat completion request.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse represents an OpenAI chat completion response.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Translate sends one chunk with the fixed translation instruction.
func (c *OpenAIClient) Translate(ctx context.Context, chunk, targetLanguage string) (*Translation, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: TranslationPrompt(chunk, targetLanguage)},
		},
		Temperature: c.temperature,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, requestError("openai", fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return nil, requestError("openai", fmt.Errorf("failed to create request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError("openai", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, statusError("openai", resp, respBody)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, &TranslationError{Provider: "openai", Kind: KindMalformedResponse, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(chatResp.Choices) == 0 {
		return nil, &TranslationError{Provider: "openai", Kind: KindEmptyResponse, Err: fmt.Errorf("no choices in response")}
	}

	text := cleanTranslation(chatResp.Choices[0].Message.Content)
	if text == "" {
		return nil, &TranslationError{Provider: "openai", Kind: KindEmptyResponse, Err: fmt.Errorf("empty translation")}
	}

	return &Translation{
		Text:         text,
		InputTokens:  chatResp.Usage.PromptTokens,
		OutputTokens: chatResp.Usage.CompletionTokens,
	}, nil
}
