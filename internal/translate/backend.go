package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// BackendConfig configures the HTTP translation backend. Any
// OpenAI-compatible chat completion endpoint works.
type BackendConfig struct {
	APIKey      string
	APIURL      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     int // seconds
}

func (c BackendConfig) validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("translation API key is required")
	}
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("translation API URL is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("translation model is required")
	}
	return nil
}

// HTTPBackend translates captions through a chat-completion style HTTP
// API. Thread-safe for concurrent use, though the queue manager only ever
// dispatches sequentially.
type HTTPBackend struct {
	config     BackendConfig
	httpClient *http.Client
	baseURL    string
}

// NewHTTPBackend creates a backend with the given configuration.
func NewHTTPBackend(config BackendConfig) (*HTTPBackend, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	return &HTTPBackend{
		config:  config,
		baseURL: strings.TrimSuffix(config.APIURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API error (%s): %s", e.Type, e.Message)
}

// Translate sends one caption line for translation and returns the
// translated text.
func (b *HTTPBackend) Translate(ctx context.Context, req Request) (Response, error) {
	source := req.SourceLang
	if source == "" {
		source = "the source language"
	}
	system := fmt.Sprintf(
		"You are a subtitle translator. Translate the user's text from %s to %s. "+
			"Reply with the translation only, no explanations or quotes.",
		source, req.TargetLang)

	payload := chatRequest{
		Model: b.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: req.Text},
		},
		MaxTokens:   b.config.MaxTokens,
		Temperature: b.config.Temperature,
	}

	parsed, err := b.makeRequest(ctx, payload)
	if err != nil {
		return Response{}, err
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fmt.Errorf("no choices in response")
	}

	translated := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if translated == "" {
		return Response{}, fmt.Errorf("empty translation in response")
	}
	return Response{TranslatedText: translated}, nil
}

func (b *HTTPBackend) makeRequest(ctx context.Context, payload chatRequest) (*chatResponse, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.config.APIKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return &parsed, parsed.Error
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &parsed, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(responseBody))
	}
	return &parsed, nil
}
