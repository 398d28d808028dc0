package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second
)

// OpenAIConfig configures the OpenAI-compatible adapter.
type OpenAIConfig struct {
	// APIKey is the bearer token for the API.
	APIKey string
	// BaseURL overrides the API endpoint (useful for local models or any
	// OpenAI-compatible gateway). Defaults to https://api.openai.com/v1.
	BaseURL string
	// Timeout for each HTTP request. Defaults to 120s.
	Timeout time.Duration
}

// openAIProvider implements Provider using the OpenAI chat completions API.
type openAIProvider struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAI returns a Provider backed by an OpenAI-compatible chat API.
// The returned provider is safe for concurrent use.
func NewOpenAI(cfg OpenAIConfig) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &openAIProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// --- wire types (minimal subset of the OpenAI API) ---

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiRequest struct {
	Model     string       `json:"model"`
	Messages  []oaiMessage `json:"messages"`
	MaxTokens int          `json:"max_tokens,omitempty"`
}

type oaiResponse struct {
	Choices []oaiChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type oaiChoice struct {
	Message oaiMessage `json:"message"`
}

// capacityErrorTypes are the API error types that signal rate or quota
// exhaustion rather than a hard failure.
var capacityErrorTypes = map[string]bool{
	"rate_limit_exceeded": true,
	"insufficient_quota":  true,
	"quota_exceeded":      true,
}

// Complete submits the prompt as a single user message in a fresh context.
func (p *openAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	body := oaiRequest{
		Model: req.Model,
		Messages: []oaiMessage{
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens: req.MaxTokens,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/chat/completions",
		bytes.NewReader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("llm: create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response body: %w", err)
	}

	// Classify capacity refusals before decoding so the gateway can fall
	// back. Proxies and bare rate limiters send 429 with non-JSON bodies.
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("llm: model %s HTTP 429: %w", req.Model, ErrCapacity)
	}

	var oaiResp oaiResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return nil, fmt.Errorf("llm: decode API response: %w", err)
	}

	if oaiResp.Error != nil {
		if capacityErrorTypes[oaiResp.Error.Type] {
			return nil, fmt.Errorf("llm: model %s %s: %s: %w",
				req.Model, oaiResp.Error.Type, oaiResp.Error.Message, ErrCapacity)
		}
		return nil, fmt.Errorf("llm: API error (%s): %s", oaiResp.Error.Type, oaiResp.Error.Message)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("llm: unexpected HTTP status %d", resp.StatusCode)
	}

	if len(oaiResp.Choices) == 0 {
		return nil, fmt.Errorf("llm: no choices returned")
	}

	return &CompletionResponse{Text: oaiResp.Choices[0].Message.Content}, nil
}

// Compile-time interface satisfaction check.
var _ Provider = (*openAIProvider)(nil)
