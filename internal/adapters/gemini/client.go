// Package gemini implements ports.LanguageModel on the Gemini generateContent
// REST API with function calling.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samirrijal/digipin/internal/core/domain"
)

const (
	DefaultModel   = "models/gemini-1.5-flash"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	maxResponseBytes = 4 << 20
)

// ErrNoAPIKey is returned by New when the API key is empty.
var ErrNoAPIKey = errors.New("gemini: api key is required")

// HTTPClient is the subset of *http.Client used by Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default *http.Client.
	HTTPClient HTTPClient
}

// Client talks to the Gemini REST API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient HTTPClient
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrNoAPIKey
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		apiKey:     key,
		model:      NormalizeModel(cfg.Model),
		baseURL:    baseURL,
		httpClient: hc,
	}, nil
}

// NormalizeModel returns name in the "models/..." form.
func NormalizeModel(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultModel
	}
	if strings.HasPrefix(name, "models/") {
		return name
	}
	return "models/" + name
}

// Model returns the normalised model name.
func (c *Client) Model() string { return c.model }

// APIError is a non-200 response from the API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini: %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini: %d: %s", e.StatusCode, e.Message)
}

// Generate sends req to generateContent and returns the first candidate.
func (c *Client) Generate(ctx context.Context, req *domain.ModelRequest) (*domain.ModelResponse, error) {
	body, err := json.Marshal(toWire(req))
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini: request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("gemini: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var wrapped errorResponse
		if json.Unmarshal(data, &wrapped) == nil && wrapped.Error.Message != "" {
			apiErr.Status = wrapped.Error.Status
			apiErr.Message = wrapped.Error.Message
		}
		return nil, apiErr
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(out.Candidates) == 0 {
		if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("gemini: prompt blocked: %s", out.PromptFeedback.BlockReason)
		}
		return &domain.ModelResponse{Content: domain.ChatContent{Role: domain.RoleModel}}, nil
	}
	return fromWire(out.Candidates[0]), nil
}
