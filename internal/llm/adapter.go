package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ai-flowx/promptforge/internal/retry"
)

// AdapterConfig configures one HTTPAdapter instance. RecognizedModels, when
// non-empty, restricts ChatCompletion to a closed set of model names —
// anything else fails fast with UnsupportedModelError instead of reaching
// the network.
type AdapterConfig struct {
	Name             string
	APIKey           string
	BaseURL          string
	DefaultModel     string
	RecognizedModels []string
}

// HTTPAdapter is a generic OpenAI-compatible chat-completion client: POST
// {model, messages, temperature:0} with bearer auth, expect
// {choices:[{message:{content}}]} back. This shape is shared by OpenRouter
// and every "openai-compatible" gateway, so one adapter type serves both
// names registered in the registry.
type HTTPAdapter struct {
	name         string
	apiKey       string
	baseURL      string
	defaultModel string
	recognized   map[string]bool

	httpClient *http.Client
	policy     retry.Policy
	logger     *slog.Logger
}

// NewHTTPAdapter builds an adapter backed by httpClient (see
// internal/transport.NewHTTPClient), retrying transient failures per
// policy.
func NewHTTPAdapter(cfg AdapterConfig, httpClient *http.Client, policy retry.Policy, logger *slog.Logger) *HTTPAdapter {
	var recognized map[string]bool
	if len(cfg.RecognizedModels) > 0 {
		recognized = make(map[string]bool, len(cfg.RecognizedModels))
		for _, m := range cfg.RecognizedModels {
			recognized[m] = true
		}
	}
	return &HTTPAdapter{
		name:         cfg.Name,
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		recognized:   recognized,
		httpClient:   httpClient,
		policy:       policy,
		logger:       logger,
	}
}

func (a *HTTPAdapter) Name() string { return a.name }

// ChatCompletion builds a {system, user} conversation and invokes the
// configured endpoint at temperature 0, per spec.md §4.3. An empty
// systemPrompt leaves the system message out, so only the user message is
// sent.
func (a *HTTPAdapter) ChatCompletion(ctx context.Context, userPrompt string, systemPrompt string) (string, error) {
	model := a.defaultModel
	if a.recognized != nil && !a.recognized[model] {
		return "", &UnsupportedModelError{Model: model}
	}

	messages := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	reqBody := chatRequest{Model: model, Messages: messages, Temperature: 0}
	buf, err := json.Marshal(reqBody)
	if err != nil {
		return "", &TransportError{Cause: fmt.Errorf("marshal request: %w", err)}
	}

	resp, body, err := retry.DoHTTP(ctx, a.policy, a.logger, func(ctx context.Context) (*http.Response, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(buf))
		if err != nil {
			return nil, nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if a.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+a.apiKey)
		}

		httpResp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, nil, err
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return httpResp, nil, fmt.Errorf("read response: %w", err)
		}
		return httpResp, respBody, nil
	})
	if err != nil {
		return "", &TransportError{Cause: err}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if resp.StatusCode >= 300 {
		return "", &TransportError{Cause: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ErrorSentinelResponse, nil
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return ErrorSentinelResponse, nil
	}
	return parsed.Choices[0].Message.Content, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
