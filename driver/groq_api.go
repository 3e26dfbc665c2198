package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"intel-agent/config"
	apperrors "intel-agent/utils/errors"
)

// ChatMessage is one message in a chat-completions request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMClient is the remote text-generation contract used by the digest
// service. Implementations must never block past their configured timeout.
type LLMClient interface {
	Complete(ctx context.Context, model string, messages []ChatMessage, temperature float64) (string, error)
	CompleteWithFallback(ctx context.Context, candidates []string, messages []ChatMessage, temperature float64) (string, error)
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GroqClient calls the Groq OpenAI-compatible chat-completions endpoint.
type GroqClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGroqClient creates a Groq API client from config. The request timeout
// is enforced by the underlying HTTP client.
func NewGroqClient(cfg *config.GroqConfig, logger *slog.Logger) *GroqClient {
	return &GroqClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Complete sends one chat-completions request and returns the trimmed
// content of the first choice.
func (c *GroqClient) Complete(ctx context.Context, model string, messages []ChatMessage, temperature float64) (string, error) {
	payload, err := json.Marshal(chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", apperrors.ExternalAPIError("failed to encode chat request", err, map[string]interface{}{"model": model})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.ExternalAPIError("failed to create chat request", err, map[string]interface{}{"model": model})
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.ExternalAPIError("chat request failed", err, map[string]interface{}{"model": model})
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("chat API returned non-200 status", "model", model, "status", resp.Status, "body", string(body))

		return "", apperrors.ExternalAPIError(
			fmt.Sprintf("chat request failed with status %s", resp.Status),
			nil,
			map[string]interface{}{"model": model, "status_code": resp.StatusCode},
		)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.ExternalAPIError("failed to read chat response", err, map[string]interface{}{"model": model})
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", apperrors.ExternalAPIError("failed to parse chat response", err, map[string]interface{}{"model": model})
	}

	if len(parsed.Choices) == 0 {
		return "", apperrors.ExternalAPIError("chat response has no choices", nil, map[string]interface{}{"model": model})
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// CompleteWithFallback tries each candidate model in order and returns the
// first successful completion. All candidates failing is a single error; the
// caller decides whether to fall back to local generation.
func (c *GroqClient) CompleteWithFallback(ctx context.Context, candidates []string, messages []ChatMessage, temperature float64) (string, error) {
	var lastErr error

	for _, model := range candidates {
		text, err := c.Complete(ctx, model, messages, temperature)
		if err == nil {
			return text, nil
		}

		c.logger.Warn("model attempt failed, trying next candidate", "model", model, "error", err)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = apperrors.ExternalAPIError("no model candidates configured", nil, nil)
	}

	return "", fmt.Errorf("all model candidates exhausted: %w", lastErr)
}
