package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"UpdateSentinel/internal/config"
)

// SchemaError reports model output that does not match the expected
// structure. Recoverable at the call site; partial output is never used.
type SchemaError struct {
	Contract string
	Reason   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("llm %s: schema mismatch: %s", e.Contract, e.Reason)
}

// Client talks to an OpenAI-compatible chat completions endpoint and
// enforces JSON-object responses.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a client from configuration.
func NewClient(cfg config.OpenAIConfig) *Client {
	return &Client{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// completeJSON posts one system+user exchange and decodes the model's
// JSON object reply into out.
func (c *Client) completeJSON(ctx context.Context, contract, system, user string, temperature float64, out any) error {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return fmt.Errorf("llm client misconfigured")
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	}
	reqBody.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s call: %w", contract, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s call: %s: %s", contract, resp.Status, strings.TrimSpace(string(detail)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return &SchemaError{Contract: contract, Reason: fmt.Sprintf("decode envelope: %v", err)}
	}
	if len(chat.Choices) == 0 {
		return &SchemaError{Contract: contract, Reason: "no choices in response"}
	}

	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), out); err != nil {
		return &SchemaError{Contract: contract, Reason: fmt.Sprintf("decode content: %v", err)}
	}
	return nil
}
