package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"UpdateSentinel/internal/config"
	"UpdateSentinel/internal/ports"
)

// Mailer delivers notifications through an HTTP mail gateway.
type Mailer struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
}

var _ ports.Mailer = (*Mailer)(nil)

// NewMailer registers the gateway endpoint and credentials.
func NewMailer(cfg config.AlertConfig) *Mailer {
	return &Mailer{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Send posts one message to the gateway.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if m.endpoint == "" || m.apiKey == "" {
		return fmt.Errorf("mail gateway misconfigured")
	}

	payload, err := json.Marshal(message{From: m.from, To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mail gateway error: %s", resp.Status)
	}
	return nil
}
