package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"UpdateSentinel/internal/config"
)

func TestSendPostsMessage(t *testing.T) {
	t.Parallel()

	var got message
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	mailer := NewMailer(config.AlertConfig{
		Endpoint: server.URL,
		APIKey:   "secret",
		From:     "sentinel@course.local",
	})

	err := mailer.Send(context.Background(), "ops@course.local", "[SEV1] test", "body text")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if auth != "Bearer secret" {
		t.Fatalf("unexpected authorization header %q", auth)
	}
	if got.To != "ops@course.local" || got.Subject != "[SEV1] test" || got.From != "sentinel@course.local" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestSendGatewayError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	mailer := NewMailer(config.AlertConfig{Endpoint: server.URL, APIKey: "secret"})
	if err := mailer.Send(context.Background(), "ops@course.local", "s", "b"); err == nil {
		t.Fatalf("expected error on gateway failure")
	}
}

func TestSendMisconfigured(t *testing.T) {
	t.Parallel()

	mailer := NewMailer(config.AlertConfig{})
	if err := mailer.Send(context.Background(), "ops@course.local", "s", "b"); err == nil {
		t.Fatalf("expected error when gateway is not configured")
	}
}
