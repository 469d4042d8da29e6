package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWebhookNotifier_NoAlerts(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Fatalf("Notify(nil): %v", err)
	}
	if called {
		t.Fatal("expected no HTTP request for empty alerts")
	}
}

func TestWebhookNotifier_SendsAlerts(t *testing.T) {
	var body []byte
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	at := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	alerts := []Alert{
		{ID: "error-spike", Condition: ConditionErrorSpike, Severity: SeverityHigh, Message: "7 errors in the last 1h0m0s (threshold 5)", TriggeredAt: at},
		{ID: "slow-responses", Condition: ConditionSlowResponses, Severity: SeverityLow, Message: "average response time 3s exceeds 2s", TriggeredAt: at},
	}
	if err := NewWebhookNotifier(srv.URL).Notify(context.Background(), alerts); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", contentType)
	}
	var msg webhookMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if msg.Text != "supportbot: 2 alert(s)" {
		t.Errorf("Text = %q", msg.Text)
	}
	// header, section, divider, section
	if len(msg.Blocks) != 4 {
		t.Fatalf("len(Blocks) = %d, want 4", len(msg.Blocks))
	}
	if msg.Blocks[2].Type != "divider" {
		t.Errorf("Blocks[2].Type = %q, want divider", msg.Blocks[2].Type)
	}
	first := msg.Blocks[1].Text.Text
	for _, want := range []string{"[HIGH]", "`error_spike`", "7 errors", "2026-03-01 10:30 UTC"} {
		if !strings.Contains(first, want) {
			t.Errorf("section %q missing %q", first, want)
		}
	}
}

func TestWebhookNotifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Notify(context.Background(), []Alert{{ID: "x", Severity: SeverityLow}})
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("err = %v, want status 500 error", err)
	}
}

func TestSeverityEmoji(t *testing.T) {
	tests := []struct {
		severity AlertSeverity
		want     string
	}{
		{SeverityHigh, "\U0001f534"},
		{SeverityMedium, "\U0001f7e1"},
		{SeverityLow, "\U0001f535"},
		{"other", "❓"},
	}
	for _, tt := range tests {
		if got := severityEmoji(tt.severity); got != tt.want {
			t.Errorf("severityEmoji(%q) = %q, want %q", tt.severity, got, tt.want)
		}
	}
}
