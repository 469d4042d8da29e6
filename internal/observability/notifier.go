package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Notifier posts triggered alerts to an external channel.
type Notifier interface {
	Notify(ctx context.Context, alerts []Alert) error
}

// webhookNotifier posts Slack-compatible block messages to an incoming
// webhook URL.
type webhookNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewWebhookNotifier creates a Notifier posting to webhookURL.
func NewWebhookNotifier(webhookURL string) Notifier {
	return &webhookNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookMessage struct {
	Text   string         `json:"text"`
	Blocks []webhookBlock `json:"blocks"`
}

type webhookBlock struct {
	Type string       `json:"type"`
	Text *webhookText `json:"text,omitempty"`
}

type webhookText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify posts alerts. It makes no request when there are none.
func (n *webhookNotifier) Notify(ctx context.Context, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	body, err := json.Marshal(buildWebhookMessage(alerts))
	if err != nil {
		return fmt.Errorf("marshalling alert message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func buildWebhookMessage(alerts []Alert) webhookMessage {
	msg := webhookMessage{
		Text: fmt.Sprintf("supportbot: %d alert(s)", len(alerts)),
		Blocks: []webhookBlock{{
			Type: "header",
			Text: &webhookText{Type: "plain_text", Text: "supportbot alerts"},
		}},
	}
	for i, alert := range alerts {
		if i > 0 {
			msg.Blocks = append(msg.Blocks, webhookBlock{Type: "divider"})
		}
		text := fmt.Sprintf("%s *[%s]* `%s` %s\n_%s_",
			severityEmoji(alert.Severity),
			strings.ToUpper(string(alert.Severity)),
			alert.Condition,
			alert.Message,
			alert.TriggeredAt.UTC().Format("2006-01-02 15:04 UTC"),
		)
		msg.Blocks = append(msg.Blocks, webhookBlock{
			Type: "section",
			Text: &webhookText{Type: "mrkdwn", Text: text},
		})
	}
	return msg
}

func severityEmoji(severity AlertSeverity) string {
	switch severity {
	case SeverityHigh:
		return "\U0001f534"
	case SeverityMedium:
		return "\U0001f7e1"
	case SeverityLow:
		return "\U0001f535"
	default:
		return "❓"
	}
}
