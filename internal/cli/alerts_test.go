package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/supportbot/internal/observability"
)

func resetAlertFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		alertsNotify = false
		alertsWebhook = ""
	})
}

func twoAlerts() ([]observability.Alert, error) {
	return []observability.Alert{
		{Severity: observability.SeverityHigh, Message: "70% of questions went unanswered", TriggeredAt: time.Now().UTC()},
		{Severity: observability.SeverityLow, Message: "average response time is 2.4s", TriggeredAt: time.Now().UTC()},
	}, nil
}

func TestAlertsCmd_NilEngine(t *testing.T) {
	withServices(t)
	AlertEngine = nil

	_, err := runCmd(t, alertsCmd)
	if err == nil {
		t.Fatal("expected error when AlertEngine is nil")
	}
	if !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAlertsCmd_NoAlerts(t *testing.T) {
	withServices(t)

	out, err := runCmd(t, alertsCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No active alerts.") {
		t.Errorf("output = %q, want 'No active alerts.'", out)
	}
}

func TestAlertsCmd_WithAlerts(t *testing.T) {
	withServices(t)
	AlertEngine = &alertsMock{evaluateFn: twoAlerts}

	out, err := runCmd(t, alertsCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"2 active alert(s)", "[HIGH] 70% of questions went unanswered", "[LOW]"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestAlertsCmd_EvaluateError(t *testing.T) {
	withServices(t)
	AlertEngine = &alertsMock{evaluateFn: func() ([]observability.Alert, error) {
		return nil, fmt.Errorf("event log read failure")
	}}

	_, err := runCmd(t, alertsCmd)
	if err == nil {
		t.Fatal("expected error from Evaluate")
	}
	if !strings.Contains(err.Error(), "evaluating alerts") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAlertsCmd_NotifyWithoutNotifier(t *testing.T) {
	withServices(t)
	resetAlertFlags(t)
	AlertEngine = &alertsMock{evaluateFn: twoAlerts}
	Notifier = nil
	if err := alertsCmd.Flags().Set("notify", "true"); err != nil {
		t.Fatalf("setting flag: %v", err)
	}

	_, err := runCmd(t, alertsCmd)
	if err == nil || !strings.Contains(err.Error(), "notifier not configured") {
		t.Errorf("err = %v, want notifier not configured", err)
	}
}

func TestAlertsCmd_NotifySuccess(t *testing.T) {
	withServices(t)
	resetAlertFlags(t)
	AlertEngine = &alertsMock{evaluateFn: twoAlerts}

	var notified []observability.Alert
	Notifier = &notifierMock{notifyFn: func(alerts []observability.Alert) error {
		notified = alerts
		return nil
	}}
	if err := alertsCmd.Flags().Set("notify", "true"); err != nil {
		t.Fatalf("setting flag: %v", err)
	}

	out, err := runCmd(t, alertsCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notified) != 2 {
		t.Errorf("expected 2 alerts notified, got %d", len(notified))
	}
	if !strings.Contains(out, "Sent 2 alert(s)") {
		t.Errorf("output = %q, want 'Sent 2 alert(s)'", out)
	}
}

func TestAlertsCmd_NotifyError(t *testing.T) {
	withServices(t)
	resetAlertFlags(t)
	AlertEngine = &alertsMock{evaluateFn: twoAlerts}
	Notifier = &notifierMock{notifyFn: func([]observability.Alert) error {
		return fmt.Errorf("webhook returned 500")
	}}
	if err := alertsCmd.Flags().Set("notify", "true"); err != nil {
		t.Fatalf("setting flag: %v", err)
	}

	_, err := runCmd(t, alertsCmd)
	if err == nil || !strings.Contains(err.Error(), "sending notifications") {
		t.Errorf("err = %v, want sending notifications", err)
	}
}

func TestAlertsCmd_WebhookFlag(t *testing.T) {
	withServices(t)
	resetAlertFlags(t)
	AlertEngine = &alertsMock{evaluateFn: twoAlerts}

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding webhook body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := alertsCmd.Flags().Set("webhook", srv.URL); err != nil {
		t.Fatalf("setting flag: %v", err)
	}

	if _, err := runCmd(t, alertsCmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body == nil {
		t.Error("expected the webhook to receive a payload")
	}
}
