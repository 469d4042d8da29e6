package observability

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/supportbot/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert conditions.
const (
	ConditionUnmatchedRate    = "unmatched_rate"
	ConditionErrorSpike       = "error_spike"
	ConditionNegativeFeedback = "negative_feedback"
	ConditionSlowResponses    = "slow_responses"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

type alertEngine struct {
	eventLog   EventLog
	thresholds models.AlertConfig
	now        func() time.Time
}

// AlertOption configures an AlertEngine.
type AlertOption func(*alertEngine)

// WithAlertClock overrides the evaluation time source.
func WithAlertClock(now func() time.Time) AlertOption {
	return func(ae *alertEngine) { ae.now = now }
}

// NewAlertEngine creates an AlertEngine with the given EventLog and
// thresholds.
func NewAlertEngine(eventLog EventLog, thresholds models.AlertConfig, opts ...AlertOption) AlertEngine {
	ae := &alertEngine{eventLog: eventLog, thresholds: thresholds, now: time.Now}
	for _, opt := range opts {
		opt(ae)
	}
	return ae
}

// Evaluate checks every condition and returns the alerts that fire, in
// a fixed condition order. Rate conditions cover the whole log; the error
// spike covers the trailing error window.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	now := ae.now().UTC()

	m, err := NewMetricsCalculator(ae.eventLog).Calculate(time.Time{})
	if err != nil {
		return nil, fmt.Errorf("evaluating alerts: %w", err)
	}

	var alerts []Alert
	if a, ok := ae.checkUnmatchedRate(m, now); ok {
		alerts = append(alerts, a)
	}

	spike, ok, err := ae.checkErrorSpike(now)
	if err != nil {
		return nil, fmt.Errorf("checking error spike: %w", err)
	}
	if ok {
		alerts = append(alerts, spike)
	}

	if a, ok := ae.checkNegativeFeedback(m, now); ok {
		alerts = append(alerts, a)
	}
	if a, ok := ae.checkSlowResponses(m, now); ok {
		alerts = append(alerts, a)
	}
	return alerts, nil
}

// checkUnmatchedRate fires when too many queries fall back to the
// generator, once enough queries have been seen.
func (ae *alertEngine) checkUnmatchedRate(m *Metrics, now time.Time) (Alert, bool) {
	if m.Queries == 0 || m.Queries < ae.thresholds.MinQueries {
		return Alert{}, false
	}
	rate := float64(m.Unmatched) / float64(m.Queries)
	if rate <= ae.thresholds.UnmatchedRate {
		return Alert{}, false
	}
	return Alert{
		ID:          "unmatched-rate",
		Condition:   ConditionUnmatchedRate,
		Severity:    SeverityMedium,
		Message:     fmt.Sprintf("%.0f%% of %d queries had no catalog match (threshold %.0f%%)", rate*100, m.Queries, ae.thresholds.UnmatchedRate*100),
		TriggeredAt: now,
	}, true
}

// checkErrorSpike counts error events inside the trailing window.
func (ae *alertEngine) checkErrorSpike(now time.Time) (Alert, bool, error) {
	if ae.thresholds.ErrorSpike <= 0 {
		return Alert{}, false, nil
	}
	since := now.Add(-ae.thresholds.ErrorWindow)
	events, err := ae.eventLog.Read(EventFilter{Since: &since, Type: EventError})
	if err != nil {
		return Alert{}, false, err
	}
	if len(events) < ae.thresholds.ErrorSpike {
		return Alert{}, false, nil
	}
	return Alert{
		ID:          "error-spike",
		Condition:   ConditionErrorSpike,
		Severity:    SeverityHigh,
		Message:     fmt.Sprintf("%d errors in the last %s (threshold %d)", len(events), ae.thresholds.ErrorWindow, ae.thresholds.ErrorSpike),
		TriggeredAt: now,
	}, true, nil
}

// checkNegativeFeedback fires when the share of unhelpful ratings is too
// high, once enough ratings have been given.
func (ae *alertEngine) checkNegativeFeedback(m *Metrics, now time.Time) (Alert, bool) {
	total := m.FeedbackHelpful + m.FeedbackUnhelpful
	if total == 0 || total < ae.thresholds.MinFeedback {
		return Alert{}, false
	}
	rate := float64(m.FeedbackUnhelpful) / float64(total)
	if rate <= ae.thresholds.NegativeFeedback {
		return Alert{}, false
	}
	return Alert{
		ID:          "negative-feedback",
		Condition:   ConditionNegativeFeedback,
		Severity:    SeverityMedium,
		Message:     fmt.Sprintf("%d of %d answers were rated unhelpful", m.FeedbackUnhelpful, total),
		TriggeredAt: now,
	}, true
}

// checkSlowResponses fires when the average time to answer exceeds the
// threshold.
func (ae *alertEngine) checkSlowResponses(m *Metrics, now time.Time) (Alert, bool) {
	if ae.thresholds.SlowResponse <= 0 || m.Queries == 0 || m.Queries < ae.thresholds.MinQueries {
		return Alert{}, false
	}
	avg := time.Duration(m.AvgResponseMS * float64(time.Millisecond))
	if avg <= ae.thresholds.SlowResponse {
		return Alert{}, false
	}
	return Alert{
		ID:          "slow-responses",
		Condition:   ConditionSlowResponses,
		Severity:    SeverityLow,
		Message:     fmt.Sprintf("average response time %s exceeds %s", avg.Round(time.Millisecond), ae.thresholds.SlowResponse),
		TriggeredAt: now,
	}, true
}
