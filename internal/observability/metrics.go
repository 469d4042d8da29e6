package observability

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/supportbot/internal/core"
)

// Metrics holds chat analytics derived from the event log.
type Metrics struct {
	Queries           int            `json:"queries"`
	Matched           int            `json:"matched"`
	Unmatched         int            `json:"unmatched"`
	MatchRate         float64        `json:"match_rate"`
	FollowUps         int            `json:"follow_ups"`
	AvgResponseMS     float64        `json:"avg_response_ms"`
	FeedbackHelpful   int            `json:"feedback_helpful"`
	FeedbackUnhelpful int            `json:"feedback_unhelpful"`
	SessionsStarted   int            `json:"sessions_started"`
	SessionsEnded     int            `json:"sessions_ended"`
	Resets            int            `json:"resets"`
	Errors            int            `json:"errors"`
	Retries           int            `json:"retries"`
	QueriesByCategory map[string]int `json:"queries_by_category"`
	EventCount        int            `json:"event_count"`
	OldestEvent       *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent       *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator that reads from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates every event at or after since. A zero since covers
// the whole log.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{QueriesByCategory: make(map[string]int)}
	m.EventCount = len(events)

	var totalResponseMS float64
	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case EventQuery:
			m.Queries++
			if dataBool(event.Data, "matched") {
				m.Matched++
				if category := dataString(event.Data, "category"); category != "" {
					m.QueriesByCategory[category]++
				}
			} else {
				m.Unmatched++
			}
			if c, ok := dataFloat(event.Data, "confidence"); ok && c == core.FollowUpConfidence {
				m.FollowUps++
			}
			if ms, ok := dataFloat(event.Data, "response_time_ms"); ok {
				totalResponseMS += ms
			}
		case EventFeedback:
			if dataBool(event.Data, "helpful") {
				m.FeedbackHelpful++
			} else {
				m.FeedbackUnhelpful++
			}
		case EventSessionStart:
			m.SessionsStarted++
		case EventSessionEnd:
			m.SessionsEnded++
		case "reset_chat":
			m.Resets++
		case EventError:
			m.Errors++
			if dataString(event.Data, "component") == "message_retry" {
				m.Retries++
			}
		}
	}

	if m.Queries > 0 {
		m.MatchRate = float64(m.Matched) / float64(m.Queries)
		m.AvgResponseMS = totalResponseMS / float64(m.Queries)
	}
	return m, nil
}
