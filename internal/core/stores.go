package core

import (
	"time"

	"github.com/valter-silva-au/supportbot/pkg/models"
)

// Telemetry records analytics for a chat session.
// This interface is defined locally in core to avoid importing observability.
// Failures are logged by the caller and otherwise ignored.
type Telemetry interface {
	TrackEvent(eventType string, data map[string]any) error
	TrackQuery(query string, matched *models.KnowledgeItem, confidence float64, responseTime time.Duration) (string, error)
	TrackFeedback(queryID string, helpful bool, comment string) error
	StartSession(userAgent string) (string, error)
	EndSession(sessionID string, summary models.SessionSummary) error
}

// ErrorReporter records errors with a component tag and optional context.
// This interface is defined locally in core to avoid importing observability.
type ErrorReporter interface {
	LogError(err error, component string, context map[string]any) models.ErrorDetails
}

// VisitTracker persists whether this user has chatted before.
// This interface is defined locally in core to avoid importing storage.
type VisitTracker interface {
	Visited() (bool, error)
	MarkVisited() error
}

// Deliverer hands bot messages to whatever renders them. Delivery is
// expected to return promptly; the host applies BotMessage.Delay itself.
type Deliverer interface {
	Deliver(msg BotMessage) error
}

// RetryNotifier is optionally implemented by a Deliverer that wants to show
// retry progress for the turn in flight.
type RetryNotifier interface {
	RetryAttempt(generation uint64, attempt, maxAttempts int)
}
