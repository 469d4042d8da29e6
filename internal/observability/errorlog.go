package observability

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/valter-silva-au/supportbot/internal/logger"
	"github.com/valter-silva-au/supportbot/pkg/models"
)

// maxRecentErrors bounds the in-memory error history.
const maxRecentErrors = 100

// ErrorLog records errors to the structured logger and the event log. It
// satisfies core.ErrorReporter.
type ErrorLog struct {
	events EventLog
	log    logger.Logger
	now    func() time.Time

	mu     sync.Mutex
	recent []models.ErrorDetails
}

// NewErrorLog creates an ErrorLog. events may be nil, in which case errors
// are only logged.
func NewErrorLog(events EventLog, log logger.Logger) *ErrorLog {
	if log == nil {
		log = logger.Nop()
	}
	return &ErrorLog{events: events, log: log, now: time.Now}
}

// LogError records err under component. Every error is reported as
// recoverable.
func (l *ErrorLog) LogError(err error, component string, context map[string]any) models.ErrorDetails {
	details := models.ErrorDetails{
		Message:     err.Error(),
		Code:        errorCode(err),
		Component:   component,
		Recoverable: true,
		Timestamp:   l.now().UTC(),
		Context:     context,
	}

	l.log.Error("error logged", "component", component, "code", details.Code, "error", err)

	if l.events != nil {
		data := map[string]any{
			"component":   component,
			"code":        details.Code,
			"message":     details.Message,
			"recoverable": true,
		}
		if len(context) > 0 {
			data["context"] = context
		}
		if werr := l.events.Write(Event{
			Time:    details.Timestamp,
			Level:   LevelError,
			Type:    EventError,
			Message: details.Message,
			Data:    data,
		}); werr != nil {
			l.log.Warn("writing error event", "error", werr)
		}
	}

	l.mu.Lock()
	l.recent = append(l.recent, details)
	if len(l.recent) > maxRecentErrors {
		l.recent = l.recent[len(l.recent)-maxRecentErrors:]
	}
	l.mu.Unlock()
	return details
}

// Recent returns up to n of the most recent errors, oldest first. A
// non-positive n returns all retained errors.
func (l *ErrorLog) Recent(n int) []models.ErrorDetails {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := 0
	if n > 0 && n < len(l.recent) {
		start = len(l.recent) - n
	}
	return append([]models.ErrorDetails(nil), l.recent[start:]...)
}

// errorCode buckets an error the same way the degraded-service messages do.
func errorCode(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case strings.Contains(msg, "network"), strings.Contains(msg, "fetch"), strings.Contains(msg, "connection"):
		return "connection"
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return "timeout"
	case strings.Contains(msg, "data"), strings.Contains(msg, "parse"), strings.Contains(msg, "json"):
		return "data"
	}
	return "internal"
}
