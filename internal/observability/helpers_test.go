package observability

import (
	"path/filepath"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// newTestLog opens an event log in a temp dir and closes it with the test.
func newTestLog(t testing.TB) EventLog {
	t.Helper()
	el, err := NewJSONLEventLog(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	t.Cleanup(func() { _ = el.Close() })
	return el
}

func mustWrite(t testing.TB, el EventLog, events ...Event) {
	t.Helper()
	for _, e := range events {
		if err := el.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}
}

func queryEvent(at time.Time, id, query string, matched bool, category string, responseMS int) Event {
	data := map[string]any{
		"query_id":         id,
		"query":            query,
		"matched":          matched,
		"confidence":       0.0,
		"response_time_ms": responseMS,
	}
	if matched {
		data["category"] = category
		data["confidence"] = 0.7
	}
	return Event{Time: at, Level: LevelInfo, Type: EventQuery, Message: "query answered", Data: data}
}

func feedbackEvent(at time.Time, id string, helpful bool, comment string) Event {
	data := map[string]any{"query_id": id, "helpful": helpful}
	if comment != "" {
		data["comment"] = comment
	}
	return Event{Time: at, Level: LevelInfo, Type: EventFeedback, Message: "feedback received", Data: data}
}

func errorEvent(at time.Time, component string) Event {
	return Event{Time: at, Level: LevelError, Type: EventError, Message: "boom", Data: map[string]any{"component": component}}
}
