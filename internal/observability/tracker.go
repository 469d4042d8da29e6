package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/valter-silva-au/supportbot/internal/logger"
	"github.com/valter-silva-au/supportbot/internal/storage"
	"github.com/valter-silva-au/supportbot/pkg/models"
)

// queryRecord is what the tracker remembers about a query so feedback can
// be attributed to it.
type queryRecord struct {
	query    string
	matched  bool
	category string
}

// Tracker records chat analytics into an EventLog and archives finished
// sessions. It satisfies core.Telemetry.
type Tracker struct {
	events      EventLog
	transcripts storage.TranscriptStore
	log         logger.Logger
	now         func() time.Time

	mu        sync.Mutex
	sessionID string
	userAgent string
	queries   map[string]queryRecord
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTranscripts archives each finished session that has at least one
// turn into store.
func WithTranscripts(store storage.TranscriptStore) TrackerOption {
	return func(t *Tracker) { t.transcripts = store }
}

// WithTrackerLogger sets the logger used for archive failures.
func WithTrackerLogger(l logger.Logger) TrackerOption {
	return func(t *Tracker) { t.log = l }
}

// WithTrackerClock overrides the event timestamp source.
func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a Tracker writing to events.
func NewTracker(events EventLog, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		events:  events,
		log:     logger.Nop(),
		now:     time.Now,
		queries: make(map[string]queryRecord),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) write(level, eventType, msg string, data map[string]any) error {
	t.mu.Lock()
	session := t.sessionID
	t.mu.Unlock()

	return t.events.Write(Event{
		Time:    t.now().UTC(),
		Level:   level,
		Type:    eventType,
		Session: session,
		Message: msg,
		Data:    data,
	})
}

// TrackEvent records an interaction event under the current session.
func (t *Tracker) TrackEvent(eventType string, data map[string]any) error {
	if eventType == "" {
		return fmt.Errorf("tracking event: type is required")
	}
	if err := t.write(LevelInfo, eventType, eventType, data); err != nil {
		return fmt.Errorf("tracking %s: %w", eventType, err)
	}
	return nil
}

// TrackQuery records an answered query and returns its id for feedback.
func (t *Tracker) TrackQuery(query string, matched *models.KnowledgeItem, confidence float64, responseTime time.Duration) (string, error) {
	id := uuid.NewString()
	rec := queryRecord{query: query, matched: matched != nil}
	data := map[string]any{
		"query_id":         id,
		"query":            query,
		"matched":          matched != nil,
		"confidence":       confidence,
		"response_time_ms": responseTime.Milliseconds(),
	}
	if matched != nil {
		rec.category = matched.Category
		data["question"] = matched.Question
		data["category"] = matched.Category
	}

	if err := t.write(LevelInfo, EventQuery, "query answered", data); err != nil {
		return "", fmt.Errorf("tracking query: %w", err)
	}

	t.mu.Lock()
	t.queries[id] = rec
	t.mu.Unlock()
	return id, nil
}

// TrackFeedback attaches helpful/unhelpful feedback to a tracked query.
// Queries from earlier processes are looked up in the event log.
func (t *Tracker) TrackFeedback(queryID string, helpful bool, comment string) error {
	rec, err := t.lookupQuery(queryID)
	if err != nil {
		return fmt.Errorf("tracking feedback: %w", err)
	}

	data := map[string]any{
		"query_id": queryID,
		"query":    rec.query,
		"matched":  rec.matched,
		"helpful":  helpful,
	}
	if comment != "" {
		data["comment"] = comment
	}
	level := LevelInfo
	if !helpful {
		level = LevelWarn
	}
	if err := t.write(level, EventFeedback, "feedback received", data); err != nil {
		return fmt.Errorf("tracking feedback: %w", err)
	}
	return nil
}

func (t *Tracker) lookupQuery(queryID string) (queryRecord, error) {
	t.mu.Lock()
	rec, ok := t.queries[queryID]
	t.mu.Unlock()
	if ok {
		return rec, nil
	}

	events, err := t.events.Read(EventFilter{Type: EventQuery})
	if err != nil {
		return queryRecord{}, fmt.Errorf("looking up query %s: %w", queryID, err)
	}
	for _, e := range events {
		if dataString(e.Data, "query_id") == queryID {
			return queryRecord{
				query:    dataString(e.Data, "query"),
				matched:  dataBool(e.Data, "matched"),
				category: dataString(e.Data, "category"),
			}, nil
		}
	}
	return queryRecord{}, fmt.Errorf("query %s not found", queryID)
}

// StartSession opens a new analytics session and makes it current. When
// the start event cannot be written no session is current afterwards.
func (t *Tracker) StartSession(userAgent string) (string, error) {
	id := uuid.NewString()
	err := t.events.Write(Event{
		Time:    t.now().UTC(),
		Level:   LevelInfo,
		Type:    EventSessionStart,
		Session: id,
		Message: "session started",
		Data:    map[string]any{"user_agent": userAgent},
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	t.userAgent = userAgent
	t.queries = make(map[string]queryRecord)
	if err != nil {
		t.sessionID = ""
		return "", fmt.Errorf("starting session: %w", err)
	}
	t.sessionID = id
	return id, nil
}

// EndSession records the end of a session and archives its transcript.
// An archive failure is logged and does not fail the call.
func (t *Tracker) EndSession(sessionID string, summary models.SessionSummary) error {
	t.mu.Lock()
	userAgent := t.userAgent
	t.mu.Unlock()

	transcript := storage.TranscriptFromSummary(summary, userAgent)
	transcript.ID = sessionID
	data := map[string]any{
		"session_id":  sessionID,
		"turns":       transcript.TurnCount,
		"matched":     transcript.MatchedCount,
		"duration_ms": summary.EndedAt.Sub(summary.StartedAt).Milliseconds(),
	}
	if len(transcript.Topics) > 0 {
		data["topics"] = transcript.Topics
	}
	if err := t.write(LevelInfo, EventSessionEnd, "session ended", data); err != nil {
		return fmt.Errorf("ending session: %w", err)
	}

	if t.transcripts != nil && transcript.TurnCount > 0 {
		if err := t.transcripts.Archive(transcript, summary.Turns); err != nil {
			t.log.Warn("archiving transcript", "session", sessionID, "error", err)
		}
	}

	t.mu.Lock()
	if t.sessionID == sessionID {
		t.sessionID = ""
	}
	t.mu.Unlock()
	return nil
}
