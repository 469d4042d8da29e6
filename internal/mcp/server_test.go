package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valter-silva-au/supportbot/internal/core"
	"github.com/valter-silva-au/supportbot/internal/observability"
	"github.com/valter-silva-au/supportbot/internal/storage"
	"github.com/valter-silva-au/supportbot/pkg/models"
)

// --- Fake implementations ---

type fakeTelemetry struct {
	mu       sync.Mutex
	queries  int
	feedback map[string]bool
}

func (f *fakeTelemetry) TrackEvent(string, map[string]any) error { return nil }

func (f *fakeTelemetry) TrackQuery(string, *models.KnowledgeItem, float64, time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	return fmt.Sprintf("q-%d", f.queries), nil
}

func (f *fakeTelemetry) TrackFeedback(queryID string, helpful bool, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !strings.HasPrefix(queryID, "q-") {
		return fmt.Errorf("query %s not found", queryID)
	}
	if f.feedback == nil {
		f.feedback = make(map[string]bool)
	}
	f.feedback[queryID] = helpful
	return nil
}

func (f *fakeTelemetry) StartSession(string) (string, error) {
	return fmt.Sprintf("session-%d", time.Now().UnixNano()), nil
}

func (f *fakeTelemetry) EndSession(string, models.SessionSummary) error { return nil }

type fakeMetricsCalculator struct {
	metrics *observability.Metrics
	since   time.Time
}

func (f *fakeMetricsCalculator) Calculate(since time.Time) (*observability.Metrics, error) {
	f.since = since
	return f.metrics, nil
}

type fakeAlertEngine struct {
	alerts []observability.Alert
}

func (f *fakeAlertEngine) Evaluate() ([]observability.Alert, error) {
	return f.alerts, nil
}

type fakeSuggestionEngine struct {
	suggestions []observability.Suggestion
}

func (f *fakeSuggestionEngine) Suggest() ([]observability.Suggestion, error) {
	return f.suggestions, nil
}

// --- Test helpers ---

func testCatalog() []models.KnowledgeItem {
	return []models.KnowledgeItem{
		{
			Question:             "What is Thoughtful AI?",
			Answer:               "Thoughtful AI is a healthcare automation platform.",
			Category:             "general",
			AlternativeQuestions: []string{"Tell me about Thoughtful AI"},
		},
		{
			Question:             "What is EVA?",
			Answer:               "EVA (Eligibility Verification Agent) automates insurance eligibility verification. See <a href=\"https://example.com/eva\">docs</a>.",
			Category:             "eligibility_verification",
			AlternativeQuestions: []string{"Tell me about EVA"},
		},
		{
			Question: "What is CAM?",
			Answer:   "CAM (Claims Agent Manager) is our AI solution for claims processing.",
			Category: "claims_processing",
		},
	}
}

func newTestServer(t *testing.T, deps Deps) (*Server, *fakeTelemetry) {
	t.Helper()
	telemetry := &fakeTelemetry{}
	settings := core.DefaultBotConfig()
	settings.Responses.Seed = 7
	settings.Retry.Delay = time.Millisecond

	if deps.Catalog == nil {
		deps.Catalog = testCatalog()
	}
	deps.Agent = core.AgentConfig{
		Matcher:   core.NewCatalogMatcher(deps.Catalog, 0, 0),
		Telemetry: telemetry,
		Settings:  settings,
	}
	srv, err := NewServer(deps, "test")
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return srv, telemetry
}

// callTool is a helper that connects a client to the server and calls a tool.
func callTool(t *testing.T, srv *Server, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()

	// Connect server (non-blocking).
	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call tool %s: %v", toolName, err)
	}

	return result
}

// decodeResult parses a tool's structured output, falling back to its text.
func decodeResult(t *testing.T, result *gomcp.CallToolResult, v any) {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	if result.StructuredContent != nil {
		data, _ := json.Marshal(result.StructuredContent)
		if err := json.Unmarshal(data, v); err != nil {
			t.Fatalf("unmarshalling structured content: %v", err)
		}
		return
	}
	text := extractText(result)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("unmarshalling text: %v (text was: %s)", err, text)
	}
}

// extractText extracts the text from the first TextContent in a CallToolResult.
func extractText(result *gomcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// --- Tests ---

func TestAsk_MatchesCatalog(t *testing.T) {
	srv, _ := newTestServer(t, Deps{})

	var out askOutput
	decodeResult(t, callTool(t, srv, "ask", map[string]any{"question": "What is EVA?"}), &out)

	if out.MatchedQuestion != "What is EVA?" {
		t.Errorf("MatchedQuestion = %q, want %q", out.MatchedQuestion, "What is EVA?")
	}
	if out.Kind != string(core.KindAnswer) {
		t.Errorf("Kind = %q, want %q", out.Kind, core.KindAnswer)
	}
	if out.QueryID != "q-1" {
		t.Errorf("QueryID = %q, want q-1", out.QueryID)
	}
	if out.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", out.Attempts)
	}
	if !strings.Contains(out.Reply, "Eligibility Verification Agent") {
		t.Errorf("Reply = %q, want EVA answer", out.Reply)
	}
	if len(out.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(out.Messages))
	}
	links := out.Messages[0].Links
	if len(links) != 1 || links[0].URL != "https://example.com/eva" {
		t.Errorf("Links = %+v, want the docs link", links)
	}
}

func TestAsk_Fallback(t *testing.T) {
	srv, _ := newTestServer(t, Deps{Catalog: testCatalog()[1:]})

	var out askOutput
	decodeResult(t, callTool(t, srv, "ask", map[string]any{"question": "zebra crossing rules"}), &out)

	if out.MatchedQuestion != "" {
		t.Errorf("MatchedQuestion = %q, want none", out.MatchedQuestion)
	}
	if out.Kind != string(core.KindFallback) {
		t.Errorf("Kind = %q, want %q", out.Kind, core.KindFallback)
	}
	if out.Reply == "" {
		t.Error("expected a fallback reply")
	}
}

func TestAsk_BlankQuestion(t *testing.T) {
	srv, _ := newTestServer(t, Deps{})

	result := callTool(t, srv, "ask", map[string]any{"question": "   "})
	if !result.IsError {
		t.Fatal("expected error for blank question")
	}
	if got := extractText(result); !strings.Contains(got, "question is required") {
		t.Errorf("error text = %q, want it to mention the question", got)
	}
}

func TestSendFeedback(t *testing.T) {
	srv, telemetry := newTestServer(t, Deps{})

	var ask askOutput
	decodeResult(t, callTool(t, srv, "ask", map[string]any{"question": "What is CAM?"}), &ask)

	var out messageResult
	decodeResult(t, callTool(t, srv, "send_feedback", map[string]any{
		"query_id": ask.QueryID,
		"helpful":  false,
		"comment":  "too short",
	}), &out)

	if !strings.Contains(out.Message, "unhelpful") {
		t.Errorf("Message = %q, want it to mention unhelpful", out.Message)
	}
	if helpful, ok := telemetry.feedback[ask.QueryID]; !ok || helpful {
		t.Errorf("feedback[%s] = %v, %v; want false, true", ask.QueryID, helpful, ok)
	}
}

func TestSendFeedback_UnknownQuery(t *testing.T) {
	srv, _ := newTestServer(t, Deps{})

	result := callTool(t, srv, "send_feedback", map[string]any{"query_id": "nope", "helpful": true})
	if !result.IsError {
		t.Fatal("expected error for unknown query id")
	}
}

func TestResetSession(t *testing.T) {
	srv, _ := newTestServer(t, Deps{})

	var ask askOutput
	decodeResult(t, callTool(t, srv, "ask", map[string]any{"question": "What is EVA?"}), &ask)

	var out resetSessionOutput
	decodeResult(t, callTool(t, srv, "reset_session", map[string]any{}), &out)

	if out.Generation != 2 {
		t.Errorf("Generation = %d, want 2", out.Generation)
	}
	if len(out.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(out.Messages))
	}
	if out.Messages[0].Kind != string(core.KindFarewell) || out.Messages[1].Kind != string(core.KindWelcome) {
		t.Errorf("message kinds = %s, %s; want farewell, welcome", out.Messages[0].Kind, out.Messages[1].Kind)
	}

	var hist getHistoryOutput
	decodeResult(t, callTool(t, srv, "get_history", map[string]any{}), &hist)
	if hist.Turns != 0 {
		t.Errorf("Turns after reset = %d, want 0", hist.Turns)
	}
}

func TestListFAQs(t *testing.T) {
	srv, _ := newTestServer(t, Deps{})

	tests := []struct {
		name     string
		category string
		want     int
	}{
		{"all", "", 3},
		{"one category", "claims_processing", 1},
		{"unknown category", "nope", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out listFAQsOutput
			decodeResult(t, callTool(t, srv, "list_faqs", map[string]any{"category": tt.category}), &out)
			if out.Count != tt.want || len(out.FAQs) != tt.want {
				t.Errorf("Count = %d (len %d), want %d", out.Count, len(out.FAQs), tt.want)
			}
		})
	}
}

func TestListFAQs_AnswersArePlainText(t *testing.T) {
	srv, _ := newTestServer(t, Deps{})

	var out listFAQsOutput
	decodeResult(t, callTool(t, srv, "list_faqs", map[string]any{"category": "eligibility_verification"}), &out)
	if len(out.FAQs) != 1 {
		t.Fatalf("len(FAQs) = %d, want 1", len(out.FAQs))
	}
	if strings.Contains(out.FAQs[0].Answer, "<a") {
		t.Errorf("Answer = %q, want markup stripped", out.FAQs[0].Answer)
	}
}

func TestGetHistory(t *testing.T) {
	srv, _ := newTestServer(t, Deps{})

	var ask askOutput
	decodeResult(t, callTool(t, srv, "ask", map[string]any{"question": "What is EVA?"}), &ask)

	var out getHistoryOutput
	decodeResult(t, callTool(t, srv, "get_history", map[string]any{"max_turns": 5}), &out)

	if out.Turns != 1 {
		t.Errorf("Turns = %d, want 1", out.Turns)
	}
	if !strings.Contains(out.History, "User: What is EVA?") {
		t.Errorf("History = %q, want the user's question", out.History)
	}
}

func TestGetMetrics(t *testing.T) {
	now := time.Now().UTC()
	mc := &fakeMetricsCalculator{
		metrics: &observability.Metrics{
			Queries:           10,
			Matched:           7,
			Unmatched:         3,
			MatchRate:         0.7,
			QueriesByCategory: map[string]int{"pricing": 4, "claims_processing": 3},
			EventCount:        42,
			OldestEvent:       &now,
			NewestEvent:       &now,
		},
	}
	srv, _ := newTestServer(t, Deps{Metrics: mc})

	var m observability.Metrics
	decodeResult(t, callTool(t, srv, "get_metrics", map[string]any{"since": "30d"}), &m)

	if m.Queries != 10 {
		t.Errorf("Queries = %d, want 10", m.Queries)
	}
	if m.EventCount != 42 {
		t.Errorf("EventCount = %d, want 42", m.EventCount)
	}
	if m.QueriesByCategory["pricing"] != 4 {
		t.Errorf("QueriesByCategory[pricing] = %d, want 4", m.QueriesByCategory["pricing"])
	}
	window := time.Since(mc.since)
	if window < 29*24*time.Hour || window > 31*24*time.Hour {
		t.Errorf("metrics window = %s, want about 30 days", window)
	}
}

func TestGetMetrics_DefaultWindow(t *testing.T) {
	mc := &fakeMetricsCalculator{metrics: &observability.Metrics{QueriesByCategory: map[string]int{}}}
	srv, _ := newTestServer(t, Deps{Metrics: mc})

	var m observability.Metrics
	decodeResult(t, callTool(t, srv, "get_metrics", map[string]any{}), &m)

	window := time.Since(mc.since)
	if window < 6*24*time.Hour || window > 8*24*time.Hour {
		t.Errorf("metrics window = %s, want about 7 days", window)
	}
}

func TestGetMetrics_InvalidSince(t *testing.T) {
	mc := &fakeMetricsCalculator{metrics: &observability.Metrics{}}
	srv, _ := newTestServer(t, Deps{Metrics: mc})

	result := callTool(t, srv, "get_metrics", map[string]any{"since": "soon"})
	if !result.IsError {
		t.Fatal("expected error for unparseable since")
	}
}

func TestGetMetricsDisabled(t *testing.T) {
	srv, _ := newTestServer(t, Deps{})

	result := callTool(t, srv, "get_metrics", map[string]any{})
	if !result.IsError {
		t.Fatal("expected error when metrics calculator is nil")
	}
	if extractText(result) == "" {
		t.Fatal("expected error message in result")
	}
}

func TestGetSuggestions(t *testing.T) {
	se := &fakeSuggestionEngine{suggestions: []observability.Suggestion{
		{Query: "do you support dental?", Count: 3, Suggestion: `Add FAQ for "do you support dental?"`},
	}}
	srv, _ := newTestServer(t, Deps{Suggestions: se})

	var out getSuggestionsOutput
	decodeResult(t, callTool(t, srv, "get_suggestions", map[string]any{}), &out)

	if out.Count != 1 || out.Suggestions[0].Count != 3 {
		t.Errorf("suggestions = %+v, want one with count 3", out.Suggestions)
	}
}

func TestGetSuggestions_Empty(t *testing.T) {
	srv, _ := newTestServer(t, Deps{Suggestions: &fakeSuggestionEngine{}})

	var out getSuggestionsOutput
	decodeResult(t, callTool(t, srv, "get_suggestions", map[string]any{}), &out)
	if out.Count != 0 {
		t.Errorf("Count = %d, want 0", out.Count)
	}
}

func TestGetAlerts(t *testing.T) {
	now := time.Now().UTC()
	ae := &fakeAlertEngine{alerts: []observability.Alert{
		{
			ID:          "unmatched-rate",
			Condition:   observability.ConditionUnmatchedRate,
			Severity:    observability.SeverityMedium,
			Message:     "60% of 10 queries had no catalog match",
			TriggeredAt: now,
		},
	}}
	srv, _ := newTestServer(t, Deps{Alerts: ae})

	var out getAlertsOutput
	decodeResult(t, callTool(t, srv, "get_alerts", map[string]any{}), &out)

	if out.Count != 1 {
		t.Fatalf("Count = %d, want 1", out.Count)
	}
	if out.Alerts[0].Severity != "medium" {
		t.Errorf("Severity = %q, want medium", out.Alerts[0].Severity)
	}
	if out.Alerts[0].TriggeredAt != now.Format(time.RFC3339) {
		t.Errorf("TriggeredAt = %q, want %q", out.Alerts[0].TriggeredAt, now.Format(time.RFC3339))
	}
}

func TestGetAlertsDisabled(t *testing.T) {
	srv, _ := newTestServer(t, Deps{})

	result := callTool(t, srv, "get_alerts", map[string]any{})
	if !result.IsError {
		t.Fatal("expected error when alert engine is nil")
	}
}

func TestListSessions(t *testing.T) {
	store := storage.NewTranscriptStore(t.TempDir())
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"older", "newer"} {
		start := base.Add(time.Duration(i) * time.Hour)
		transcript := models.Transcript{
			ID:           id,
			StartedAt:    start,
			EndedAt:      start.Add(5 * time.Minute),
			Duration:     "5m0s",
			TurnCount:    2,
			MatchedCount: 1,
			Topics:       []string{"pricing"},
		}
		if err := store.Archive(transcript, nil); err != nil {
			t.Fatalf("Archive(%s) error = %v", id, err)
		}
	}
	srv, _ := newTestServer(t, Deps{Transcripts: store})

	var out listSessionsOutput
	decodeResult(t, callTool(t, srv, "list_sessions", map[string]any{"limit": 1}), &out)

	if out.Count != 1 {
		t.Fatalf("Count = %d, want 1", out.Count)
	}
	if out.Sessions[0].ID != "newer" {
		t.Errorf("Sessions[0].ID = %q, want newer", out.Sessions[0].ID)
	}
}

func TestListSessions_NoStore(t *testing.T) {
	srv, _ := newTestServer(t, Deps{})

	result := callTool(t, srv, "list_sessions", map[string]any{})
	if !result.IsError {
		t.Fatal("expected error when transcript store is nil")
	}
}

func TestNewServer_RequiresMatcher(t *testing.T) {
	if _, err := NewServer(Deps{}, "test"); err == nil {
		t.Fatal("expected error without a matcher")
	}
}

func TestOutbox_Drain(t *testing.T) {
	box := &outbox{}
	_ = box.Deliver(core.BotMessage{ID: "a"})
	_ = box.Deliver(core.BotMessage{ID: "b"})

	got := box.drain()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("drain() = %+v, want a, b", got)
	}
	if again := box.drain(); len(again) != 0 {
		t.Errorf("second drain() = %+v, want empty", again)
	}
}
