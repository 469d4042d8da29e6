// Package mcp exposes the support agent as MCP (Model Context Protocol)
// tools so assistants and other clients can ask it questions.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/xhit/go-str2duration/v2"

	"github.com/valter-silva-au/supportbot/internal/core"
	"github.com/valter-silva-au/supportbot/internal/observability"
	"github.com/valter-silva-au/supportbot/internal/storage"
	"github.com/valter-silva-au/supportbot/pkg/models"
)

// defaultMetricsWindow is used by get_metrics when since is omitted.
const defaultMetricsWindow = "7d"

// Deps are the services the MCP tools read from. Only Agent and Catalog
// are required.
type Deps struct {
	Agent       core.AgentConfig
	Catalog     []models.KnowledgeItem
	Metrics     observability.MetricsCalculator
	Alerts      observability.AlertEngine
	Suggestions observability.SuggestionEngine
	Transcripts storage.TranscriptStore
}

// Server hosts one chat session and exposes it as MCP tools.
type Server struct {
	server      *gomcp.Server
	agent       core.ChatAgent
	outbox      *outbox
	catalog     []models.KnowledgeItem
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
	suggestions observability.SuggestionEngine
	transcripts storage.TranscriptStore
	now         func() time.Time

	// mu serializes tool calls that drive the agent so each call sees only
	// the messages it produced.
	mu sync.Mutex
}

// NewServer creates the chat agent and an MCP server around it. The
// agent's Deliverer is replaced by the server's own outbox.
func NewServer(deps Deps, version string) (*Server, error) {
	if version == "" {
		version = "dev"
	}

	box := &outbox{}
	agentCfg := deps.Agent
	agentCfg.Deliverer = box
	if agentCfg.UserAgent == "" {
		agentCfg.UserAgent = "mcp"
	}
	agent, err := core.NewChatAgent(agentCfg)
	if err != nil {
		return nil, fmt.Errorf("creating chat agent: %w", err)
	}

	s := &Server{
		agent:       agent,
		outbox:      box,
		catalog:     deps.Catalog,
		metricsCalc: deps.Metrics,
		alertEngine: deps.Alerts,
		suggestions: deps.Suggestions,
		transcripts: deps.Transcripts,
		now:         time.Now,
	}
	s.server = gomcp.NewServer(&gomcp.Implementation{Name: "supportbot", Version: version}, nil)
	s.registerTools()
	return s, nil
}

// Run serves MCP over stdio until the client disconnects or ctx is
// cancelled, then ends the chat session.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// Close ends the chat session.
func (s *Server) Close() error {
	return s.agent.Close()
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// outbox collects delivered bot messages until a tool call drains them.
type outbox struct {
	mu       sync.Mutex
	messages []core.BotMessage
}

func (o *outbox) Deliver(msg core.BotMessage) error {
	o.mu.Lock()
	o.messages = append(o.messages, msg)
	o.mu.Unlock()
	return nil
}

func (o *outbox) drain() []core.BotMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.messages
	o.messages = nil
	return out
}

// --- Tool input/output types ---

type linkOutput struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type messageOutput struct {
	ID      string       `json:"id"`
	Kind    string       `json:"kind"`
	Text    string       `json:"text"`
	Links   []linkOutput `json:"links,omitempty"`
	DelayMS int64        `json:"delay_ms,omitempty"`
}

type askInput struct {
	Question string `json:"question" jsonschema:"the user's message to the support agent"`
}

type askOutput struct {
	Reply           string          `json:"reply"`
	Kind            string          `json:"kind"`
	Intent          string          `json:"intent"`
	MatchedQuestion string          `json:"matched_question,omitempty"`
	Confidence      float64         `json:"confidence"`
	QueryID         string          `json:"query_id,omitempty"`
	Attempts        int             `json:"attempts"`
	Messages        []messageOutput `json:"messages"`
}

type sendFeedbackInput struct {
	QueryID string `json:"query_id" jsonschema:"the query_id returned by ask"`
	Helpful bool   `json:"helpful" jsonschema:"whether the answer helped"`
	Comment string `json:"comment,omitempty" jsonschema:"optional free-text comment"`
}

type messageResult struct {
	Message string `json:"message"`
}

type resetSessionInput struct{}

type resetSessionOutput struct {
	SessionID  string          `json:"session_id"`
	Generation uint64          `json:"generation"`
	Messages   []messageOutput `json:"messages"`
}

type listFAQsInput struct {
	Category string `json:"category,omitempty" jsonschema:"only return items in this category (e.g. pricing, claims_processing)"`
}

type faqOutput struct {
	Question     string   `json:"question"`
	Answer       string   `json:"answer"`
	Category     string   `json:"category,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

type listFAQsOutput struct {
	FAQs  []faqOutput `json:"faqs"`
	Count int         `json:"count"`
}

type getHistoryInput struct {
	MaxTurns int `json:"max_turns,omitempty" jsonschema:"number of recent turns to include (default 5)"`
}

type getHistoryOutput struct {
	SessionID string   `json:"session_id"`
	History   string   `json:"history"`
	Turns     int      `json:"turns"`
	Topics    []string `json:"topics,omitempty"`
	Related   []string `json:"related_topics,omitempty"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type getSuggestionsInput struct{}

type getSuggestionsOutput struct {
	Suggestions []observability.Suggestion `json:"suggestions"`
	Count       int                        `json:"count"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

type listSessionsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of sessions to return, newest first (default 10)"`
}

type sessionOutput struct {
	ID        string   `json:"id"`
	StartedAt string   `json:"started_at"`
	Duration  string   `json:"duration"`
	Turns     int      `json:"turns"`
	Matched   int      `json:"matched"`
	Topics    []string `json:"topics,omitempty"`
}

type listSessionsOutput struct {
	Sessions []sessionOutput `json:"sessions"`
	Count    int             `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "ask",
		Description: "Send a message to the support agent and return its reply, the matched FAQ (if any), and the query_id to use for feedback.",
	}, s.handleAsk)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "send_feedback",
		Description: "Record whether an answer returned by ask was helpful.",
	}, s.handleSendFeedback)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "reset_session",
		Description: "End the current conversation and start a new one with a fresh context.",
	}, s.handleResetSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_faqs",
		Description: "List the FAQ catalog the agent answers from, optionally filtered by category.",
	}, s.handleListFAQs)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_history",
		Description: "Get the recent turns of the current conversation as a User/Bot transcript.",
	}, s.handleGetHistory)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get chat analytics from the event log: query counts, match rate, response time, feedback, sessions, and errors.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_suggestions",
		Description: "Suggest new FAQ entries for questions that keep going unanswered or rated unhelpful.",
	}, s.handleGetSuggestions)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (unmatched rate, error spike, negative feedback, slow responses).",
	}, s.handleGetAlerts)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_sessions",
		Description: "List archived chat sessions, newest first.",
	}, s.handleListSessions)
}

// --- Tool handlers ---

func (s *Server) handleAsk(ctx context.Context, _ *gomcp.CallToolRequest, input askInput) (*gomcp.CallToolResult, askOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return errorResult("question is required"), askOutput{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.outbox.drain()
	result, err := s.agent.HandleMessage(ctx, input.Question)
	messages := toMessageOutputs(s.outbox.drain())
	if err != nil {
		return errorResult(fmt.Sprintf("handling message: %s", err)), askOutput{}, nil
	}

	out := askOutput{
		Reply:      result.Reply.Rich.Plain(),
		Kind:       string(result.Reply.Kind),
		Intent:     string(result.Intent),
		Confidence: result.Confidence,
		QueryID:    result.Reply.QueryID,
		Attempts:   result.Attempts,
		Messages:   messages,
	}
	if result.Matched != nil {
		out.MatchedQuestion = result.Matched.Question
	}
	return nil, out, nil
}

func (s *Server) handleSendFeedback(_ context.Context, _ *gomcp.CallToolRequest, input sendFeedbackInput) (*gomcp.CallToolResult, messageResult, error) {
	if input.QueryID == "" {
		return errorResult("query_id is required"), messageResult{}, nil
	}
	if err := s.agent.Feedback(input.QueryID, input.Helpful, input.Comment); err != nil {
		return errorResult(err.Error()), messageResult{}, nil
	}
	rating := "unhelpful"
	if input.Helpful {
		rating = "helpful"
	}
	return nil, messageResult{Message: fmt.Sprintf("recorded %s feedback for %s", rating, input.QueryID)}, nil
}

func (s *Server) handleResetSession(_ context.Context, _ *gomcp.CallToolRequest, _ resetSessionInput) (*gomcp.CallToolResult, resetSessionOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outbox.drain()
	if err := s.agent.Reset(); err != nil {
		return errorResult(fmt.Sprintf("resetting session: %s", err)), resetSessionOutput{}, nil
	}
	return nil, resetSessionOutput{
		SessionID:  s.agent.SessionID(),
		Generation: s.agent.Generation(),
		Messages:   toMessageOutputs(s.outbox.drain()),
	}, nil
}

func (s *Server) handleListFAQs(_ context.Context, _ *gomcp.CallToolRequest, input listFAQsInput) (*gomcp.CallToolResult, listFAQsOutput, error) {
	out := listFAQsOutput{FAQs: []faqOutput{}}
	for _, item := range s.catalog {
		if input.Category != "" && item.Category != input.Category {
			continue
		}
		out.FAQs = append(out.FAQs, faqOutput{
			Question:     item.Question,
			Answer:       core.ToRichText(item.Answer).Plain(),
			Category:     item.Category,
			Alternatives: item.AlternativeQuestions,
		})
	}
	out.Count = len(out.FAQs)
	return nil, out, nil
}

func (s *Server) handleGetHistory(_ context.Context, _ *gomcp.CallToolRequest, input getHistoryInput) (*gomcp.CallToolResult, getHistoryOutput, error) {
	if input.MaxTurns < 0 {
		return errorResult("max_turns must not be negative"), getHistoryOutput{}, nil
	}
	snap := s.agent.Snapshot()
	out := getHistoryOutput{
		SessionID: snap.SessionID,
		History:   s.agent.History(input.MaxTurns),
		Turns:     len(snap.Turns),
	}
	for _, topic := range snap.Topics {
		out.Topics = append(out.Topics, string(topic))
	}
	for _, topic := range snap.RelatedTopics {
		out.Related = append(out.Related, string(topic))
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, observability.Metrics, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (event log disabled)"), emptyMetrics(), nil
	}

	window := input.Since
	if window == "" {
		window = defaultMetricsWindow
	}
	d, err := str2duration.ParseDuration(window)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetrics(), nil
	}

	metrics, err := s.metricsCalc.Calculate(s.now().UTC().Add(-d))
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetrics(), nil
	}
	return nil, *metrics, nil
}

func (s *Server) handleGetSuggestions(_ context.Context, _ *gomcp.CallToolRequest, _ getSuggestionsInput) (*gomcp.CallToolResult, getSuggestionsOutput, error) {
	if s.suggestions == nil {
		return errorResult("suggestion engine not available (event log disabled)"), getSuggestionsOutput{}, nil
	}
	suggestions, err := s.suggestions.Suggest()
	if err != nil {
		return errorResult(fmt.Sprintf("building suggestions: %s", err)), getSuggestionsOutput{}, nil
	}
	if suggestions == nil {
		suggestions = []observability.Suggestion{}
	}
	return nil, getSuggestionsOutput{Suggestions: suggestions, Count: len(suggestions)}, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (event log disabled)"), getAlertsOutput{}, nil
	}

	alerts, err := s.alertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

func (s *Server) handleListSessions(_ context.Context, _ *gomcp.CallToolRequest, input listSessionsInput) (*gomcp.CallToolResult, listSessionsOutput, error) {
	if s.transcripts == nil {
		return errorResult("transcript store not available"), listSessionsOutput{}, nil
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}
	if err := s.transcripts.Load(); err != nil {
		return errorResult(fmt.Sprintf("loading sessions: %s", err)), listSessionsOutput{}, nil
	}
	recent, err := s.transcripts.Recent(limit)
	if err != nil {
		return errorResult(fmt.Sprintf("listing sessions: %s", err)), listSessionsOutput{}, nil
	}

	out := listSessionsOutput{Sessions: make([]sessionOutput, len(recent)), Count: len(recent)}
	for i, t := range recent {
		out.Sessions[i] = sessionOutput{
			ID:        t.ID,
			StartedAt: t.StartedAt.Format(time.RFC3339),
			Duration:  t.Duration,
			Turns:     t.TurnCount,
			Matched:   t.MatchedCount,
			Topics:    t.Topics,
		}
	}
	return nil, out, nil
}

// --- Helpers ---

func toMessageOutputs(msgs []core.BotMessage) []messageOutput {
	out := make([]messageOutput, 0, len(msgs))
	for _, m := range msgs {
		mo := messageOutput{
			ID:      m.ID,
			Kind:    string(m.Kind),
			Text:    m.Rich.Plain(),
			DelayMS: m.Delay.Milliseconds(),
		}
		for _, l := range m.Rich.Links() {
			mo.Links = append(mo.Links, linkOutput{Text: l.Text, URL: l.URL})
		}
		out = append(out, mo)
	}
	return out
}

func emptyMetrics() observability.Metrics {
	return observability.Metrics{QueriesByCategory: make(map[string]int)}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
