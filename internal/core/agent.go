package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/valter-silva-au/supportbot/internal/logger"
	"github.com/valter-silva-au/supportbot/pkg/models"
)

// Confidence reported to telemetry for each way a turn can be answered.
const (
	FollowUpConfidence = 0.9
	MatchConfidence    = 0.7
)

var (
	// ErrStaleSession is returned for work started before the session was
	// reset. Such work has no side effects.
	ErrStaleSession = errors.New("session was reset")

	// ErrDelivery wraps failures of the Deliverer. They are not retried and
	// should be surfaced to the host, which may reset the session.
	ErrDelivery = errors.New("delivering message")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("agent closed")
)

// MessageKind classifies bot messages for hosts.
type MessageKind string

const (
	KindWelcome  MessageKind = "welcome"
	KindAnswer   MessageKind = "answer"
	KindFallback MessageKind = "fallback"
	KindFarewell MessageKind = "farewell"
	KindDegraded MessageKind = "degraded"
	KindApology  MessageKind = "apology"
	KindCheckIn  MessageKind = "check_in"
)

// BotMessage is one message to show the user. Hosts must drop messages
// whose Generation is no longer current and should wait Delay before
// showing it.
type BotMessage struct {
	ID         string          `json:"id"`
	Generation uint64          `json:"generation"`
	Kind       MessageKind     `json:"kind"`
	Text       string          `json:"text"`
	Rich       models.RichText `json:"rich"`
	Delay      time.Duration   `json:"delay"`
	QueryID    string          `json:"query_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// TurnResult describes how one user message was handled.
type TurnResult struct {
	Query      string
	Intent     models.Intent
	Matched    *models.KnowledgeItem
	Confidence float64
	Reply      BotMessage
	Attempts   int
	// Err is the final pipeline error when retries were exhausted and an
	// apology was delivered instead of an answer.
	Err error
}

// ChatAgent drives one chat session at a time: it accepts user messages,
// answers them from the catalog or the fallback generator, and owns the
// session lifecycle.
type ChatAgent interface {
	Start() error
	HandleMessage(ctx context.Context, text string) (*TurnResult, error)
	CheckIn(generation uint64) (bool, error)
	Reset() error
	Feedback(queryID string, helpful bool, comment string) error
	Generation() uint64
	SessionID() string
	Snapshot() models.SessionSummary
	History(maxTurns int) string
	Close() error
}

// AgentConfig wires a ChatAgent. Matcher and Deliverer are required; the
// rest fall back to no-op or default implementations.
type AgentConfig struct {
	Matcher   Matcher
	Deliverer Deliverer
	Telemetry Telemetry
	Errors    ErrorReporter
	Visits    VisitTracker
	Logger    logger.Logger
	Rand      Rand
	Clock     func() time.Time
	Settings  *models.BotConfig
	UserAgent string
}

// session bundles all per-session mutable state. A reset replaces the
// whole record.
type session struct {
	id            string
	generation    uint64
	conv          *Conversation
	farewellShown bool
	recent        []string
	lastActivity  time.Time
	messages      int
	ctx           context.Context
	cancel        context.CancelFunc
}

type chatAgent struct {
	matcher   Matcher
	deliverer Deliverer
	telemetry Telemetry
	errors    ErrorReporter
	visits    VisitTracker
	log       logger.Logger
	responder *Responder
	now       func() time.Time
	settings  *models.BotConfig
	userAgent string

	// sendMu serializes HandleMessage; mu guards everything below it.
	sendMu    sync.Mutex
	mu        sync.Mutex
	sess      *session
	started   bool
	closed    bool
	returning bool
}

// NewChatAgent creates a ChatAgent. No session is begun until Start.
func NewChatAgent(cfg AgentConfig) (ChatAgent, error) {
	if cfg.Matcher == nil {
		return nil, fmt.Errorf("creating chat agent: matcher is required")
	}
	if cfg.Deliverer == nil {
		return nil, fmt.Errorf("creating chat agent: deliverer is required")
	}
	a := &chatAgent{
		matcher:   cfg.Matcher,
		deliverer: cfg.Deliverer,
		telemetry: cfg.Telemetry,
		errors:    cfg.Errors,
		visits:    cfg.Visits,
		log:       cfg.Logger,
		now:       cfg.Clock,
		settings:  cfg.Settings,
		userAgent: cfg.UserAgent,
	}
	if a.log == nil {
		a.log = logger.Nop()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.settings == nil {
		a.settings = DefaultBotConfig()
	}
	if a.telemetry == nil {
		a.telemetry = nopTelemetry{}
	}
	if a.errors == nil {
		a.errors = &loggingReporter{log: a.log, now: a.now}
	}
	rng := cfg.Rand
	if rng == nil {
		seed := uint64(a.settings.Responses.Seed)
		if seed == 0 {
			seed = uint64(a.now().UnixNano())
		}
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	a.responder = NewResponder(rng, a.settings.Responses.BrandKeywords, a.settings.Responses.SuggestionPoolRatio)
	a.sess = a.newSession(1)
	return a, nil
}

func (a *chatAgent) newSession(generation uint64) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		generation:   generation,
		conv:         NewConversation(a.now),
		lastActivity: a.now(),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// beginSession registers sess with telemetry. Callers hold a.mu.
func (a *chatAgent) beginSession(sess *session) {
	id, err := a.telemetry.StartSession(a.userAgent)
	if err != nil {
		a.log.Warn("starting telemetry session", "error", err)
	}
	if id == "" {
		id = uuid.NewString()
	}
	sess.id = id
	a.trackEvent("page_view", map[string]any{"session_id": id, "page": "chat"})
}

// endSession hands the finished conversation to telemetry. Callers hold a.mu.
func (a *chatAgent) endSession(sess *session) {
	if err := a.telemetry.EndSession(sess.id, sess.conv.Summary(sess.id)); err != nil {
		a.log.Warn("ending telemetry session", "session", sess.id, "error", err)
	}
}

// Start begins the first session and delivers the welcome message. The
// returning-visitor flag is read here, once.
func (a *chatAgent) Start() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	a.beginSession(a.sess)

	if a.visits != nil {
		a.returning = WithFallback(a.visits.Visited, false, a.errors, "visit_lookup")
		if a.returning {
			a.trackEvent("returning_user", nil)
		} else {
			if err := a.visits.MarkVisited(); err != nil {
				a.log.Warn("recording visit", "error", err)
			}
			a.trackEvent("new_user", nil)
		}
	}

	msg := a.newMessage(a.sess, KindWelcome, a.welcomeText(), "")
	msg.Delay = a.settings.Timing.WelcomeDelay
	a.mu.Unlock()

	return a.deliver(msg)
}

func (a *chatAgent) welcomeText() string {
	if a.returning {
		return a.responder.Pick(WelcomeBackMessages)
	}
	return a.responder.Pick(WelcomeMessages)
}

// HandleMessage processes one user message. Blank input is ignored without
// any side effect and returns (nil, nil). Pipeline failures are retried;
// once retries are exhausted an apology is delivered and the returned
// result carries the error. A reset while the message is in flight yields
// ErrStaleSession.
func (a *chatAgent) HandleMessage(ctx context.Context, text string) (*TurnResult, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return nil, nil
	}

	a.sendMu.Lock()
	defer a.sendMu.Unlock()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, ErrClosed
	}
	sess := a.sess
	if !a.started {
		a.started = true
		a.beginSession(sess)
	}
	sess.lastActivity = a.now()
	sess.messages++
	a.trackEvent("user_message", map[string]any{"message_id": uuid.NewString(), "content_length": len(query)})
	sess.recent = append(sess.recent, strings.ToLower(query))
	if n := a.settings.HistorySize; n > 0 && len(sess.recent) > n {
		sess.recent = sess.recent[len(sess.recent)-n:]
	}

	intent := DetectIntent(query)
	if intent == models.IntentFarewell && !sess.farewellShown {
		sess.farewellShown = true
		msg := a.newMessage(sess, KindFarewell, a.responder.Pick(FarewellMessages), "")
		a.trackEvent("farewell", nil)
		a.mu.Unlock()
		if err := a.deliver(msg); err != nil {
			return nil, err
		}
		return &TurnResult{Query: query, Intent: intent, Reply: msg}, nil
	}
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(sess.ctx, cancel)
	defer stop()

	start := a.now()
	result := &TurnResult{Query: query, Intent: intent}
	err := Retry(ctx, RetryOptions{
		MaxAttempts: a.settings.Retry.MaxAttempts,
		Delay:       a.settings.Retry.Delay,
		Reporter:    sessionReporter{agent: a, sess: sess},
		OnRetry: func(attempt int, err error) {
			a.onRetry(sess, attempt, err)
		},
	}, func(ctx context.Context) error {
		result.Attempts++
		msg, err := a.answer(sess, query, intent, start, result)
		if err != nil {
			return err
		}
		if err := a.deliver(msg); err != nil {
			return Permanent(err)
		}
		return nil
	})

	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, ErrStaleSession) || sess.ctx.Err() != nil:
		return nil, ErrStaleSession
	case errors.Is(err, ErrDelivery):
		return nil, err
	case ctx.Err() != nil:
		return nil, ctx.Err()
	}

	a.mu.Lock()
	if a.sess != sess {
		a.mu.Unlock()
		return nil, ErrStaleSession
	}
	a.errors.LogError(err, "send_message", map[string]any{"attempts": result.Attempts})
	apology := a.newMessage(sess, KindApology, ApologyReply, "")
	a.mu.Unlock()

	if derr := a.deliver(apology); derr != nil {
		return nil, derr
	}
	result.Reply = apology
	result.Err = err
	return result, nil
}

// answer runs one match-and-respond attempt and commits the turn. Nothing
// is recorded unless the attempt succeeds for the current session.
func (a *chatAgent) answer(sess *session, query string, intent models.Intent, start time.Time, result *TurnResult) (BotMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sess != sess {
		return BotMessage{}, Permanent(ErrStaleSession)
	}

	matched, confidence, err := a.match(sess, query)
	if err != nil {
		return BotMessage{}, err
	}

	kind := KindAnswer
	var reply Reply
	if matched != nil {
		reply.Text = matched.Answer
	} else {
		kind = KindFallback
		reply = a.generate(sess.conv, query)
	}

	sess.conv.AddTurn(query, reply.Text, matched, intent)
	if reply.ResourcesOffered {
		sess.conv.MarkResourcesOffered()
	}
	for _, ev := range reply.Events {
		a.trackEvent(ev.Type, ev.Data)
	}

	queryID, err := a.telemetry.TrackQuery(query, matched, confidence, a.now().Sub(start))
	if err != nil {
		a.log.Warn("tracking query", "error", err)
	}

	result.Matched = matched
	result.Confidence = confidence
	result.Reply = a.newMessage(sess, kind, reply.Text, queryID)
	return result.Reply, nil
}

// generate runs the fallback generator. A panic inside it is logged and
// answered with a fixed reply instead of failing the attempt.
func (a *chatAgent) generate(conv *Conversation, query string) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			a.errors.LogError(fmt.Errorf("generating fallback reply: %v", r), "generate_generic_response", map[string]any{"query": query})
			reply = Reply{Text: GeneratorFailureReply}
		}
	}()
	return a.responder.Generate(conv, query)
}

// match resolves the query against the catalog: a follow-up reuses the
// last match, then the semantic and lexical tiers are tried on the query
// alone and finally on the last two queries joined.
func (a *chatAgent) match(sess *session, query string) (*models.KnowledgeItem, float64, error) {
	if sess.conv.IsFollowUp(query) {
		if last := sess.conv.LastMatched(); last != nil {
			return last, FollowUpConfidence, nil
		}
	}

	item, err := a.lookup(query)
	if err != nil {
		return nil, 0, err
	}
	if item == nil && len(sess.recent) > 1 {
		combined := strings.Join(sess.recent[len(sess.recent)-2:], " ")
		if item, err = a.lookup(combined); err != nil {
			return nil, 0, err
		}
	}
	if item == nil {
		return nil, 0, nil
	}
	return item, MatchConfidence, nil
}

func (a *chatAgent) lookup(query string) (*models.KnowledgeItem, error) {
	item, err := a.matcher.Semantic(query)
	if err != nil || item != nil {
		return item, err
	}
	return a.matcher.Lexical(query)
}

// onRetry reports retry progress and, from the configured attempt on,
// delivers a degraded-service message while retries continue.
func (a *chatAgent) onRetry(sess *session, attempt int, err error) {
	a.mu.Lock()
	if a.sess != sess {
		a.mu.Unlock()
		return
	}
	a.errors.LogError(err, "message_retry", map[string]any{"attempt": attempt})
	var degraded *BotMessage
	if attempt >= a.settings.Retry.DegradeAfter {
		msg := a.newMessage(sess, KindDegraded, DegradationMessage(err), "")
		degraded = &msg
	}
	a.mu.Unlock()

	if n, ok := a.deliverer.(RetryNotifier); ok {
		n.RetryAttempt(sess.generation, attempt, a.settings.Retry.MaxAttempts)
	}
	if degraded != nil {
		if derr := a.deliver(*degraded); derr != nil {
			a.log.Error("delivering degraded message", "error", derr)
		}
	}
}

// CheckIn delivers an idle check-in message if the session identified by
// generation is still current, has been idle long enough, has at least one
// turn, and has not said goodbye. It reports whether a message was sent.
func (a *chatAgent) CheckIn(generation uint64) (bool, error) {
	a.mu.Lock()
	sess := a.sess
	if a.closed || sess.generation != generation || sess.farewellShown || sess.conv.Len() == 0 ||
		a.now().Sub(sess.lastActivity) < a.settings.Timing.CheckInAfter {
		a.mu.Unlock()
		return false, nil
	}
	msg := a.newMessage(sess, KindCheckIn, a.responder.Pick(CheckInMessages), "")
	sess.lastActivity = a.now()
	a.trackEvent("check_in_message", nil)
	a.mu.Unlock()

	if err := a.deliver(msg); err != nil {
		return false, err
	}
	return true, nil
}

// Reset finalizes the current session and starts a new generation. Work
// still in flight for the old session is cancelled and its results are
// dropped. A farewell is delivered immediately and a welcome after the
// reset delay.
func (a *chatAgent) Reset() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	old := a.sess
	a.trackEvent("reset_chat", map[string]any{
		"message_count":         old.messages,
		"conversation_duration": a.now().Sub(old.conv.StartedAt()).Milliseconds(),
	})
	old.cancel()
	a.endSession(old)

	next := a.newSession(old.generation + 1)
	a.sess = next
	a.started = true
	a.beginSession(next)

	farewell := a.newMessage(next, KindFarewell, a.responder.Pick(FarewellMessages), "")
	welcome := a.newMessage(next, KindWelcome, a.welcomeText(), "")
	welcome.Delay = a.settings.Timing.ResetWelcomeDelay
	a.mu.Unlock()

	if err := a.deliver(farewell); err != nil {
		return err
	}
	return a.deliver(welcome)
}

// Feedback records whether the answer identified by queryID helped.
func (a *chatAgent) Feedback(queryID string, helpful bool, comment string) error {
	if queryID == "" {
		return fmt.Errorf("recording feedback: query id is required")
	}
	if err := a.telemetry.TrackFeedback(queryID, helpful, comment); err != nil {
		a.errors.LogError(err, "update_message_feedback", map[string]any{"query_id": queryID})
		return fmt.Errorf("recording feedback: %w", err)
	}
	return nil
}

func (a *chatAgent) Generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sess.generation
}

func (a *chatAgent) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sess.id
}

func (a *chatAgent) Snapshot() models.SessionSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sess.conv.Summary(a.sess.id)
}

func (a *chatAgent) History(maxTurns int) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sess.conv.History(maxTurns)
}

// Close ends the current session. Further calls fail with ErrClosed.
func (a *chatAgent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.sess.cancel()
	if a.started {
		a.endSession(a.sess)
	}
	return nil
}

// newMessage builds a bot message for sess with a typing delay sized to the
// text. Callers hold a.mu.
func (a *chatAgent) newMessage(sess *session, kind MessageKind, text, queryID string) BotMessage {
	t := a.settings.Typing
	msg := BotMessage{
		ID:         uuid.NewString(),
		Generation: sess.generation,
		Kind:       kind,
		Text:       text,
		Rich:       ToRichText(text),
		Delay:      TypingDelay(text, t.PerChar, t.Min, t.Max),
		QueryID:    queryID,
		Timestamp:  a.now(),
	}
	sess.messages++
	a.trackEvent("bot_message", map[string]any{"message_id": msg.ID, "content_length": len(text)})
	return msg
}

// deliver hands msg to the host unless its generation has gone stale.
func (a *chatAgent) deliver(msg BotMessage) error {
	a.mu.Lock()
	stale := a.sess.generation != msg.Generation
	a.mu.Unlock()
	if stale {
		return nil
	}
	if err := a.deliverer.Deliver(msg); err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return nil
}

// trackEvent forwards to telemetry, logging and swallowing failures.
func (a *chatAgent) trackEvent(eventType string, data map[string]any) {
	if err := a.telemetry.TrackEvent(eventType, data); err != nil {
		a.log.Warn("tracking event", "type", eventType, "error", err)
	}
}

// sessionReporter drops error reports for sessions that are no longer
// current.
type sessionReporter struct {
	agent *chatAgent
	sess  *session
}

func (r sessionReporter) LogError(err error, component string, context map[string]any) models.ErrorDetails {
	r.agent.mu.Lock()
	defer r.agent.mu.Unlock()
	if r.agent.sess != r.sess {
		return models.ErrorDetails{Message: err.Error(), Component: component, Recoverable: true}
	}
	return r.agent.errors.LogError(err, component, context)
}

// loggingReporter is the ErrorReporter used when none is configured.
type loggingReporter struct {
	log logger.Logger
	now func() time.Time
}

func (r *loggingReporter) LogError(err error, component string, context map[string]any) models.ErrorDetails {
	r.log.Error("error logged", "component", component, "error", err, "context", context)
	return models.ErrorDetails{
		Message:     err.Error(),
		Component:   component,
		Recoverable: true,
		Timestamp:   r.now(),
		Context:     context,
	}
}

type nopTelemetry struct{}

func (nopTelemetry) TrackEvent(string, map[string]any) error { return nil }
func (nopTelemetry) TrackQuery(string, *models.KnowledgeItem, float64, time.Duration) (string, error) {
	return uuid.NewString(), nil
}
func (nopTelemetry) TrackFeedback(string, bool, string) error       { return nil }
func (nopTelemetry) StartSession(string) (string, error)            { return uuid.NewString(), nil }
func (nopTelemetry) EndSession(string, models.SessionSummary) error { return nil }
