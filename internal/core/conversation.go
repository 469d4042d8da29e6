package core

import (
	"regexp"
	"strings"
	"time"

	"github.com/valter-silva-au/supportbot/pkg/models"
)

// contextualPhrases extend the intent follow-up phrases with connectives
// that only make sense after an earlier turn.
var contextualPhrases = append(append([]string(nil), followUpPhrases...), "and", "also", "too", "as well")

var pronounPattern = regexp.MustCompile(`\b(it|this|that|they|them|these|those)\b`)

var detailPhrases = []string{"detail", "explain", "elaborate", "more", "specific"}

// shortQueryWords is the word count at or below which a query is assumed to
// lean on the previous turn.
const shortQueryWords = 3

// Conversation is the append-only turn log of one session plus the state
// derived from it. It is owned by a single session and is not safe for
// concurrent use.
type Conversation struct {
	turns            []models.ConversationTurn
	currentTopic     models.Topic
	previousTopics   []models.Topic
	lastMatched      *models.KnowledgeItem
	startedAt        time.Time
	resourcesOffered bool
	now              func() time.Time
}

// NewConversation starts an empty conversation. A nil clock means time.Now.
func NewConversation(now func() time.Time) *Conversation {
	if now == nil {
		now = time.Now
	}
	return &Conversation{startedAt: now(), now: now}
}

// AddTurn records a completed turn. Topic and entities are derived from the
// query. The current topic only moves for substantive intents, and the
// last match only moves when matched is non-nil.
func (c *Conversation) AddTurn(query, response string, matched *models.KnowledgeItem, intent models.Intent) models.ConversationTurn {
	ts := c.now()
	if n := len(c.turns); n > 0 && ts.Before(c.turns[n-1].Timestamp) {
		ts = c.turns[n-1].Timestamp
	}

	turn := models.ConversationTurn{
		Query:       query,
		Response:    response,
		MatchedItem: matched,
		Timestamp:   ts,
		Intent:      intent,
		Topic:       DetectTopic(query),
		Entities:    ExtractEntities(query),
	}
	c.turns = append(c.turns, turn)

	if intent.Substantive() {
		if c.currentTopic != "" && c.currentTopic != turn.Topic {
			c.previousTopics = append(c.previousTopics, c.currentTopic)
		}
		c.currentTopic = turn.Topic
	}
	if matched != nil {
		c.lastMatched = matched
	}
	return turn
}

// Turns returns a copy of the turn log.
func (c *Conversation) Turns() []models.ConversationTurn {
	return append([]models.ConversationTurn(nil), c.turns...)
}

// Len returns the number of recorded turns.
func (c *Conversation) Len() int { return len(c.turns) }

// CurrentTopic returns the topic of the latest substantive turn, or "".
func (c *Conversation) CurrentTopic() models.Topic { return c.currentTopic }

// PreviousTopics returns the topics the conversation has moved away from.
func (c *Conversation) PreviousTopics() []models.Topic {
	return append([]models.Topic(nil), c.previousTopics...)
}

// LastMatched returns the most recent catalog hit, or nil.
func (c *Conversation) LastMatched() *models.KnowledgeItem { return c.lastMatched }

// StartedAt returns when the conversation was created.
func (c *Conversation) StartedAt() time.Time { return c.startedAt }

// ResourcesOffered reports whether external resources were ever suggested.
func (c *Conversation) ResourcesOffered() bool { return c.resourcesOffered }

// MarkResourcesOffered sets the sticky resources flag.
func (c *Conversation) MarkResourcesOffered() { c.resourcesOffered = true }

// IsFollowUp reports whether query likely depends on earlier turns: it uses
// a follow-up phrase, is three words or fewer, or refers back with a
// pronoun. It is always false for an empty conversation.
func (c *Conversation) IsFollowUp(query string) bool {
	if len(c.turns) == 0 {
		return false
	}
	lower := strings.ToLower(query)
	if containsAny(lower, contextualPhrases) {
		return true
	}
	if len(strings.Fields(query)) <= shortQueryWords {
		return true
	}
	return pronounPattern.MatchString(lower)
}

// Preferences infers user preferences from the turn log.
func (c *Conversation) Preferences() models.Preferences {
	var prefs models.Preferences

	detailed := 0
	for _, t := range c.turns {
		if containsAny(strings.ToLower(t.Query), detailPhrases) {
			detailed++
		}
	}
	prefs.PrefersDetailedResponses = detailed >= 2

	// First agent to reach the highest count wins.
	counts := make(map[string]int)
	var order []string
	for _, t := range c.turns {
		for _, agent := range t.Entities.Agents {
			if counts[agent] == 0 {
				order = append(order, agent)
			}
			counts[agent]++
		}
	}
	best := 0
	for _, agent := range order {
		if counts[agent] > best {
			best = counts[agent]
			prefs.InterestedInAgent = agent
		}
	}
	return prefs
}

// History renders the last maxTurns turns as a User/Bot transcript. A
// non-positive maxTurns renders every turn.
func (c *Conversation) History(maxTurns int) string {
	turns := c.turns
	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		parts = append(parts, "User: "+t.Query+"\nBot: "+t.Response)
	}
	return strings.Join(parts, "\n\n")
}

// RelatedTopics returns the distinct non-general topics discussed, in
// order of first appearance.
func (c *Conversation) RelatedTopics() []models.Topic {
	seen := make(map[models.Topic]bool)
	var topics []models.Topic
	for _, t := range c.turns {
		if t.Topic == models.TopicGeneral || seen[t.Topic] {
			continue
		}
		seen[t.Topic] = true
		topics = append(topics, t.Topic)
	}
	return topics
}

// Summary snapshots the conversation for the end-of-session hand-off.
// Topics lists every distinct turn topic, general included.
func (c *Conversation) Summary(sessionID string) models.SessionSummary {
	seen := make(map[models.Topic]bool)
	var topics []models.Topic
	for _, t := range c.turns {
		if !seen[t.Topic] {
			seen[t.Topic] = true
			topics = append(topics, t.Topic)
		}
	}
	return models.SessionSummary{
		SessionID:        sessionID,
		StartedAt:        c.startedAt,
		EndedAt:          c.now(),
		Turns:            c.Turns(),
		Topics:           topics,
		RelatedTopics:    c.RelatedTopics(),
		ResourcesOffered: c.resourcesOffered,
		Preferences:      c.Preferences(),
	}
}
