package core

import (
	"fmt"
	"strings"

	"github.com/valter-silva-au/supportbot/pkg/models"
)

// DefaultSuggestionPoolRatio is the probability of answering a resource
// suggestion from the fixed pool rather than composing one.
const DefaultSuggestionPoolRatio = 0.7

// DefaultBrandKeywords trigger a resource suggestion when an unmatched query
// mentions the product itself.
var DefaultBrandKeywords = []string{"thoughtful ai", "thoughtful"}

// Rand is the randomness the responder needs. *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// PendingEvent is a telemetry event produced while computing a reply. It is
// only recorded once the reply is committed.
type PendingEvent struct {
	Type string
	Data map[string]any
}

// Reply is the outcome of the fallback generator.
type Reply struct {
	Text             string
	ResourcesOffered bool
	Events           []PendingEvent
}

// Responder composes fallback replies for queries with no catalog match.
type Responder struct {
	rng           Rand
	brandKeywords []string
	poolRatio     float64
}

// NewResponder creates a Responder. Empty brand keywords and a
// non-positive pool ratio fall back to the defaults.
func NewResponder(rng Rand, brandKeywords []string, poolRatio float64) *Responder {
	if len(brandKeywords) == 0 {
		brandKeywords = DefaultBrandKeywords
	}
	if poolRatio <= 0 {
		poolRatio = DefaultSuggestionPoolRatio
	}
	return &Responder{rng: rng, brandKeywords: brandKeywords, poolRatio: poolRatio}
}

// Pick returns a uniformly random element of pool.
func (r *Responder) Pick(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[r.rng.IntN(len(pool))]
}

// Generate produces the fallback reply for query given the conversation so
// far. It does not modify conv; the caller applies Reply.ResourcesOffered
// when it commits the turn.
func (r *Responder) Generate(conv *Conversation, query string) Reply {
	intent := DetectIntent(query)
	topic := DetectTopic(query)

	reply := Reply{Events: []PendingEvent{{
		Type: "generic_response",
		Data: map[string]any{
			"intent":    string(intent),
			"topic":     string(topic),
			"entities":  ExtractEntities(query),
			"follow_up": conv.IsFollowUp(query),
		},
	}}}

	lower := strings.ToLower(query)
	if containsAny(lower, r.brandKeywords) {
		return r.suggestResources(conv, reply)
	}

	switch intent {
	case models.IntentGreeting:
		reply.Text = GreetingReply
	case models.IntentThanks:
		reply.Text = ThanksReply
	case models.IntentHelp:
		reply.Text = HelpReply
	case models.IntentContact:
		reply.Text = ContactReply
	case models.IntentFollowUp:
		if text, ok := FollowUpElaboration(conv.CurrentTopic()); ok {
			reply.Text = text
		} else if conv.ResourcesOffered() {
			reply.Text = AlreadySharedReply
		} else {
			return r.suggestResources(conv, reply)
		}
	default:
		if teaser, ok := agentTeasers[topic]; ok {
			reply.Text = teaser
		} else {
			return r.suggestResources(conv, reply)
		}
	}
	return reply
}

// suggestResources points the user at external resources, either from the
// fixed pool or composed from their inferred preferences.
func (r *Responder) suggestResources(conv *Conversation, reply Reply) Reply {
	reply.ResourcesOffered = true

	if r.rng.Float64() < r.poolRatio {
		reply.Text = r.Pick(ResourceSuggestions)
		return reply
	}

	topic := conv.CurrentTopic()
	if topic == "" {
		topic = models.TopicGeneral
	}
	prefs := conv.Preferences()
	reply.Events = append(reply.Events, PendingEvent{
		Type: "resource_suggestion",
		Data: map[string]any{"topic": string(topic), "preferences": prefs},
	})

	switch {
	case prefs.PrefersDetailedResponses:
		reply.Text = DetailedResourceReply
	case prefs.InterestedInAgent != "":
		agent := strings.ToUpper(prefs.InterestedInAgent)
		reply.Text = fmt.Sprintf(agentResourceFormat, agent, strings.ToLower(agent))
	default:
		reply.Text = WebsiteResourceReply
	}
	return reply
}
