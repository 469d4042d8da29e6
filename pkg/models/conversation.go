package models

import "time"

// Intent is the short-term conversational purpose of a single message.
type Intent string

const (
	IntentFarewell Intent = "farewell"
	IntentFollowUp Intent = "follow_up"
	IntentGreeting Intent = "greeting"
	IntentThanks   Intent = "thanks"
	IntentHelp     Intent = "help"
	IntentContact  Intent = "contact"
	IntentQuestion Intent = "question"
)

// Substantive reports whether a message with this intent may move the
// conversation's current topic.
func (i Intent) Substantive() bool {
	switch i {
	case IntentGreeting, IntentFarewell, IntentThanks:
		return false
	}
	return true
}

// Topic is the coarse subject label assigned to a text.
type Topic string

const (
	TopicEligibility Topic = "eligibility_verification"
	TopicClaims      Topic = "claims_processing"
	TopicPayments    Topic = "payment_posting"
	TopicAgents      Topic = "agents"
	TopicBenefits    Topic = "benefits"
	TopicPricing     Topic = "pricing"
	TopicContact     Topic = "contact"
	TopicGeneral     Topic = "general"
)

// Entities holds the keywords found in a text, bucketed by kind. Order
// follows keyword list order and duplicates are kept.
type Entities struct {
	Agents     []string `yaml:"agents,omitempty" json:"agents,omitempty"`
	Healthcare []string `yaml:"healthcare,omitempty" json:"healthcare,omitempty"`
	Actions    []string `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// ConversationTurn is one accepted user message and the reply it produced.
type ConversationTurn struct {
	Query       string         `yaml:"query" json:"query"`
	Response    string         `yaml:"response" json:"response"`
	MatchedItem *KnowledgeItem `yaml:"matched_item,omitempty" json:"matched_item,omitempty"`
	Timestamp   time.Time      `yaml:"timestamp" json:"timestamp"`
	Intent      Intent         `yaml:"intent" json:"intent"`
	Topic       Topic          `yaml:"topic" json:"topic"`
	Entities    Entities       `yaml:"entities" json:"entities"`
}

// Preferences are inferred from the conversation on demand.
type Preferences struct {
	PrefersDetailedResponses bool   `yaml:"prefers_detailed_responses,omitempty" json:"prefers_detailed_responses,omitempty"`
	InterestedInAgent        string `yaml:"interested_in_agent,omitempty" json:"interested_in_agent,omitempty"`
}

// SessionSummary is the read-only view of a finished conversation handed to
// telemetry when a session ends.
type SessionSummary struct {
	SessionID        string             `json:"session_id"`
	StartedAt        time.Time          `json:"started_at"`
	EndedAt          time.Time          `json:"ended_at"`
	Turns            []ConversationTurn `json:"turns"`
	Topics           []Topic            `json:"topics,omitempty"`
	RelatedTopics    []Topic            `json:"related_topics,omitempty"`
	ResourcesOffered bool               `json:"resources_offered"`
	Preferences      Preferences        `json:"preferences"`
}
