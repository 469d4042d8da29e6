package core

import (
	"slices"
	"strings"

	"github.com/valter-silva-au/supportbot/pkg/models"
)

// Agent keywords, matched as substrings.
var agentKeywords = []string{"eva", "cam", "phil"}

var healthcareKeywords = []string{
	"patient", "hospital", "clinic", "doctor", "healthcare", "medical",
	"insurance", "claim", "billing", "reimbursement", "eligibility",
}

var actionKeywords = []string{
	"help", "explain", "tell", "show", "find", "get", "need", "want",
	"looking for", "searching", "how to", "how do",
}

// topicRule maps a set of substrings, or an agent entity, to a topic.
type topicRule struct {
	topic    models.Topic
	agent    string
	anyAgent bool
	keywords []string
}

// topicRules is evaluated top to bottom; the first rule that holds wins.
var topicRules = []topicRule{
	{topic: models.TopicEligibility, agent: "eva", keywords: []string{"eligibility", "verification"}},
	{topic: models.TopicClaims, agent: "cam", keywords: []string{"claim", "claims"}},
	{topic: models.TopicPayments, agent: "phil", keywords: []string{"payment", "posting"}},
	{topic: models.TopicAgents, anyAgent: true, keywords: []string{"agent"}},
	{topic: models.TopicBenefits, keywords: []string{"benefit", "advantage"}},
	{topic: models.TopicPricing, keywords: []string{"price", "cost", "pricing"}},
	{topic: models.TopicContact, keywords: []string{"contact", "support", "help"}},
}

// ExtractEntities finds agent names, healthcare terms, and action phrases in
// text by case-insensitive substring search.
func ExtractEntities(text string) models.Entities {
	lower := strings.ToLower(text)
	return models.Entities{
		Agents:     containedKeywords(lower, agentKeywords),
		Healthcare: containedKeywords(lower, healthcareKeywords),
		Actions:    containedKeywords(lower, actionKeywords),
	}
}

func containedKeywords(lower string, keywords []string) []string {
	var found []string
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			found = append(found, k)
		}
	}
	return found
}

// DetectTopic assigns text a topic label using a fixed precedence chain,
// falling back to TopicGeneral.
func DetectTopic(text string) models.Topic {
	lower := strings.ToLower(text)
	agents := containedKeywords(lower, agentKeywords)

	for _, rule := range topicRules {
		if rule.agent != "" && slices.Contains(agents, rule.agent) {
			return rule.topic
		}
		if rule.anyAgent && len(agents) > 0 {
			return rule.topic
		}
		if containsAny(lower, rule.keywords) {
			return rule.topic
		}
	}
	return models.TopicGeneral
}

// AgentTopic reports whether t is one of the per-agent topics.
func AgentTopic(t models.Topic) bool {
	return t == models.TopicEligibility || t == models.TopicClaims || t == models.TopicPayments
}

func containsAny(lower string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// overlaps reports whether any element of a appears in b.
func overlaps(a, b []string) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}
