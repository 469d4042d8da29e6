package core

import "github.com/valter-silva-au/supportbot/pkg/models"

var farewellKeywords = []string{"bye", "goodbye", "see you", "farewell", "thanks", "thank you"}

// followUpPhrases mark a message as asking to continue the current topic.
var followUpPhrases = []string{
	"tell me more", "more information", "elaborate", "explain further",
	"details", "examples", "what about", "how about",
}

type intentRule struct {
	intent   models.Intent
	keywords []string
}

// intentRules is evaluated in order over the normalized message. Keywords
// are plain substrings, so "hi" also fires inside "this".
var intentRules = []intentRule{
	{models.IntentFarewell, farewellKeywords},
	{models.IntentFollowUp, followUpPhrases},
	{models.IntentGreeting, []string{"hello", "hi"}},
	{models.IntentThanks, []string{"thank"}},
	{models.IntentHelp, []string{"help", "assist"}},
	{models.IntentContact, []string{"contact", "email", "phone", "call", "support"}},
}

// DetectIntent classifies a message with ordered keyword rules, defaulting
// to IntentQuestion.
func DetectIntent(message string) models.Intent {
	normalized := Normalize(message)
	for _, rule := range intentRules {
		if containsAny(normalized, rule.keywords) {
			return rule.intent
		}
	}
	return models.IntentQuestion
}
