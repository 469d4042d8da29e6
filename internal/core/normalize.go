// Package core contains the query-understanding and response-selection
// engine: normalization, lexical and semantic matching, entity and topic
// extraction, intent classification, conversation context, fallback
// responses, and the retrying turn driver around them.
package core

import (
	"strings"
	"unicode/utf8"
)

// punctuation is the fixed set stripped before comparison or tokenizing.
const punctuation = ".,/#!$%^&*;:{}=-_`~()"

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "with": true,
	"by": true, "about": true, "as": true, "of": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "shall": true, "should": true, "can": true,
	"could": true, "may": true, "might": true, "must": true, "i": true,
	"you": true, "he": true, "she": true, "it": true, "we": true, "they": true,
	"me": true, "him": true, "her": true, "us": true, "them": true, "my": true,
	"your": true, "his": true, "its": true, "our": true, "their": true,
	"this": true, "that": true, "these": true, "those": true,
}

// suffixRules are tried in order; the first match is stripped and no
// further rule applies.
var suffixRules = []string{"ing", "ed", "s", "ly", "ment", "ness", "ity", "tion"}

func stripPunctuation(text string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, text)
}

// Normalize lowercases text, strips punctuation, and collapses runs of
// whitespace into single spaces.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	cleaned := stripPunctuation(strings.ToLower(strings.TrimSpace(text)))
	return strings.Join(strings.Fields(cleaned), " ")
}

// Tokenize splits text into lowercase words, dropping stopwords and words
// of two characters or fewer.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	var tokens []string
	for _, word := range strings.Fields(stripPunctuation(strings.ToLower(text))) {
		if utf8.RuneCountInString(word) <= 2 || stopwords[word] {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// IsStopword reports whether word is in the stopword set.
func IsStopword(word string) bool {
	return stopwords[word]
}

// Stem strips at most one common English suffix from word. Words shorter
// than three characters are returned unchanged.
func Stem(word string) string {
	if utf8.RuneCountInString(word) < 3 {
		return word
	}
	result := strings.ToLower(word)
	for _, suffix := range suffixRules {
		if !strings.HasSuffix(result, suffix) {
			continue
		}
		if suffix == "s" && strings.HasSuffix(result, "ss") {
			continue
		}
		return result[:len(result)-len(suffix)]
	}
	return result
}
