package core

import (
	"strings"

	"github.com/valter-silva-au/supportbot/pkg/models"
)

// DefaultLexicalThreshold is the minimum lexical score accepted as a match.
const DefaultLexicalThreshold = 0.3

// FindBestMatch scans the catalog in order and returns the item whose
// question best overlaps the query, or nil. An exact normalized match wins
// immediately; otherwise only a strictly greater score replaces the current
// best, so the earliest item wins ties.
func FindBestMatch(query string, catalog []models.KnowledgeItem) *models.KnowledgeItem {
	return LexicalMatch(query, catalog, DefaultLexicalThreshold).Item
}

// LexicalMatch is FindBestMatch with an explicit threshold, returning the
// winning score alongside the item.
func LexicalMatch(query string, catalog []models.KnowledgeItem, threshold float64) models.MatchResult {
	normalizedQuery := Normalize(query)
	if normalizedQuery == "" || len(catalog) == 0 {
		return models.MatchResult{}
	}
	queryWords := wordSet(normalizedQuery)

	var best *models.KnowledgeItem
	highest := 0.0
	for i := range catalog {
		normalizedQuestion := Normalize(catalog[i].Question)
		if normalizedQuery == normalizedQuestion {
			return models.MatchResult{Item: &catalog[i], Score: 1}
		}
		score := max(containment(normalizedQuery, normalizedQuestion), jaccard(queryWords, wordSet(normalizedQuestion)))
		if score > highest {
			highest = score
			best = &catalog[i]
		}
	}
	if best == nil || highest < threshold {
		return models.MatchResult{Score: highest}
	}
	return models.MatchResult{Item: best, Score: highest}
}

// containment returns shorter/longer when one string contains the other.
func containment(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	switch {
	case strings.Contains(a, b):
		return float64(len(b)) / float64(len(a))
	case strings.Contains(b, a):
		return float64(len(a)) / float64(len(b))
	}
	return 0
}

func wordSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Split(normalized, " ") {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	common := 0
	for w := range a {
		if _, ok := b[w]; ok {
			common++
		}
	}
	if common == 0 {
		return 0
	}
	return float64(common) / float64(len(a)+len(b)-common)
}
