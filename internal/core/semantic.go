package core

import (
	"math"
	"strings"

	"github.com/valter-silva-au/supportbot/pkg/models"
)

// DefaultSemanticThreshold is the minimum weighted score accepted as a match.
const DefaultSemanticThreshold = 15.0

// Weights of the semantic score components.
const (
	questionWeight    = 40.0
	alternativeWeight = 30.0
	agentBonus        = 15.0
	healthcareBonus   = 10.0
	topicBonus        = 20.0
	stemBonus         = 50.0
)

// Corpus holds document frequencies for TF-IDF weighting.
type Corpus struct {
	size int
	df   map[string]int
}

// NewCorpus builds document frequencies over the given documents.
func NewCorpus(documents []string) *Corpus {
	c := &Corpus{size: len(documents), df: make(map[string]int)}
	for _, doc := range documents {
		seen := make(map[string]bool)
		for _, tok := range Tokenize(doc) {
			if !seen[tok] {
				seen[tok] = true
				c.df[tok]++
			}
		}
	}
	return c
}

// IDF returns ln(N / (df+1)) for term. It is negative for terms present in
// every document.
func (c *Corpus) IDF(term string) float64 {
	if c.size == 0 {
		return 0
	}
	return math.Log(float64(c.size) / float64(c.df[term]+1))
}

// Similarity is the cosine of the TF-IDF vectors of a and b, taken over the
// union of just their two token sets.
func (c *Corpus) Similarity(a, b string) float64 {
	return c.similarity(Tokenize(a), Tokenize(b))
}

func (c *Corpus) similarity(tokensA, tokensB []string) float64 {
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	countA := termCounts(tokensA)
	countB := termCounts(tokensB)

	// Terms are visited in first-appearance order so sums are reproducible.
	var dot, magA, magB float64
	seen := make(map[string]bool, len(countA)+len(countB))
	for _, term := range append(append([]string(nil), tokensA...), tokensB...) {
		if seen[term] {
			continue
		}
		seen[term] = true
		idf := c.IDF(term)
		va := float64(countA[term]) / float64(len(tokensA)) * idf
		vb := float64(countB[term]) / float64(len(tokensB)) * idf
		dot += va * vb
		magA += va * va
		magB += vb * vb
	}

	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func termCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}

// EnhancedMatch scores every catalog item against the query with TF-IDF
// similarity plus entity, topic, and stem bonuses, and returns the best item
// scoring at least DefaultSemanticThreshold, or nil.
func EnhancedMatch(query string, catalog []models.KnowledgeItem) *models.KnowledgeItem {
	return SemanticMatch(query, catalog, DefaultSemanticThreshold).Item
}

// SemanticMatch is EnhancedMatch with an explicit threshold, returning the
// winning score alongside the item. The corpus is rebuilt on every call and
// includes the query as its last document.
func SemanticMatch(query string, catalog []models.KnowledgeItem, threshold float64) models.MatchResult {
	if query == "" || len(catalog) == 0 {
		return models.MatchResult{}
	}

	documents := make([]string, 0, len(catalog)+1)
	for _, item := range catalog {
		documents = append(documents, item.Question+" "+item.Answer+" "+strings.Join(item.AlternativeQuestions, " "))
	}
	documents = append(documents, query)
	corpus := NewCorpus(documents)

	queryTokens := Tokenize(query)
	queryEntities := ExtractEntities(query)
	queryTopic := DetectTopic(query)
	stemmedQuery := Stem(Normalize(query))

	var best *models.KnowledgeItem
	highest := 0.0
	for i := range catalog {
		item := &catalog[i]
		score := corpus.similarity(queryTokens, Tokenize(item.Question)) * questionWeight

		itemEntities := ExtractEntities(item.Question + " " + item.Answer)
		if overlaps(queryEntities.Agents, itemEntities.Agents) {
			score += agentBonus
		}
		if overlaps(queryEntities.Healthcare, itemEntities.Healthcare) {
			score += healthcareBonus
		}

		if queryTopic == itemTopic(item) {
			score += topicBonus
		}

		for _, alt := range item.AlternativeQuestions {
			score += corpus.similarity(queryTokens, Tokenize(alt)) * alternativeWeight
		}

		if stemmedQuery == Stem(Normalize(item.Question)) {
			score += stemBonus
		}

		if score > highest {
			highest = score
			best = item
		}
	}

	if best == nil || highest < threshold {
		return models.MatchResult{Score: highest}
	}
	return models.MatchResult{Item: best, Score: highest}
}

// itemTopic is the item's category when set, else the topic of its question.
func itemTopic(item *models.KnowledgeItem) models.Topic {
	if item.Category != "" {
		return models.Topic(strings.ToLower(item.Category))
	}
	return DetectTopic(item.Question)
}
