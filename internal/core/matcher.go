package core

import "github.com/valter-silva-au/supportbot/pkg/models"

// Matcher looks a query up in the knowledge catalog. The semantic and
// lexical tiers are exposed separately because the turn driver falls back
// from one to the other.
type Matcher interface {
	Semantic(query string) (*models.KnowledgeItem, error)
	Lexical(query string) (*models.KnowledgeItem, error)
}

type catalogMatcher struct {
	catalog           []models.KnowledgeItem
	lexicalThreshold  float64
	semanticThreshold float64
}

// NewCatalogMatcher creates a Matcher over an in-memory catalog. Returned
// items point into catalog. Non-positive thresholds use the defaults.
func NewCatalogMatcher(catalog []models.KnowledgeItem, lexicalThreshold, semanticThreshold float64) Matcher {
	if lexicalThreshold <= 0 {
		lexicalThreshold = DefaultLexicalThreshold
	}
	if semanticThreshold <= 0 {
		semanticThreshold = DefaultSemanticThreshold
	}
	return &catalogMatcher{
		catalog:           catalog,
		lexicalThreshold:  lexicalThreshold,
		semanticThreshold: semanticThreshold,
	}
}

func (m *catalogMatcher) Semantic(query string) (*models.KnowledgeItem, error) {
	return SemanticMatch(query, m.catalog, m.semanticThreshold).Item, nil
}

func (m *catalogMatcher) Lexical(query string) (*models.KnowledgeItem, error) {
	return LexicalMatch(query, m.catalog, m.lexicalThreshold).Item, nil
}
