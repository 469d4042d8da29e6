package models

// KnowledgeItem is one curated question/answer record of the catalog.
// Items are loaded once and never modified afterwards; matchers hand out
// pointers into the catalog slice rather than copies.
type KnowledgeItem struct {
	Question             string   `yaml:"question" json:"question"`
	Answer               string   `yaml:"answer" json:"answer"`
	Category             string   `yaml:"category,omitempty" json:"category,omitempty"`
	AlternativeQuestions []string `yaml:"alternative_questions,omitempty" json:"alternative_questions,omitempty"`
}

// CatalogFile is the on-disk layout of a knowledge catalog.
type CatalogFile struct {
	Version string          `yaml:"version"`
	Items   []KnowledgeItem `yaml:"items"`
}

// MatchResult pairs a catalog item with the score that selected it.
// Item is nil when nothing cleared the matcher's threshold.
type MatchResult struct {
	Item  *KnowledgeItem `json:"item,omitempty"`
	Score float64        `json:"score"`
}
