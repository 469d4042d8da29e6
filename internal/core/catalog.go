package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valter-silva-au/supportbot/pkg/models"
)

// ErrEmptyCatalog is returned when a catalog holds no items.
var ErrEmptyCatalog = errors.New("catalog has no items")

// CatalogIssue is one problem found in a catalog item.
type CatalogIssue struct {
	Index    int    `json:"index"`
	Question string `json:"question"`
	Problem  string `json:"problem"`
}

func (i CatalogIssue) String() string {
	return fmt.Sprintf("item %d (%q): %s", i.Index+1, i.Question, i.Problem)
}

// ValidateCatalog checks that every item has a question and an answer,
// that answers carry only allow-listed markup, and that no question is
// listed twice. It returns ErrEmptyCatalog for an empty catalog.
func ValidateCatalog(items []models.KnowledgeItem) ([]CatalogIssue, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCatalog
	}

	var issues []CatalogIssue
	seen := make(map[string]int, len(items))
	for i, item := range items {
		add := func(problem string) {
			issues = append(issues, CatalogIssue{Index: i, Question: item.Question, Problem: problem})
		}

		q := strings.TrimSpace(item.Question)
		if q == "" {
			add("question is empty")
		}
		if strings.TrimSpace(item.Answer) == "" {
			add("answer is empty")
		} else if _, err := ParseMarkup(item.Answer); err != nil {
			add(err.Error())
		}
		for _, alt := range item.AlternativeQuestions {
			if strings.TrimSpace(alt) == "" {
				add("blank alternative question")
				break
			}
		}

		if q == "" {
			continue
		}
		key := Normalize(q)
		if first, ok := seen[key]; ok {
			add(fmt.Sprintf("duplicates item %d", first+1))
			continue
		}
		seen[key] = i
	}
	return issues, nil
}
