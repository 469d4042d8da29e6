package observability

import (
	"fmt"
	"sort"
	"strings"
)

// minSuggestionCount is how often a query must go unanswered before a new
// catalog entry is suggested for it.
const minSuggestionCount = 2

// Suggestion proposes a catalog entry for a query users keep asking
// without a good answer.
type Suggestion struct {
	Query      string `json:"query"`
	Count      int    `json:"count"`
	Suggestion string `json:"suggestion"`
}

// SuggestionEngine finds gaps in the catalog from the event log.
type SuggestionEngine interface {
	Suggest() ([]Suggestion, error)
}

type suggestionEngine struct {
	eventLog EventLog
}

// NewSuggestionEngine creates a SuggestionEngine that reads from eventLog.
func NewSuggestionEngine(eventLog EventLog) SuggestionEngine {
	return &suggestionEngine{eventLog: eventLog}
}

type trackedQuery struct {
	text      string
	matched   bool
	unhelpful bool
	comment   string
}

// Suggest groups queries that were unmatched or rated unhelpful by their
// lowercased, trimmed text and returns the groups seen at least twice,
// most frequent first.
func (se *suggestionEngine) Suggest() ([]Suggestion, error) {
	events, err := se.eventLog.Read(EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("reading events for suggestions: %w", err)
	}

	var order []string
	queries := make(map[string]*trackedQuery)
	for _, e := range events {
		id := dataString(e.Data, "query_id")
		if id == "" {
			continue
		}
		switch e.Type {
		case EventQuery:
			if _, ok := queries[id]; !ok {
				order = append(order, id)
			}
			queries[id] = &trackedQuery{
				text:    dataString(e.Data, "query"),
				matched: dataBool(e.Data, "matched"),
			}
		case EventFeedback:
			q, ok := queries[id]
			if !ok {
				continue
			}
			q.unhelpful = !dataBool(e.Data, "helpful")
			if c := dataString(e.Data, "comment"); c != "" {
				q.comment = c
			}
		}
	}

	type group struct {
		count   int
		comment string
	}
	groups := make(map[string]*group)
	for _, id := range order {
		q := queries[id]
		if q.matched && !q.unhelpful {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(q.text))
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		g.count++
		if g.comment == "" {
			g.comment = q.comment
		}
	}

	var suggestions []Suggestion
	for text, g := range groups {
		if g.count < minSuggestionCount {
			continue
		}
		s := Suggestion{Query: text, Count: g.count}
		if g.comment != "" {
			s.Suggestion = fmt.Sprintf("Add FAQ for %q. User feedback: %s", text, g.comment)
		} else {
			s.Suggestion = fmt.Sprintf("Add FAQ for %q which was asked %d times without a good match", text, g.count)
		}
		suggestions = append(suggestions, s)
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Count != suggestions[j].Count {
			return suggestions[i].Count > suggestions[j].Count
		}
		return suggestions[i].Query < suggestions[j].Query
	})
	return suggestions, nil
}
