package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/valter-silva-au/supportbot/pkg/models"
)

// --- Helpers ---

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// testCatalog returns a small catalog shaped like the shipped one.
func testCatalog() []models.KnowledgeItem {
	return []models.KnowledgeItem{
		{
			Question:             "What is Thoughtful AI?",
			Answer:               "Thoughtful AI is a healthcare automation platform that uses artificial intelligence to streamline revenue cycle management processes.",
			Category:             "general",
			AlternativeQuestions: []string{"Tell me about Thoughtful AI", "What does Thoughtful AI do?"},
		},
		{
			Question:             "What is EVA?",
			Answer:               "EVA (Eligibility Verification Agent) is our AI solution that automates insurance eligibility verification.",
			Category:             "eligibility_verification",
			AlternativeQuestions: []string{"Tell me about EVA", "How does eligibility verification work?"},
		},
		{
			Question:             "What is CAM?",
			Answer:               "CAM (Claims Agent Manager) is our AI solution for claims processing.",
			Category:             "claims_processing",
			AlternativeQuestions: []string{"Tell me about CAM", "How does claims processing work?"},
		},
		{
			Question:             "What is PHIL?",
			Answer:               "PHIL (Payment Handling Intelligence Layer) is our AI solution for payment posting and reconciliation.",
			Category:             "payment_posting",
			AlternativeQuestions: []string{"Tell me about PHIL", "How does payment posting work?"},
		},
		{
			Question:             "How much does Thoughtful AI cost?",
			Answer:               "Thoughtful AI pricing is based on your organization's size and needs.",
			Category:             "pricing",
			AlternativeQuestions: []string{"What is your pricing?", "How much do your agents cost?"},
		},
	}
}

// fixedRand returns scripted values. Float64 cycles through floats and IntN
// returns idx modulo n.
type fixedRand struct {
	floats []float64
	calls  int
	idx    int
}

func (r *fixedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	f := r.floats[r.calls%len(r.floats)]
	r.calls++
	return f
}

func (r *fixedRand) IntN(n int) int { return r.idx % n }

// fakeClock is a manually advanced clock.
type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
