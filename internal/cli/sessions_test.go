package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/supportbot/pkg/models"
)

func withSessionFlags(t *testing.T, topic, since string, minTurns, limit int) {
	t.Helper()
	origTopic, origSince, origMin, origLimit, origJSON := sessionsTopic, sessionsSince, sessionsMinTurns, sessionsLimit, sessionsJSON
	t.Cleanup(func() {
		sessionsTopic, sessionsSince, sessionsMinTurns, sessionsLimit, sessionsJSON = origTopic, origSince, origMin, origLimit, origJSON
	})
	sessionsTopic, sessionsSince, sessionsMinTurns, sessionsLimit, sessionsJSON = topic, since, minTurns, limit, false
}

// archiveSessions stores three transcripts that ended 3 days, 2 hours, and
// 10 minutes ago.
func archiveSessions(t *testing.T) {
	t.Helper()
	now := time.Now().UTC()
	sessions := []struct {
		id     string
		ended  time.Duration
		turns  int
		topics []string
	}{
		{"sess-old", 72 * time.Hour, 1, []string{"pricing"}},
		{"sess-mid", 2 * time.Hour, 3, []string{"claims_processing", "pricing"}},
		{"sess-new", 10 * time.Minute, 2, []string{"eligibility_verification"}},
	}
	for _, s := range sessions {
		ended := now.Add(-s.ended)
		turns := make([]models.ConversationTurn, s.turns)
		for i := range turns {
			turns[i] = models.ConversationTurn{
				Query:     "question " + s.id,
				Response:  "answer " + s.id,
				Timestamp: ended.Add(-time.Duration(s.turns-i) * time.Second),
			}
		}
		transcript := models.Transcript{
			ID:        s.id,
			StartedAt: ended.Add(-time.Minute),
			EndedAt:   ended,
			Duration:  "1m0s",
			TurnCount: s.turns,
			Topics:    s.topics,
		}
		if err := Transcripts.Archive(transcript, turns); err != nil {
			t.Fatalf("Archive(%s) error = %v", s.id, err)
		}
	}
}

func TestSessionsListCmd(t *testing.T) {
	withServices(t)
	archiveSessions(t)

	tests := []struct {
		name     string
		topic    string
		since    string
		minTurns int
		limit    int
		want     []string
	}{
		{"all newest first", "", "", 0, 0, []string{"sess-new", "sess-mid", "sess-old"}},
		{"limit", "", "", 0, 2, []string{"sess-new", "sess-mid"}},
		{"topic", "pricing", "", 0, 0, []string{"sess-mid", "sess-old"}},
		{"since", "", "1d", 0, 0, []string{"sess-new", "sess-mid"}},
		{"min turns", "", "", 2, 0, []string{"sess-new", "sess-mid"}},
		{"combined", "pricing", "1d", 0, 0, []string{"sess-mid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withSessionFlags(t, tt.topic, tt.since, tt.minTurns, tt.limit)
			out, err := runCmd(t, sessionsListCmd)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var got []string
			for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
				if fields := strings.Fields(line); len(fields) > 0 {
					got = append(got, fields[0])
				}
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("sessions = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionsListCmd_Empty(t *testing.T) {
	withServices(t)
	withSessionFlags(t, "", "", 0, 20)

	out, err := runCmd(t, sessionsListCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No archived sessions found.") {
		t.Errorf("output = %q", out)
	}
}

func TestSessionsListCmd_InvalidSince(t *testing.T) {
	withServices(t)
	withSessionFlags(t, "", "soon", 0, 20)

	_, err := runCmd(t, sessionsListCmd)
	if err == nil || !strings.Contains(err.Error(), "parsing --since") {
		t.Errorf("err = %v, want parsing --since", err)
	}
}

func TestSessionsListCmd_NoStore(t *testing.T) {
	withServices(t)
	Transcripts = nil

	if _, err := runCmd(t, sessionsListCmd); err == nil {
		t.Error("expected error when the transcript store is nil")
	}
}

func TestSessionsShowCmd(t *testing.T) {
	withServices(t)
	withSessionFlags(t, "", "", 0, 20)
	archiveSessions(t)

	out, err := runCmd(t, sessionsShowCmd, "sess-mid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"Session sess-mid",
		"Turns:    3 (0 matched)",
		"Topics:   claims_processing, pricing",
		"you> question sess-mid",
		"bot> answer sess-mid",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "you> "); got != 3 {
		t.Errorf("expected 3 turns, got %d", got)
	}
}

func TestSessionsShowCmd_NotFound(t *testing.T) {
	withServices(t)
	archiveSessions(t)

	if _, err := runCmd(t, sessionsShowCmd, "sess-missing"); err == nil {
		t.Error("expected error for an unknown session")
	}
}
