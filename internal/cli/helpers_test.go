package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/supportbot/internal/core"
	"github.com/valter-silva-au/supportbot/internal/logger"
	"github.com/valter-silva-au/supportbot/internal/observability"
	"github.com/valter-silva-au/supportbot/internal/storage"
	"github.com/valter-silva-au/supportbot/pkg/models"
)

// --- Mocks ---

type metricsMock struct {
	calcFn func(since time.Time) (*observability.Metrics, error)
}

func (m *metricsMock) Calculate(since time.Time) (*observability.Metrics, error) {
	return m.calcFn(since)
}

type alertsMock struct {
	evaluateFn func() ([]observability.Alert, error)
}

func (m *alertsMock) Evaluate() ([]observability.Alert, error) {
	return m.evaluateFn()
}

type notifierMock struct {
	notifyFn func(alerts []observability.Alert) error
}

func (m *notifierMock) Notify(_ context.Context, alerts []observability.Alert) error {
	return m.notifyFn(alerts)
}

type suggestionsMock struct {
	suggestions []observability.Suggestion
	err         error
}

func (m *suggestionsMock) Suggest() ([]observability.Suggestion, error) {
	return m.suggestions, m.err
}

// --- Helpers ---

func testCatalog() []models.KnowledgeItem {
	return []models.KnowledgeItem{
		{
			Question:             "What is EVA?",
			Answer:               `EVA verifies insurance eligibility. <a href="https://example.com/eva">Learn more</a>`,
			Category:             "eligibility_verification",
			AlternativeQuestions: []string{"Tell me about EVA"},
		},
		{
			Question: "What is CAM?",
			Answer:   "CAM (Claims Agent Manager) automates claims processing.",
			Category: "claims_processing",
		},
		{
			Question: "How much does it cost?",
			Answer:   "Pricing depends on your organization's size.",
			Category: "pricing",
		},
	}
}

// withServices saves every package-level service and restores it when the
// test ends, then wires a catalog, a file-backed event log, and a
// transcript store under a temp dir.
func withServices(t *testing.T) string {
	t.Helper()

	saved := struct {
		basePath     string
		settings     *models.BotConfig
		log          logger.Logger
		catalogStore storage.CatalogStore
		catalog      []models.KnowledgeItem
		matcher      core.Matcher
		visits       core.VisitTracker
		transcripts  storage.TranscriptStore
		eventLog     observability.EventLog
		telemetry    core.Telemetry
		alertEngine  observability.AlertEngine
		metricsCalc  observability.MetricsCalculator
		suggestions  observability.SuggestionEngine
		notifier     observability.Notifier
	}{BasePath, Settings, Log, CatalogStore, Catalog, Matcher, Visits, Transcripts, EventLog, Telemetry, AlertEngine, MetricsCalc, Suggestions, Notifier}
	t.Cleanup(func() {
		BasePath, Settings, Log = saved.basePath, saved.settings, saved.log
		CatalogStore, Catalog, Matcher, Visits = saved.catalogStore, saved.catalog, saved.matcher, saved.visits
		Transcripts, EventLog, Telemetry = saved.transcripts, saved.eventLog, saved.telemetry
		AlertEngine, MetricsCalc, Suggestions, Notifier = saved.alertEngine, saved.metricsCalc, saved.suggestions, saved.notifier
	})

	dir := t.TempDir()
	settings := core.DefaultBotConfig()
	settings.Responses.Seed = 1
	settings.Retry.Delay = time.Millisecond

	BasePath = dir
	Settings = settings
	Log = logger.Nop()
	CatalogStore = nil
	Catalog = testCatalog()
	Matcher = core.NewCatalogMatcher(Catalog, 0, 0)
	Visits = storage.NewVisitStore(dir)
	Transcripts = storage.NewTranscriptStore(dir)

	events, err := observability.NewJSONLEventLog(dir + "/events.jsonl")
	if err != nil {
		t.Fatalf("NewJSONLEventLog() error = %v", err)
	}
	t.Cleanup(func() { _ = events.Close() })
	EventLog = events
	Telemetry = observability.NewTracker(events, observability.WithTranscripts(Transcripts))
	MetricsCalc = observability.NewMetricsCalculator(events)
	AlertEngine = observability.NewAlertEngine(events, settings.Alerts)
	Suggestions = observability.NewSuggestionEngine(events)
	Notifier = nil
	return dir
}

// runCmd runs cmd's RunE with output captured.
func runCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	t.Cleanup(func() { cmd.SetOut(nil) })
	err := cmd.RunE(cmd, args)
	return out.String(), err
}
