// Package internal provides the App struct that wires all components of
// supportbot together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/supportbot/internal/cli"
	"github.com/valter-silva-au/supportbot/internal/core"
	"github.com/valter-silva-au/supportbot/internal/logger"
	"github.com/valter-silva-au/supportbot/internal/observability"
	"github.com/valter-silva-au/supportbot/internal/storage"
	"github.com/valter-silva-au/supportbot/pkg/models"
)

// EventLogFileName is the JSONL analytics log in the base directory.
const EventLogFileName = ".supportbot_events.jsonl"

// App holds all service dependencies of supportbot.
type App struct {
	BasePath string
	Settings *models.BotConfig
	Log      logger.Logger

	// Configuration
	ConfigMgr core.ConfigurationManager

	// Knowledge catalog
	CatalogStore storage.CatalogStore
	Catalog      []models.KnowledgeItem
	Matcher      core.Matcher

	// Storage layer
	Visits      *storage.VisitStore
	Transcripts storage.TranscriptStore

	// Observability
	EventLog    observability.EventLog
	Tracker     *observability.Tracker
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Suggestions observability.SuggestionEngine
	Notifier    observability.Notifier
}

// NewApp creates and wires all components of supportbot. basePath is the
// directory holding .supportbot.yaml and the bot's data files.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	app.Settings = cfg
	app.Log = logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		Output:     os.Stderr,
		JSON:       cfg.Log.JSON,
		TimeFormat: "15:04:05",
	})

	// --- Knowledge catalog ---
	app.CatalogStore = storage.NewCatalogStore(basePath, cfg.CatalogPath)
	app.Catalog, err = app.CatalogStore.Load()
	if err != nil {
		return nil, err
	}
	app.Matcher = core.NewCatalogMatcher(app.Catalog, cfg.Matching.LexicalThreshold, cfg.Matching.SemanticThreshold)
	app.Log.Debug("catalog loaded", "source", app.CatalogStore.Source(), "items", len(app.Catalog))

	// --- Storage layer ---
	app.Visits = storage.NewVisitStore(basePath)
	app.Transcripts = storage.NewTranscriptStore(basePath)
	if err := app.Transcripts.Load(); err != nil {
		// Non-fatal: archiving still works once the index is rewritten.
		app.Log.Warn("loading transcript index", "error", err)
	}

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, EventLogFileName))
	if err != nil {
		// Non-fatal: chat works without analytics.
		app.Log.Warn("event log disabled", "error", err)
		app.EventLog = nil
	}
	if app.EventLog != nil {
		app.Tracker = observability.NewTracker(app.EventLog,
			observability.WithTranscripts(app.Transcripts),
			observability.WithTrackerLogger(app.Log),
		)
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, cfg.Alerts)
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
		app.Suggestions = observability.NewSuggestionEngine(app.EventLog)
	}
	if cfg.Alerts.WebhookURL != "" {
		app.Notifier = observability.NewWebhookNotifier(cfg.Alerts.WebhookURL)
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Settings = cfg
	cli.Log = app.Log

	cli.CatalogStore = app.CatalogStore
	cli.Catalog = app.Catalog
	cli.Matcher = app.Matcher
	cli.Visits = app.Visits
	cli.Transcripts = app.Transcripts

	cli.EventLog = app.EventLog
	cli.Telemetry = nil
	if app.Tracker != nil {
		cli.Telemetry = app.Tracker
	}
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Suggestions = app.Suggestions
	cli.Notifier = app.Notifier

	return app, nil
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the supportbot data directory. It checks the
// SUPPORTBOT_HOME env var, then walks up from the current directory looking
// for .supportbot.yaml, then falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("SUPPORTBOT_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName+".yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}
