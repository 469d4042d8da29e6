package cli

import (
	"github.com/valter-silva-au/supportbot/internal/core"
	"github.com/valter-silva-au/supportbot/internal/logger"
	"github.com/valter-silva-au/supportbot/internal/observability"
	"github.com/valter-silva-au/supportbot/internal/storage"
	"github.com/valter-silva-au/supportbot/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath string
	Settings *models.BotConfig
	Log      logger.Logger

	CatalogStore storage.CatalogStore
	Catalog      []models.KnowledgeItem
	Matcher      core.Matcher
	Visits       core.VisitTracker
	Transcripts  storage.TranscriptStore
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	Telemetry   core.Telemetry
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Suggestions observability.SuggestionEngine
	Notifier    observability.Notifier
)
