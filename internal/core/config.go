package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/valter-silva-au/supportbot/pkg/models"
)

// ConfigFileName is the base name of the YAML config file.
const ConfigFileName = ".supportbot"

// ConfigurationManager defines the interface for loading and validating
// the bot configuration from .supportbot.yaml.
type ConfigurationManager interface {
	Load() (*models.BotConfig, error)
	Validate(cfg *models.BotConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading the YAML configuration file.
type viperConfigManager struct {
	// basePath is the directory where .supportbot.yaml resides.
	basePath string
	validate *validator.Validate
}

// NewConfigurationManager creates a ConfigurationManager that reads the
// configuration file from basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath, validate: validator.New()}
}

// DefaultBotConfig returns the configuration used when no file is present.
func DefaultBotConfig() *models.BotConfig {
	return &models.BotConfig{
		HistorySize: 5,
		Retry: models.RetryConfig{
			MaxAttempts:  DefaultMaxAttempts,
			Delay:        DefaultRetryDelay,
			DegradeAfter: DefaultDegradeAfter,
		},
		Typing: models.TypingConfig{
			PerChar: 20 * time.Millisecond,
			Min:     500 * time.Millisecond,
			Max:     3 * time.Second,
		},
		Timing: models.TimingConfig{
			WelcomeDelay:      500 * time.Millisecond,
			ResetWelcomeDelay: time.Second,
			CheckInAfter:      5 * time.Minute,
		},
		Matching: models.MatchingConfig{
			LexicalThreshold:  DefaultLexicalThreshold,
			SemanticThreshold: DefaultSemanticThreshold,
		},
		Responses: models.ResponseConfig{
			SuggestionPoolRatio: DefaultSuggestionPoolRatio,
			BrandKeywords:       append([]string(nil), DefaultBrandKeywords...),
		},
		Log: models.LogConfig{Level: "info"},
		Alerts: models.AlertConfig{
			UnmatchedRate:    0.5,
			MinQueries:       10,
			ErrorSpike:       5,
			ErrorWindow:      time.Hour,
			NegativeFeedback: 0.4,
			MinFeedback:      5,
			SlowResponse:     2 * time.Second,
		},
	}
}

// Load reads .supportbot.yaml from the base path. If the file does not
// exist, defaults are returned.
func (cm *viperConfigManager) Load() (*models.BotConfig, error) {
	cfg := DefaultBotConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("catalog.path", cfg.CatalogPath)
	v.SetDefault("context.history_size", cfg.HistorySize)
	v.SetDefault("retry.max_attempts", cfg.Retry.MaxAttempts)
	v.SetDefault("retry.delay", cfg.Retry.Delay)
	v.SetDefault("retry.degrade_after", cfg.Retry.DegradeAfter)
	v.SetDefault("typing.per_char", cfg.Typing.PerChar)
	v.SetDefault("typing.min", cfg.Typing.Min)
	v.SetDefault("typing.max", cfg.Typing.Max)
	v.SetDefault("timing.welcome_delay", cfg.Timing.WelcomeDelay)
	v.SetDefault("timing.reset_welcome_delay", cfg.Timing.ResetWelcomeDelay)
	v.SetDefault("timing.check_in_after", cfg.Timing.CheckInAfter)
	v.SetDefault("matching.lexical_threshold", cfg.Matching.LexicalThreshold)
	v.SetDefault("matching.semantic_threshold", cfg.Matching.SemanticThreshold)
	v.SetDefault("responses.suggestion_pool_ratio", cfg.Responses.SuggestionPoolRatio)
	v.SetDefault("responses.brand_keywords", cfg.Responses.BrandKeywords)
	v.SetDefault("responses.seed", cfg.Responses.Seed)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.json", cfg.Log.JSON)
	v.SetDefault("alerts.unmatched_rate", cfg.Alerts.UnmatchedRate)
	v.SetDefault("alerts.min_queries", cfg.Alerts.MinQueries)
	v.SetDefault("alerts.error_spike", cfg.Alerts.ErrorSpike)
	v.SetDefault("alerts.error_window", cfg.Alerts.ErrorWindow)
	v.SetDefault("alerts.negative_feedback", cfg.Alerts.NegativeFeedback)
	v.SetDefault("alerts.min_feedback", cfg.Alerts.MinFeedback)
	v.SetDefault("alerts.slow_response", cfg.Alerts.SlowResponse)
	v.SetDefault("alerts.webhook_url", cfg.Alerts.WebhookURL)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// No config file found, return defaults.
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s.yaml: %w", ConfigFileName, err)
	}

	// Map nested YAML keys onto the config struct.
	cfg.CatalogPath = v.GetString("catalog.path")
	cfg.HistorySize = v.GetInt("context.history_size")
	cfg.Retry.MaxAttempts = v.GetInt("retry.max_attempts")
	cfg.Retry.Delay = v.GetDuration("retry.delay")
	cfg.Retry.DegradeAfter = v.GetInt("retry.degrade_after")
	cfg.Typing.PerChar = v.GetDuration("typing.per_char")
	cfg.Typing.Min = v.GetDuration("typing.min")
	cfg.Typing.Max = v.GetDuration("typing.max")
	cfg.Timing.WelcomeDelay = v.GetDuration("timing.welcome_delay")
	cfg.Timing.ResetWelcomeDelay = v.GetDuration("timing.reset_welcome_delay")
	cfg.Timing.CheckInAfter = v.GetDuration("timing.check_in_after")
	cfg.Matching.LexicalThreshold = v.GetFloat64("matching.lexical_threshold")
	cfg.Matching.SemanticThreshold = v.GetFloat64("matching.semantic_threshold")
	cfg.Responses.SuggestionPoolRatio = v.GetFloat64("responses.suggestion_pool_ratio")
	cfg.Responses.BrandKeywords = v.GetStringSlice("responses.brand_keywords")
	cfg.Responses.Seed = v.GetInt64("responses.seed")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.JSON = v.GetBool("log.json")
	cfg.Alerts.UnmatchedRate = v.GetFloat64("alerts.unmatched_rate")
	cfg.Alerts.MinQueries = v.GetInt("alerts.min_queries")
	cfg.Alerts.ErrorSpike = v.GetInt("alerts.error_spike")
	cfg.Alerts.ErrorWindow = v.GetDuration("alerts.error_window")
	cfg.Alerts.NegativeFeedback = v.GetFloat64("alerts.negative_feedback")
	cfg.Alerts.MinFeedback = v.GetInt("alerts.min_feedback")
	cfg.Alerts.SlowResponse = v.GetDuration("alerts.slow_response")
	cfg.Alerts.WebhookURL = v.GetString("alerts.webhook_url")

	if err := cm.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg for invalid values and returns an error naming the
// first offending field.
func (cm *viperConfigManager) Validate(cfg *models.BotConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}
	if err := cm.validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid configuration: %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("validating configuration: %w", err)
	}
	if cfg.Typing.Min > cfg.Typing.Max {
		return fmt.Errorf("invalid configuration: typing.min (%s) exceeds typing.max (%s)", cfg.Typing.Min, cfg.Typing.Max)
	}
	return nil
}
