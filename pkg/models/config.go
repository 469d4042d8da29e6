package models

import "time"

// RetryConfig controls the bounded retry around one match-and-respond attempt.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"min=1"`
	Delay        time.Duration `yaml:"delay" mapstructure:"delay" validate:"gte=0"`
	DegradeAfter int           `yaml:"degrade_after" mapstructure:"degrade_after" validate:"min=1"`
}

// TypingConfig bounds the simulated typing delay before a bot message.
type TypingConfig struct {
	PerChar time.Duration `yaml:"per_char" mapstructure:"per_char" validate:"gte=0"`
	Min     time.Duration `yaml:"min" mapstructure:"min" validate:"gte=0"`
	Max     time.Duration `yaml:"max" mapstructure:"max" validate:"gte=0"`
}

// TimingConfig holds the session-level timers.
type TimingConfig struct {
	WelcomeDelay      time.Duration `yaml:"welcome_delay" mapstructure:"welcome_delay" validate:"gte=0"`
	ResetWelcomeDelay time.Duration `yaml:"reset_welcome_delay" mapstructure:"reset_welcome_delay" validate:"gte=0"`
	CheckInAfter      time.Duration `yaml:"check_in_after" mapstructure:"check_in_after" validate:"gte=0"`
}

// MatchingConfig holds the acceptance thresholds of both matchers.
type MatchingConfig struct {
	LexicalThreshold  float64 `yaml:"lexical_threshold" mapstructure:"lexical_threshold" validate:"gte=0"`
	SemanticThreshold float64 `yaml:"semantic_threshold" mapstructure:"semantic_threshold" validate:"gte=0"`
}

// ResponseConfig tunes the fallback response generator.
type ResponseConfig struct {
	SuggestionPoolRatio float64  `yaml:"suggestion_pool_ratio" mapstructure:"suggestion_pool_ratio" validate:"gte=0,lte=1"`
	BrandKeywords       []string `yaml:"brand_keywords" mapstructure:"brand_keywords"`
	Seed                int64    `yaml:"seed" mapstructure:"seed"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// AlertConfig configures when analytics alerts fire.
type AlertConfig struct {
	UnmatchedRate    float64       `yaml:"unmatched_rate" mapstructure:"unmatched_rate" validate:"gte=0,lte=1"`
	MinQueries       int           `yaml:"min_queries" mapstructure:"min_queries" validate:"gte=0"`
	ErrorSpike       int           `yaml:"error_spike" mapstructure:"error_spike" validate:"gte=0"`
	ErrorWindow      time.Duration `yaml:"error_window" mapstructure:"error_window"`
	NegativeFeedback float64       `yaml:"negative_feedback" mapstructure:"negative_feedback" validate:"gte=0,lte=1"`
	MinFeedback      int           `yaml:"min_feedback" mapstructure:"min_feedback" validate:"gte=0"`
	SlowResponse     time.Duration `yaml:"slow_response" mapstructure:"slow_response"`
	WebhookURL       string        `yaml:"webhook_url,omitempty" mapstructure:"webhook_url" validate:"omitempty,url"`
}

// BotConfig holds all settings read from .supportbot.yaml via Viper.
type BotConfig struct {
	CatalogPath string         `yaml:"catalog_path" mapstructure:"catalog_path"`
	HistorySize int            `yaml:"history_size" mapstructure:"history_size" validate:"min=1"`
	Retry       RetryConfig    `yaml:"retry" mapstructure:"retry"`
	Typing      TypingConfig   `yaml:"typing" mapstructure:"typing"`
	Timing      TimingConfig   `yaml:"timing" mapstructure:"timing"`
	Matching    MatchingConfig `yaml:"matching" mapstructure:"matching"`
	Responses   ResponseConfig `yaml:"responses" mapstructure:"responses"`
	Log         LogConfig      `yaml:"log" mapstructure:"log"`
	Alerts      AlertConfig    `yaml:"alerts" mapstructure:"alerts"`
}
