package models

import "time"

// Transcript is the archived metadata of a finished chat session.
type Transcript struct {
	ID             string      `yaml:"id"`
	UserAgent      string      `yaml:"user_agent,omitempty"`
	StartedAt      time.Time   `yaml:"started_at"`
	EndedAt        time.Time   `yaml:"ended_at"`
	Duration       string      `yaml:"duration"`
	TurnCount      int         `yaml:"turn_count"`
	MatchedCount   int         `yaml:"matched_count"`
	Topics         []string    `yaml:"topics,omitempty"`
	ResourcesShown bool        `yaml:"resources_shown,omitempty"`
	Preferences    Preferences `yaml:"preferences,omitempty"`
}

// TranscriptFilter specifies criteria for querying archived transcripts.
type TranscriptFilter struct {
	Topic    string
	Since    *time.Time
	Until    *time.Time
	MinTurns int
}

// TranscriptIndex is the master index of all archived transcripts.
type TranscriptIndex struct {
	Version     string       `yaml:"version"`
	Transcripts []Transcript `yaml:"transcripts"`
}
