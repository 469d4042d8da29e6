package models

import "time"

// ErrorDetails describes a logged error. Recoverable is currently always
// true; no fatal/recoverable split has been defined yet.
type ErrorDetails struct {
	Message     string         `json:"message"`
	Code        string         `json:"code,omitempty"`
	Component   string         `json:"component,omitempty"`
	Recoverable bool           `json:"recoverable"`
	Timestamp   time.Time      `json:"timestamp"`
	Context     map[string]any `json:"context,omitempty"`
}
