package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// VisitFileName is the flag file recording that the user has chatted before.
const VisitFileName = ".supportbot_visited"

// VisitStore persists the returning-user flag as a file in the base
// directory. It satisfies core.VisitTracker.
type VisitStore struct {
	path string
	now  func() time.Time
}

// NewVisitStore creates a VisitStore rooted at basePath.
func NewVisitStore(basePath string) *VisitStore {
	return &VisitStore{path: filepath.Join(basePath, VisitFileName), now: time.Now}
}

// Visited reports whether the flag file exists.
func (s *VisitStore) Visited() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking visit flag: %w", err)
}

// MarkVisited writes the flag file with the current time.
func (s *VisitStore) MarkVisited() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("marking visit: creating directory: %w", err)
	}
	stamp := s.now().UTC().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(s.path, []byte(stamp), 0o600); err != nil {
		return fmt.Errorf("marking visit: %w", err)
	}
	return nil
}
