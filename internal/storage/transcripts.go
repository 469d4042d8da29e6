package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/valter-silva-au/supportbot/pkg/models"
)

// TranscriptStore archives finished chat sessions under sessions/.
type TranscriptStore interface {
	Archive(transcript models.Transcript, turns []models.ConversationTurn) error
	Get(id string) (*models.Transcript, error)
	List(filter models.TranscriptFilter) ([]models.Transcript, error)
	Turns(id string) ([]models.ConversationTurn, error)
	Recent(limit int) ([]models.Transcript, error)
	Load() error
}

type fileTranscriptStore struct {
	basePath string

	mu    sync.Mutex
	index models.TranscriptIndex
}

// NewTranscriptStore creates a TranscriptStore backed by YAML files under
// sessions/ in the given base directory.
func NewTranscriptStore(basePath string) TranscriptStore {
	return &fileTranscriptStore{
		basePath: basePath,
		index:    models.TranscriptIndex{Version: "1.0"},
	}
}

func (s *fileTranscriptStore) sessionsDir() string {
	return filepath.Join(s.basePath, "sessions")
}

func (s *fileTranscriptStore) indexPath() string {
	return filepath.Join(s.sessionsDir(), "index.yaml")
}

func (s *fileTranscriptStore) lockPath() string {
	return filepath.Join(s.sessionsDir(), ".index.lock")
}

func (s *fileTranscriptStore) transcriptDir(id string) string {
	return filepath.Join(s.sessionsDir(), id)
}

// TranscriptFromSummary builds the archived metadata of a finished session.
func TranscriptFromSummary(summary models.SessionSummary, userAgent string) models.Transcript {
	t := models.Transcript{
		ID:             summary.SessionID,
		UserAgent:      userAgent,
		StartedAt:      summary.StartedAt,
		EndedAt:        summary.EndedAt,
		Duration:       summary.EndedAt.Sub(summary.StartedAt).Round(time.Second).String(),
		TurnCount:      len(summary.Turns),
		ResourcesShown: summary.ResourcesOffered,
		Preferences:    summary.Preferences,
	}
	for _, turn := range summary.Turns {
		if turn.MatchedItem != nil {
			t.MatchedCount++
		}
	}
	for _, topic := range summary.Topics {
		t.Topics = append(t.Topics, string(topic))
	}
	return t
}

// Archive writes the transcript and its turns to sessions/<id>/ and adds
// it to the index. The index is re-read under a file lock so several
// processes can archive into the same directory.
func (s *fileTranscriptStore) Archive(transcript models.Transcript, turns []models.ConversationTurn) error {
	if transcript.ID == "" {
		return fmt.Errorf("archiving transcript: ID must not be empty")
	}

	dir := s.transcriptDir(transcript.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("archiving transcript: creating directory: %w", err)
	}

	lock := flock.New(s.lockPath())
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("archiving transcript: acquiring lock: %w", err)
	}
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadIndex(); err != nil {
		return fmt.Errorf("archiving transcript: %w", err)
	}
	for _, existing := range s.index.Transcripts {
		if existing.ID == transcript.ID {
			return fmt.Errorf("archiving transcript: %s already exists", transcript.ID)
		}
	}

	if err := saveYAML(filepath.Join(dir, "transcript.yaml"), &transcript); err != nil {
		return fmt.Errorf("archiving transcript: writing metadata: %w", err)
	}

	turnsWrapper := struct {
		Turns []models.ConversationTurn `yaml:"turns"`
	}{Turns: turns}
	if err := saveYAML(filepath.Join(dir, "turns.yaml"), &turnsWrapper); err != nil {
		return fmt.Errorf("archiving transcript: writing turns: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "transcript.md"), []byte(renderTranscript(transcript, turns)), 0o644); err != nil {
		return fmt.Errorf("archiving transcript: writing markdown: %w", err)
	}

	s.index.Transcripts = append(s.index.Transcripts, transcript)
	if err := saveYAML(s.indexPath(), &s.index); err != nil {
		return fmt.Errorf("archiving transcript: writing index: %w", err)
	}
	return nil
}

func renderTranscript(t models.Transcript, turns []models.ConversationTurn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Session %s\n\n", t.ID)
	fmt.Fprintf(&b, "- Started: %s\n", t.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %s\n", t.Duration)
	fmt.Fprintf(&b, "- Turns: %d (%d matched)\n", t.TurnCount, t.MatchedCount)
	if len(t.Topics) > 0 {
		fmt.Fprintf(&b, "- Topics: %s\n", strings.Join(t.Topics, ", "))
	}
	for _, turn := range turns {
		fmt.Fprintf(&b, "\n**User:** %s\n\n**Bot:** %s\n", turn.Query, turn.Response)
	}
	return b.String()
}

// Get returns a transcript by ID or by a unique ID prefix.
func (s *fileTranscriptStore) Get(id string) (*models.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(id)
}

func (s *fileTranscriptStore) find(id string) (*models.Transcript, error) {
	if id == "" {
		return nil, fmt.Errorf("transcript ID must not be empty")
	}
	var found *models.Transcript
	for i := range s.index.Transcripts {
		t := s.index.Transcripts[i]
		if t.ID == id {
			return &t, nil
		}
		if strings.HasPrefix(t.ID, id) {
			if found != nil {
				return nil, fmt.Errorf("transcript prefix %s is ambiguous", id)
			}
			found = &t
		}
	}
	if found == nil {
		return nil, fmt.Errorf("transcript %s not found", id)
	}
	return found, nil
}

// List returns transcripts matching the given filter, in archive order.
func (s *fileTranscriptStore) List(filter models.TranscriptFilter) ([]models.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.Transcript
	for _, t := range s.index.Transcripts {
		if filter.Topic != "" && !containsString(t.Topics, filter.Topic) {
			continue
		}
		if filter.Since != nil && t.EndedAt.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && t.EndedAt.After(*filter.Until) {
			continue
		}
		if filter.MinTurns > 0 && t.TurnCount < filter.MinTurns {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// Turns loads the turns of an archived transcript.
func (s *fileTranscriptStore) Turns(id string) ([]models.ConversationTurn, error) {
	s.mu.Lock()
	t, err := s.find(id)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.transcriptDir(t.ID), "turns.yaml"))
	if err != nil {
		return nil, fmt.Errorf("reading transcript turns: %w", err)
	}

	var turnsWrapper struct {
		Turns []models.ConversationTurn `yaml:"turns"`
	}
	if err := yaml.Unmarshal(data, &turnsWrapper); err != nil {
		return nil, fmt.Errorf("parsing transcript turns: %w", err)
	}
	return turnsWrapper.Turns, nil
}

// Recent returns the most recently ended transcripts, newest first. A
// non-positive limit returns all of them.
func (s *fileTranscriptStore) Recent(limit int) ([]models.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.index.Transcripts) == 0 {
		return nil, nil
	}

	sorted := make([]models.Transcript, len(s.index.Transcripts))
	copy(sorted, s.index.Transcripts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EndedAt.After(sorted[j].EndedAt)
	})

	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// Load reads the transcript index from disk. A missing index is empty.
func (s *fileTranscriptStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadIndex(); err != nil {
		return fmt.Errorf("loading transcript index: %w", err)
	}
	return nil
}

func (s *fileTranscriptStore) loadIndex() error {
	index := models.TranscriptIndex{}
	if err := loadYAML(s.indexPath(), &index); err != nil {
		return err
	}
	if index.Version == "" {
		index.Version = "1.0"
	}
	s.index = index
	return nil
}

func loadYAML(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Missing files are initialized to zero values.
		}
		return err
	}
	return yaml.Unmarshal(data, target)
}

func saveYAML(path string, source any) error {
	data, err := yaml.Marshal(source)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
