package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/supportbot/internal/cli"
	"github.com/valter-silva-au/supportbot/internal/storage"
)

func TestResolveBasePath_HomeSet(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("SUPPORTBOT_HOME", tmpDir)

	got := ResolveBasePath()
	if got != tmpDir {
		t.Errorf("ResolveBasePath() = %q, want %q", got, tmpDir)
	}
}

func TestResolveBasePath_FindsConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "sub", "nested")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ".supportbot.yaml"), []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	origDir, _ := os.Getwd()
	defer func() { _ = os.Chdir(origDir) }()
	if err := os.Chdir(subDir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SUPPORTBOT_HOME", "")

	got := ResolveBasePath()
	if got != tmpDir {
		t.Errorf("ResolveBasePath() = %q, want %q (should find .supportbot.yaml in parent)", got, tmpDir)
	}
}

func TestResolveBasePath_FallbackToCwd(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	defer func() { _ = os.Chdir(origDir) }()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SUPPORTBOT_HOME", "")

	got := ResolveBasePath()
	if got != tmpDir {
		t.Errorf("ResolveBasePath() = %q, want %q (should fall back to cwd)", got, tmpDir)
	}
}

func TestNewApp_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	app, err := NewApp(tmpDir)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer app.Close()

	if app.BasePath != tmpDir {
		t.Errorf("app.BasePath = %q, want %q", app.BasePath, tmpDir)
	}
	if app.CatalogStore.Source() != storage.DefaultCatalogSource {
		t.Errorf("catalog source = %q, want the embedded catalog", app.CatalogStore.Source())
	}
	if len(app.Catalog) == 0 {
		t.Error("expected the embedded catalog to be loaded")
	}
	if app.Matcher == nil || app.Tracker == nil || app.MetricsCalc == nil || app.AlertEngine == nil || app.Suggestions == nil {
		t.Error("expected every service to be wired")
	}
	if app.Notifier != nil {
		t.Error("expected no notifier without a webhook URL")
	}
	if _, err := os.Stat(filepath.Join(tmpDir, EventLogFileName)); err != nil {
		t.Errorf("expected the event log to be created: %v", err)
	}

	// CLI package-level variables are wired.
	if cli.BasePath != tmpDir || cli.Matcher == nil || cli.Telemetry == nil || cli.Transcripts == nil {
		t.Error("expected the CLI services to be wired")
	}
}

func TestNewApp_ConfiguredCatalogAndWebhook(t *testing.T) {
	tmpDir := t.TempDir()
	catalog := `version: "1"
items:
  - question: What are your opening hours?
    answer: We are open 9 to 5, Monday to Friday.
    category: contact
`
	if err := os.WriteFile(filepath.Join(tmpDir, "faq.yaml"), []byte(catalog), 0o644); err != nil {
		t.Fatal(err)
	}
	config := `catalog:
  path: faq.yaml
retry:
  delay: 50ms
alerts:
  webhook_url: https://hooks.example.com/T000/B000
`
	if err := os.WriteFile(filepath.Join(tmpDir, ".supportbot.yaml"), []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}

	app, err := NewApp(tmpDir)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer app.Close()

	if len(app.Catalog) != 1 || app.Catalog[0].Category != "contact" {
		t.Errorf("catalog = %+v, want the configured file", app.Catalog)
	}
	if app.Settings.Retry.Delay != 50*time.Millisecond {
		t.Errorf("retry delay = %v, want 50ms", app.Settings.Retry.Delay)
	}
	if app.Notifier == nil {
		t.Error("expected a notifier when alerts.webhook_url is set")
	}
	item, err := app.Matcher.Semantic("What are your opening hours?")
	if err != nil || item == nil {
		t.Errorf("Semantic() = %v, %v; want the opening hours item", item, err)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ".supportbot.yaml"), []byte("retry:\n  max_attempts: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewApp(tmpDir)
	if err == nil || !strings.Contains(err.Error(), "loading configuration") {
		t.Errorf("NewApp() error = %v, want a configuration error", err)
	}
}

func TestNewApp_MissingCatalog(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ".supportbot.yaml"), []byte("catalog:\n  path: missing.yaml\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewApp(tmpDir)
	if err == nil || !strings.Contains(err.Error(), "reading catalog") {
		t.Errorf("NewApp() error = %v, want a catalog error", err)
	}
}

func TestApp_CloseNilEventLog(t *testing.T) {
	app := &App{}
	if err := app.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
