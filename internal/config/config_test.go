package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CARDWATCH_DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Error("Load() = nil error without DATABASE_URL")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/cardwatch")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != 8000 {
		t.Errorf("APIPort = %d, want 8000", cfg.APIPort)
	}
	if cfg.ScanInterval != 6*time.Hour {
		t.Errorf("ScanInterval = %v, want 6h", cfg.ScanInterval)
	}
	if cfg.AlertInterval != 15*time.Minute {
		t.Errorf("AlertInterval = %v, want 15m", cfg.AlertInterval)
	}
	if cfg.SourcesFile != "sources.yaml" {
		t.Errorf("SourcesFile = %q", cfg.SourcesFile)
	}
	if !cfg.CacheEnabled {
		t.Error("CacheEnabled = false, want true by default")
	}
	if cfg.EmailEnabled() {
		t.Error("EmailEnabled() = true with no SMTP config")
	}
	if cfg.IsProduction() {
		t.Error("IsProduction() = true by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/cardwatch")
	t.Setenv("API_PORT", "9000")
	t.Setenv("SCAN_INTERVAL_HOURS", "1")
	t.Setenv("ALERT_INTERVAL_MINUTES", "5")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("EMAIL_TO", "a@example.com, b@example.com")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("EMAIL_FROM", "alerts@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != 9000 {
		t.Errorf("APIPort = %d, want 9000", cfg.APIPort)
	}
	if cfg.ScanInterval != time.Hour {
		t.Errorf("ScanInterval = %v, want 1h", cfg.ScanInterval)
	}
	if cfg.AlertInterval != 5*time.Minute {
		t.Errorf("AlertInterval = %v, want 5m", cfg.AlertInterval)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false with ENVIRONMENT=production")
	}
	if len(cfg.EmailTo) != 2 || cfg.EmailTo[1] != "b@example.com" {
		t.Errorf("EmailTo = %v", cfg.EmailTo)
	}
	if !cfg.EmailEnabled() {
		t.Error("EmailEnabled() = false with full SMTP config")
	}
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	content := `sources:
  - name: target-feed
    url: https://feeds.example.com/target
    retailer: TARGET
    requests_per_minute: 30
  - name: walmart-feed
    url: https://feeds.example.com/walmart
    retailer: WALMART
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	defs, err := LoadSources(path)
	if err != nil {
		t.Fatalf("LoadSources() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("len(defs) = %d, want 2", len(defs))
	}
	if defs[0].Name != "target-feed" || defs[0].RequestsPerMinute != 30 {
		t.Errorf("defs[0] = %+v", defs[0])
	}
	if defs[1].Retailer != "WALMART" || defs[1].RequestsPerMinute != 0 {
		t.Errorf("defs[1] = %+v", defs[1])
	}
}

func TestLoadSourcesMissingFileIsFine(t *testing.T) {
	defs, err := LoadSources(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Errorf("LoadSources(missing) error = %v, want nil", err)
	}
	if defs != nil {
		t.Errorf("defs = %v, want nil", defs)
	}
}

func TestLoadSourcesRejectsIncompleteEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	content := "sources:\n  - name: broken-feed\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSources(path); err == nil {
		t.Error("LoadSources() = nil error for entry without url")
	}
}
