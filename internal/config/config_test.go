// file: internal/config/config_test.go
// version: 2.0.0
// guid: b2c3d4e5-f6a7-8b9c-0d1e-2f3a4b5c6d7e

package config

import (
	"testing"

	"github.com/spf13/viper"
)

// TestInitConfig tests configuration initialization with defaults
func TestInitConfig(t *testing.T) {
	viper.Reset()

	InitConfig()

	if AppConfig.DatabasePath != "memorial.db" {
		t.Errorf("Expected database_path 'memorial.db', got '%s'", AppConfig.DatabasePath)
	}
	if AppConfig.Workers != 2 {
		t.Errorf("Expected 2 workers by default, got %d", AppConfig.Workers)
	}
	if AppConfig.BatchSize != 100 {
		t.Errorf("Expected batch size 100, got %d", AppConfig.BatchSize)
	}
	if AppConfig.AutoThreshold != 50 {
		t.Errorf("Expected auto threshold 50, got %d", AppConfig.AutoThreshold)
	}
	if AppConfig.ReviewThreshold != 30 {
		t.Errorf("Expected review threshold 30, got %d", AppConfig.ReviewThreshold)
	}
	if AppConfig.MaxRetries != 3 {
		t.Errorf("Expected 3 retries, got %d", AppConfig.MaxRetries)
	}
	if AppConfig.DryRun {
		t.Error("Expected dry_run false by default")
	}
}

func TestInitConfigOverrides(t *testing.T) {
	viper.Reset()
	viper.Set("workers", 8)
	viper.Set("auto_threshold", 60)
	viper.Set("dry_run", true)

	InitConfig()

	if AppConfig.Workers != 8 {
		t.Errorf("Expected 8 workers, got %d", AppConfig.Workers)
	}
	if AppConfig.AutoThreshold != 60 {
		t.Errorf("Expected auto threshold 60, got %d", AppConfig.AutoThreshold)
	}
	if !AppConfig.DryRun {
		t.Error("Expected dry_run true")
	}
}

func TestInitConfigClampsWorkers(t *testing.T) {
	viper.Reset()
	viper.Set("workers", 0)

	InitConfig()

	if AppConfig.Workers != 1 {
		t.Errorf("Expected workers clamped to 1, got %d", AppConfig.Workers)
	}
}

func TestInitConfigSourceSections(t *testing.T) {
	viper.Reset()
	viper.Set("sources.yamlfile.path", "/data/records.yaml")
	viper.Set("sources.htmltable.url", "https://example.org/memorial")

	InitConfig()

	if got := AppConfig.Sources["yamlfile"]["path"]; got != "/data/records.yaml" {
		t.Errorf("Expected yamlfile path, got '%s'", got)
	}
	if got := AppConfig.Sources["htmltable"]["url"]; got != "https://example.org/memorial" {
		t.Errorf("Expected htmltable url, got '%s'", got)
	}
}

func TestStateDirPaths(t *testing.T) {
	viper.Reset()
	viper.Set("state_dir", "/var/lib/enricher")

	InitConfig()

	if got := AppConfig.ProgressDir(); got != "/var/lib/enricher/progress" {
		t.Errorf("Unexpected progress dir: %s", got)
	}
	if got := AppConfig.CacheDir(); got != "/var/lib/enricher/cache" {
		t.Errorf("Unexpected cache dir: %s", got)
	}
}
