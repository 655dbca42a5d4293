// file: internal/config/persistence.go
// version: 2.0.0
// guid: 9c8d7e6f-5a4b-3c2d-1e0f-9a8b7c6d5e4f

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML config file schema. All fields are
// optional; zero values leave the current AppConfig untouched.
type fileConfig struct {
	DatabasePath    string                       `yaml:"database_path"`
	StateDir        string                       `yaml:"state_dir"`
	Workers         int                          `yaml:"workers"`
	BatchSize       int                          `yaml:"batch_size"`
	AutoThreshold   int                          `yaml:"auto_threshold"`
	ReviewThreshold int                          `yaml:"review_threshold"`
	RateLimit       float64                      `yaml:"rate_limit"`
	MaxRetries      int                          `yaml:"max_retries"`
	ListenAddr      string                       `yaml:"listen_addr"`
	Sources         map[string]map[string]string `yaml:"sources"`
}

// ConfigFilePath returns the path to the YAML config file next to the database.
func ConfigFilePath() string {
	if AppConfig.DatabasePath != "" {
		return filepath.Join(filepath.Dir(AppConfig.DatabasePath), "config.yaml")
	}
	return "config.yaml"
}

// LoadConfigFromFile merges settings from the YAML config file into
// AppConfig. Flag and environment values win; the file only fills what
// is still at its default. Source sections merge per key.
func LoadConfigFromFile() error {
	path := ConfigFilePath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		log.Printf("[WARN] config: failed to parse %s: %v", path, err)
		return nil
	}

	applied := 0
	if fc.StateDir != "" && AppConfig.StateDir == ".enricher-state" {
		AppConfig.StateDir = fc.StateDir
		applied++
	}
	if fc.Workers > 0 && AppConfig.Workers == 2 {
		AppConfig.Workers = fc.Workers
		applied++
	}
	if fc.BatchSize > 0 && AppConfig.BatchSize == 100 {
		AppConfig.BatchSize = fc.BatchSize
		applied++
	}
	if fc.AutoThreshold > 0 && AppConfig.AutoThreshold == 50 {
		AppConfig.AutoThreshold = fc.AutoThreshold
		applied++
	}
	if fc.ReviewThreshold > 0 && AppConfig.ReviewThreshold == 30 {
		AppConfig.ReviewThreshold = fc.ReviewThreshold
		applied++
	}
	if fc.RateLimit > 0 && AppConfig.RateLimit == 1.0 {
		AppConfig.RateLimit = fc.RateLimit
		applied++
	}
	if fc.MaxRetries > 0 && AppConfig.MaxRetries == 3 {
		AppConfig.MaxRetries = fc.MaxRetries
		applied++
	}
	if fc.ListenAddr != "" && AppConfig.ListenAddr == ":8880" {
		AppConfig.ListenAddr = fc.ListenAddr
		applied++
	}

	for name, section := range fc.Sources {
		if AppConfig.Sources[name] == nil {
			AppConfig.Sources[name] = make(map[string]string)
		}
		for key, val := range section {
			if _, set := AppConfig.Sources[name][key]; !set {
				AppConfig.Sources[name][key] = val
				applied++
			}
		}
	}

	if applied > 0 {
		log.Printf("[INFO] config: applied %d settings from %s", applied, path)
	}
	return nil
}
