// file: internal/config/config.go
// version: 2.0.0
// guid: 7b8c9d0e-1f2a-3b4c-5d6e-7f8a9b0c1d2e

package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	DatabasePath    string  // SQLite canonical store
	StateDir        string  // progress tracker + HTTP cache
	Workers         int     // pipeline worker pool size
	BatchSize       int     // commits between progress checkpoints
	AutoThreshold   int     // score for confident auto-match
	ReviewThreshold int     // score for ambiguous review queue
	RateLimit       float64 // outbound requests per second
	MaxRetries      int     // fetch retry budget
	ListenAddr      string  // review/metrics HTTP server
	DryRun          bool    // log decisions without writing
	Sources         map[string]map[string]string
}

var AppConfig Config

// InitConfig initializes the application configuration
func InitConfig() {
	viper.SetDefault("database_path", "memorial.db")
	viper.SetDefault("state_dir", ".enricher-state")
	viper.SetDefault("workers", 2)
	viper.SetDefault("batch_size", 100)
	viper.SetDefault("auto_threshold", 50)
	viper.SetDefault("review_threshold", 30)
	viper.SetDefault("rate_limit", 1.0)
	viper.SetDefault("max_retries", 3)
	viper.SetDefault("listen_addr", ":8880")

	AppConfig = Config{
		DatabasePath:    viper.GetString("database_path"),
		StateDir:        viper.GetString("state_dir"),
		Workers:         viper.GetInt("workers"),
		BatchSize:       viper.GetInt("batch_size"),
		AutoThreshold:   viper.GetInt("auto_threshold"),
		ReviewThreshold: viper.GetInt("review_threshold"),
		RateLimit:       viper.GetFloat64("rate_limit"),
		MaxRetries:      viper.GetInt("max_retries"),
		ListenAddr:      viper.GetString("listen_addr"),
		DryRun:          viper.GetBool("dry_run"),
		Sources:         make(map[string]map[string]string),
	}

	// Per-source adapter settings: sources.<name>.<key> = value
	for name := range viper.GetStringMap("sources") {
		section := make(map[string]string)
		for key, val := range viper.GetStringMapString("sources." + name) {
			section[key] = val
		}
		AppConfig.Sources[name] = section
	}

	if AppConfig.Workers < 1 {
		AppConfig.Workers = 1
	}
	if AppConfig.BatchSize < 1 {
		AppConfig.BatchSize = 100
	}
}

// ProgressDir is where the progress tracker database lives.
func (c *Config) ProgressDir() string {
	return filepath.Join(c.StateDir, "progress")
}

// CacheDir is where fetched responses are cached.
func (c *Config) CacheDir() string {
	return filepath.Join(c.StateDir, "cache")
}
