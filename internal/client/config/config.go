package config

import (
	"path/filepath"
	"time"
)

// Config holds runtime settings for the casefile CLI.
//
// Fields:
//   - ServerURL: base URL of the REST API (the /api/v1 prefix is added by the client).
//   - DataDir: root directory for the local database and the reference cache.
//   - DatabasePath, CacheDir: derived from DataDir unless set explicitly.
//   - RequestTimeout: per-request HTTP timeout.
//   - OnlineCheckInterval: how often the client pings the server.
//   - FormsRefreshInterval: how often the form catalogue is refreshed; zero disables it.
//   - UploadConcurrency: parallel note uploads during sync.
type Config struct {
	ServerURL            string
	DataDir              string
	DatabasePath         string
	CacheDir             string
	RequestTimeout       time.Duration
	OnlineCheckInterval  time.Duration
	FormsRefreshInterval time.Duration
	UploadConcurrency    int
	LogLevel             string
	LogFormat            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DataDir = "casefile-data"
	c.RequestTimeout = 30 * time.Second
	c.OnlineCheckInterval = 5 * time.Second
	c.FormsRefreshInterval = 30 * time.Minute
	c.UploadConcurrency = 4
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// resolvePaths fills DatabasePath and CacheDir from DataDir when they were not
// given explicitly.
func (c *Config) resolvePaths() {
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "casefile.db")
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(c.DataDir, "cache")
	}
	if c.UploadConcurrency < 1 {
		c.UploadConcurrency = 1
	}
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	cfg.resolvePaths()
	return cfg
}
