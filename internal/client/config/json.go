package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/casefile/internal/flagx"
	"github.com/dmitrijs2005/casefile/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations use
// timex.Duration so they may be written as "3s" or as integer nanoseconds.
// Absent keys leave the current value untouched.
type JsonConfig struct {
	ServerURL            *string         `json:"server_url"`
	DataDir              *string         `json:"data_dir"`
	DatabasePath         *string         `json:"database_path"`
	CacheDir             *string         `json:"cache_dir"`
	RequestTimeout       *timex.Duration `json:"request_timeout"`
	OnlineCheckInterval  *timex.Duration `json:"online_check_interval"`
	FormsRefreshInterval *timex.Duration `json:"forms_refresh_interval"`
	UploadConcurrency    *int            `json:"upload_concurrency"`
	LogLevel             *string         `json:"log_level"`
	LogFormat            *string         `json:"log_format"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c/-config (or $CASEFILE_CONFIG). Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.CacheDir, jc.CacheDir)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.FormsRefreshInterval != nil {
		cfg.FormsRefreshInterval = jc.FormsRefreshInterval.Duration
	}
	if jc.UploadConcurrency != nil {
		cfg.UploadConcurrency = *jc.UploadConcurrency
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
