// Package config loads runtime configuration for the casefile CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/-config or $CASEFILE_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-u string   server base URL
//	-d string   data directory (database and cache live below it)
//	-i int      online check interval (seconds)
//	-r int      forms refresh interval (minutes, 0 disables)
//	-w int      parallel note uploads during sync
//	-l string   log level
//
// # JSON schema
//
//	{
//	  "server_url": "https://casefile.example.org",
//	  "data_dir": "/var/lib/casefile",
//	  "request_timeout": "30s",
//	  "online_check_interval": "5s",
//	  "forms_refresh_interval": "30m",
//	  "upload_concurrency": 4,
//	  "log_level": "debug",
//	  "log_format": "json"
//	}
package config
