package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/casefile/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-u string   server base URL
//	-d string   data directory
//	-i int      online check interval in seconds
//	-r int      forms refresh interval in minutes (0 disables)
//	-w int      note upload concurrency
//	-l string   log level
//
// Only these flags are read from os.Args; everything else is left to other
// components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-u", "-d", "-i", "-r", "-w", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "u", cfg.ServerURL, "server base URL")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.IntVar(&cfg.UploadConcurrency, "w", cfg.UploadConcurrency, "parallel note uploads")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	formsRefresh := fs.Int("r", int(cfg.FormsRefreshInterval.Minutes()), "forms refresh interval (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.FormsRefreshInterval = time.Duration(*formsRefresh) * time.Minute
}
