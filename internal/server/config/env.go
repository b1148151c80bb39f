package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvFileVar names the variable that points at the .env file.
const EnvFileVar = "CASEFILE_ENV_FILE"

// Environment variables read by parseEnv.
const (
	envHTTPAddr            = "CASEFILE_HTTP_ADDR"
	envDatabaseDSN         = "CASEFILE_DATABASE_DSN"
	envSecretKey           = "CASEFILE_SECRET_KEY"
	envAccessTokenValidity = "CASEFILE_ACCESS_TOKEN_VALIDITY"
	envCodeValidity        = "CASEFILE_CODE_VALIDITY"
	envS3RootUser          = "CASEFILE_S3_ROOT_USER"
	envS3RootPassword      = "CASEFILE_S3_ROOT_PASSWORD"
	envS3Bucket            = "CASEFILE_S3_BUCKET"
	envS3Region            = "CASEFILE_S3_REGION"
	envS3BaseEndpoint      = "CASEFILE_S3_BASE_ENDPOINT"
	envAllowedOrigins      = "CASEFILE_ALLOWED_ORIGINS"
	envBootstrapEmail      = "CASEFILE_BOOTSTRAP_EMAIL"
	envBootstrapPassword   = "CASEFILE_BOOTSTRAP_PASSWORD"
	envLogLevel            = "CASEFILE_LOG_LEVEL"
)

func envFilePath() string {
	if p := os.Getenv(EnvFileVar); p != "" {
		return p
	}
	return ".env"
}

// parseEnv overlays config with variables from the .env file at path and
// from the process environment; the process environment wins. A missing
// file is not an error, a malformed one or a bad duration panics.
func parseEnv(config *Config, path string) {
	vars := map[string]string{}

	if path != "" {
		fileVars, err := godotenv.Read(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}

	stringVars := map[string]*string{
		envHTTPAddr:          &config.HTTPAddr,
		envDatabaseDSN:       &config.DatabaseDSN,
		envSecretKey:         &config.SecretKey,
		envS3RootUser:        &config.S3RootUser,
		envS3RootPassword:    &config.S3RootPassword,
		envS3Bucket:          &config.S3Bucket,
		envS3Region:          &config.S3Region,
		envS3BaseEndpoint:    &config.S3BaseEndpoint,
		envBootstrapEmail:    &config.BootstrapEmail,
		envBootstrapPassword: &config.BootstrapPassword,
		envLogLevel:          &config.LogLevel,
	}
	for key, dst := range stringVars {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		envAccessTokenValidity: &config.AccessTokenValidity,
		envCodeValidity:        &config.CodeValidity,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}

	if v, ok := lookup(envAllowedOrigins); ok {
		config.AllowedOrigins = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
