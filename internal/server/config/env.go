package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// dotenvFiles are read (if present) before the process environment is
// consulted. Variables already set in the environment win.
var dotenvFiles = []string{".env"}

// parseEnv overlays Config with TIMELINE_* environment variables.
//
//	TIMELINE_HTTP_ADDR              bind address
//	TIMELINE_DATABASE_DSN           PostgreSQL DSN
//	TIMELINE_SECRET_KEY             JWT secret
//	TIMELINE_ACCESS_TOKEN_TTL       Go duration, e.g. "30m"
//	TIMELINE_REFRESH_TOKEN_TTL      Go duration
//	TIMELINE_PASSWORD_HASHER        bcrypt | argon2id | sha256
//	TIMELINE_ENV                    development | production
//	TIMELINE_LOG_LEVEL              debug | info | warn | error
//	TIMELINE_S3_USER, TIMELINE_S3_PASSWORD, TIMELINE_S3_BUCKET,
//	TIMELINE_S3_REGION, TIMELINE_S3_ENDPOINT
//	TIMELINE_MAX_UPLOAD_SIZE        bytes
//	TIMELINE_AUTH_RATE_LIMIT        requests per minute
//
// Malformed numeric or duration values are ignored.
func parseEnv(cfg *Config) {
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}

	setString(&cfg.EndpointAddrHTTP, "TIMELINE_HTTP_ADDR")
	setString(&cfg.DatabaseDSN, "TIMELINE_DATABASE_DSN")
	setString(&cfg.SecretKey, "TIMELINE_SECRET_KEY")
	setDuration(&cfg.AccessTokenValidityDuration, "TIMELINE_ACCESS_TOKEN_TTL")
	setDuration(&cfg.RefreshTokenValidityDuration, "TIMELINE_REFRESH_TOKEN_TTL")
	setString(&cfg.PasswordHasher, "TIMELINE_PASSWORD_HASHER")
	setString(&cfg.Environment, "TIMELINE_ENV")
	setString(&cfg.LogLevel, "TIMELINE_LOG_LEVEL")
	setString(&cfg.S3RootUser, "TIMELINE_S3_USER")
	setString(&cfg.S3RootPassword, "TIMELINE_S3_PASSWORD")
	setString(&cfg.S3Bucket, "TIMELINE_S3_BUCKET")
	setString(&cfg.S3Region, "TIMELINE_S3_REGION")
	setString(&cfg.S3BaseEndpoint, "TIMELINE_S3_ENDPOINT")

	if v, ok := os.LookupEnv("TIMELINE_MAX_UPLOAD_SIZE"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadSize = n
		}
	}
	if v, ok := os.LookupEnv("TIMELINE_AUTH_RATE_LIMIT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AuthRateLimit = n
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
