// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds the configuration shared by the CLI and the HTTP service.
type Config struct {
	LogLevel  string // log level: debug, info, warn, error (default "info")
	LogFormat string // log handler: text (default) or json

	// Strict makes validation discrepancies fatal (default true).
	Strict bool

	// HTTP service
	ListenAddr         string   // HTTP listen address (default ":8080")
	MaxBodyBytes       int64    // request body cap for validation payloads (default 64 MiB)
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 50)
	RateLimitBurst int     // burst capacity (default 100)

	// ValidateConcurrency bounds how many files the CLI validates at once.
	ValidateConcurrency int

	// S3 fields are optional; nil when not configured.
	S3KeyID    *string
	S3Secret   *string
	S3Endpoint *string
	S3Region   *string

	GCSKeyFile string // service account key file for gs:// schema URIs

	AzureAccountName string
	AzureAccountKey  string

	// Service authentication. Requests are unauthenticated when none is set.
	JWTSecret     string            // HS256 shared secret
	OIDCIssuerURL string            // issuer for RS256 tokens
	OIDCJWKSURL   string            // JWKS endpoint; skips OIDC discovery when set
	OIDCAudience  string            // expected "aud" claim
	APIKeys       map[string]string // API key -> principal name, from API_KEYS

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds a logger writing to w with the configured format and level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// HasS3Config returns true if all required S3 fields are set.
func (c *Config) HasS3Config() bool {
	return c.S3KeyID != nil && c.S3Secret != nil &&
		c.S3Endpoint != nil && c.S3Region != nil
}

// HasGCSConfig returns true if a GCS key file is configured.
func (c *Config) HasGCSConfig() bool {
	return c.GCSKeyFile != ""
}

// HasAzureConfig returns true if Azure shared-key credentials are set.
func (c *Config) HasAzureConfig() bool {
	return c.AzureAccountName != "" && c.AzureAccountKey != ""
}

// AuthEnabled reports whether the HTTP service requires credentials.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != "" || c.OIDCIssuerURL != "" || len(c.APIKeys) > 0
}

// LoadFromEnv loads configuration from environment variables.
// Cloud storage variables are optional.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))),
		Strict:           parseBoolEnvDefault("TABSCHEMA_STRICT", true),
		ListenAddr:       os.Getenv("LISTEN_ADDR"),
		GCSKeyFile:       os.Getenv("GCS_KEY_FILE"),
		AzureAccountName: os.Getenv("AZURE_ACCOUNT_NAME"),
		AzureAccountKey:  os.Getenv("AZURE_ACCOUNT_KEY"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		OIDCIssuerURL:    os.Getenv("OIDC_ISSUER_URL"),
		OIDCJWKSURL:      os.Getenv("OIDC_JWKS_URL"),
		OIDCAudience:     os.Getenv("OIDC_AUDIENCE"),
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RateLimitRPS = f
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring invalid RATE_LIMIT_RPS %q", v))
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitBurst = n
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring invalid RATE_LIMIT_BURST %q", v))
		}
	}
	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxBodyBytes = n
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring invalid MAX_BODY_BYTES %q", v))
		}
	}
	if v := os.Getenv("VALIDATE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ValidateConcurrency = n
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring invalid VALIDATE_CONCURRENCY %q", v))
		}
	}

	// S3 fields are optional, only set if present
	if v := os.Getenv("S3_KEY_ID"); v != "" {
		cfg.S3KeyID = &v
	}
	if v := os.Getenv("S3_SECRET"); v != "" {
		cfg.S3Secret = &v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.S3Endpoint = &v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.S3Region = &v
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = compactNonEmpty(origins)
	}

	if v := os.Getenv("API_KEYS"); v != "" {
		keys, err := parseAPIKeys(v)
		if err != nil {
			return nil, err
		}
		cfg.APIKeys = keys
	}

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 50
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 100
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 64 << 20
	}
	if cfg.ValidateConcurrency == 0 {
		cfg.ValidateConcurrency = 4
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}
	if (cfg.AzureAccountName == "") != (cfg.AzureAccountKey == "") {
		return nil, fmt.Errorf("both AZURE_ACCOUNT_NAME and AZURE_ACCOUNT_KEY must be set together")
	}
	if cfg.JWTSecret != "" && cfg.OIDCIssuerURL != "" {
		return nil, fmt.Errorf("JWT_SECRET and OIDC_ISSUER_URL are mutually exclusive")
	}
	if cfg.OIDCJWKSURL != "" && cfg.OIDCIssuerURL == "" {
		return nil, fmt.Errorf("OIDC_JWKS_URL requires OIDC_ISSUER_URL")
	}
	anyS3 := cfg.S3KeyID != nil || cfg.S3Secret != nil || cfg.S3Endpoint != nil || cfg.S3Region != nil
	if anyS3 && !cfg.HasS3Config() {
		cfg.Warnings = append(cfg.Warnings, "S3 config is incomplete: set S3_KEY_ID, S3_SECRET, S3_ENDPOINT and S3_REGION to read s3:// schemas")
	}

	return cfg, nil
}

// parseAPIKeys parses a comma-separated list of principal:key pairs.
func parseAPIKeys(v string) (map[string]string, error) {
	keys := make(map[string]string)
	for _, entry := range strings.Split(v, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		principal, key, ok := strings.Cut(entry, ":")
		principal, key = strings.TrimSpace(principal), strings.TrimSpace(key)
		if !ok || principal == "" || key == "" {
			return nil, fmt.Errorf("API_KEYS entry %q must be principal:key", entry)
		}
		if _, dup := keys[key]; dup {
			return nil, fmt.Errorf("API_KEYS contains a duplicate key for principal %q", principal)
		}
		keys[key] = principal
	}
	return keys, nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
