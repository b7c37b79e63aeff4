package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Environment names recognised by the service.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds the application configuration
type Config struct {
	// Deployment environment: development, production, or test.
	// Non-production environments suffix the database name.
	Environment string

	// Database connection string (DSN)
	DatabaseURL string

	// Optional external cache DSN (redis://...). Empty selects the
	// in-process cache.
	CacheURL string

	// Server bind address (host:port)
	ServerAddr string

	// Public base URL; doubles as the OAuth2/OIDC issuer.
	ServerURL string

	// Maximum database connection pool size
	MaxDBConnections int

	// Enable debug logging
	Debug bool

	// JWT signing configuration
	JWT JWTConfig

	// Token lifetimes
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// SMTP dispatch for invite mail. Optional; an empty host disables
	// mail without failing invite creation.
	SMTP SMTPConfig
}

// JWTConfig holds signing material configuration.
//
// HS256 is always available and requires SecretKey. RS256 is enabled when
// Algorithm is "RS256"; the RSA key is loaded from SigningKeyPath (generated
// and persisted on first start when absent) and the JWKS endpoint advertises
// its public half.
type JWTConfig struct {
	SecretKey      string
	Algorithm      string // HS256 (default) or RS256
	KeyID          string // optional kid; generated for RS256 keys
	SigningKeyPath string // RS256 only: PEM file location
}

// SMTPConfig holds the invite mail relay credentials.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether mail dispatch is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// Load reads configuration from environment variables with fallback defaults
func Load() (*Config, error) {
	cfg := &Config{
		Environment:      getEnv("ENVIRONMENT", EnvDevelopment),
		DatabaseURL:      getEnv("DATABASE_URL", "file:opentrusty.db"),
		CacheURL:         getEnv("CACHE_URL", ""),
		ServerAddr:       getEnv("SERVER_ADDR", "localhost:8080"),
		ServerURL:        getEnv("SERVER_URL", "http://localhost:8080"),
		MaxDBConnections: getEnvInt("MAX_DB_CONNECTIONS", 25),
		Debug:            getEnvBool("DEBUG", false),
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET_KEY", ""),
			Algorithm:      getEnv("JWT_ALGORITHM", "HS256"),
			KeyID:          getEnv("JWT_KID", ""),
			SigningKeyPath: getEnv("JWT_SIGNING_KEY_PATH", ""),
		},
		AccessTokenTTL:  time.Duration(getEnvInt("TOKEN_EXPIRATION_TIME", 900)) * time.Second,
		RefreshTokenTTL: time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRATION_TIME", 604800)) * time.Second,
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
	}

	switch cfg.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return nil, fmt.Errorf("ENVIRONMENT must be one of development, production, test (got %q)", cfg.Environment)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("SERVER_URL is required")
	}

	switch cfg.JWT.Algorithm {
	case "HS256":
		if cfg.JWT.SecretKey == "" {
			return nil, fmt.Errorf("JWT_SECRET_KEY is required for HS256")
		}
	case "RS256":
		// Key material is loaded (or generated and persisted) at startup.
	default:
		return nil, fmt.Errorf("JWT_ALGORITHM must be HS256 or RS256 (got %q)", cfg.JWT.Algorithm)
	}

	// Non-production deployments get a suffixed database name so test and
	// dev data never land in the production store.
	if cfg.Environment != EnvProduction {
		cfg.DatabaseURL = suffixDatabase(cfg.DatabaseURL, cfg.Environment)
	}

	return cfg, nil
}

// suffixDatabase appends "_<env>" to the database name portion of a DSN.
// SQLite paths get the suffix before the extension; postgres DSNs get it on
// the last path segment, preserving query parameters.
func suffixDatabase(dsn, env string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		base, query, _ := strings.Cut(dsn, "?")
		idx := strings.LastIndex(base, "/")
		if idx < 0 || idx == len(base)-1 {
			return dsn
		}
		suffixed := base + "_" + env
		if query != "" {
			return suffixed + "?" + query
		}
		return suffixed
	}
	if strings.Contains(dsn, ":memory:") {
		return dsn
	}
	if ext := ".db"; strings.HasSuffix(dsn, ext) {
		return strings.TrimSuffix(dsn, ext) + "_" + env + ext
	}
	return dsn + "_" + env
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
