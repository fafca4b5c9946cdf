package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "kindred/backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port      string
	Env       string
	APIPrefix string

	// Neo4j
	Neo4jURI       string
	Neo4jUser      string
	Neo4jPassword  string
	Neo4jDatabase  string
	StoreTxTimeout time.Duration

	// Identity provider
	OIDCIssuerURL string
	OIDCClientID  string

	// Relationship appends
	SerializeRelationAppends bool

	// Outbound fan-out
	FanoutConcurrency          int
	FanoutTimeout              time.Duration
	FanoutAllowedHosts         []string
	FanoutAllowPrivateNetworks bool

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                       getEnv("PORT", "8088"),
		Env:                        getEnv("ENV", "development"),
		APIPrefix:                  getEnv("API_PREFIX", "/v1"),
		Neo4jURI:                   getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:                  getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:              getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:              getEnv("NEO4J_DATABASE", ""),
		StoreTxTimeout:             getEnvMillis("STORE_TX_TIMEOUT_MS", 5000),
		OIDCIssuerURL:              getEnv("OIDC_ISSUER_URL", "http://localhost:8099/auth/realms/demo"),
		OIDCClientID:               getEnv("OIDC_CLIENT_ID", "demo-client"),
		SerializeRelationAppends:   getEnvBool("SERIALIZE_RELATION_APPENDS", false),
		FanoutConcurrency:          getEnvInt("FANOUT_CONCURRENCY", 1000),
		FanoutTimeout:              getEnvMillis("FANOUT_TIMEOUT_MS", 10000),
		FanoutAllowedHosts:         getEnvList("FANOUT_ALLOWED_HOSTS"),
		FanoutAllowPrivateNetworks: getEnvBool("FANOUT_ALLOW_PRIVATE_NETWORKS", false),
		ShutdownTimeout:            getEnvMillis("SHUTDOWN_TIMEOUT_MS", 5000),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_URI")
	}
	if c.Neo4jUser == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_USER")
	}
	if c.Neo4jPassword == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
	}
	if c.OIDCIssuerURL == "" {
		return apperrors.NewConfigMissingRequired("OIDC_ISSUER_URL")
	}
	if c.APIPrefix != "" && !strings.HasPrefix(c.APIPrefix, "/") {
		return apperrors.NewConfigValidationFailed("API_PREFIX", "must start with /")
	}
	if c.StoreTxTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("STORE_TX_TIMEOUT_MS", "must be positive")
	}
	if c.FanoutConcurrency <= 0 {
		return apperrors.NewConfigValidationFailed("FANOUT_CONCURRENCY", "must be positive")
	}
	if c.FanoutTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("FANOUT_TIMEOUT_MS", "must be positive")
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Millisecond
}

func getEnvList(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
