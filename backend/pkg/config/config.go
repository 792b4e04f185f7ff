package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	apperrors "tablegraph/backend/pkg/errors"
)

// Store drivers
const (
	DriverNeo4j  = "neo4j"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	// App
	Port       string
	Env        string
	CORSOrigin string

	// Store selection
	StoreDriver string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// SQLite
	SQLitePath string

	// Tagging
	RulesFile string // optional YAML rule table; built-in rules when empty

	// Graph
	DefaultHops int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		CORSOrigin:    getEnv("CORS_ORIGIN", "*"),
		StoreDriver:   getEnv("STORE_DRIVER", DriverSQLite),
		Neo4jURI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", "password"),
		SQLitePath:    getEnv("SQLITE_PATH", "tablegraph.db"),
		RulesFile:     getEnv("RULES_FILE", ""),
		DefaultHops:   getEnvInt("DEFAULT_HOPS", 2),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Port == "" {
		return apperrors.NewConfigMissingRequired("PORT")
	}
	switch c.StoreDriver {
	case DriverNeo4j:
		if c.Neo4jURI == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_URI")
		}
		if c.Neo4jUser == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_USER")
		}
		if c.Neo4jPassword == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return apperrors.NewConfigMissingRequired("SQLITE_PATH")
		}
	case DriverMemory:
	default:
		return apperrors.NewConfigValidationFailed("STORE_DRIVER", fmt.Sprintf("unknown driver %q", c.StoreDriver))
	}
	if c.DefaultHops < 0 {
		return apperrors.NewConfigValidationFailed("DEFAULT_HOPS", "must not be negative")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
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
