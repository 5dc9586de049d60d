package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	MCP      MCPConfig
	AI       AIConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Secure         bool   // Use HTTPS-only cookies
	Environment    string // "development", "production", "test"
	Debug          bool
	BaseURL        string // Public base URL, used in CLI output and solution links
	MigrationsPath string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// MCPConfig controls the JSON-RPC endpoint used by AI assistants.
type MCPConfig struct {
	RateLimit       int // requests per minute per client IP
	DefaultTokenTTL int // days; applied when a token is issued without an explicit TTL
}

type AIConfig struct {
	SummaryProvider string // "gemini" or "local"
	GeminiAPIKey    string
	GeminiModel     string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MCPEndpoint returns the absolute URL of the JSON-RPC endpoint.
func (s ServerConfig) MCPEndpoint() string {
	return strings.TrimRight(s.BaseURL, "/") + "/api/mcp/"
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvInt("SERVER_PORT", 8080),
			Secure:         getEnvBool("SERVER_SECURE", false),
			Environment:    getEnv("APP_ENV", "development"),
			Debug:          getEnvBool("SERVER_DEBUG", false),
			BaseURL:        getEnv("APP_BASE_URL", "http://localhost:8080"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "solutionbase"),
			Password: getEnv("DB_PASSWORD", "solutionbase"),
			DBName:   getEnv("DB_NAME", "solutionbase"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		MCP: MCPConfig{
			RateLimit:       getEnvInt("MCP_RATE_LIMIT", 120),
			DefaultTokenTTL: getEnvInt("MCP_TOKEN_TTL_DAYS", 365),
		},
		AI: AIConfig{
			SummaryProvider: strings.ToLower(getEnv("AI_SUMMARY_PROVIDER", "local")),
			GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
			GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT %d", c.Server.Port)
	}
	if c.MCP.RateLimit <= 0 {
		return fmt.Errorf("MCP_RATE_LIMIT must be positive, got %d", c.MCP.RateLimit)
	}
	switch c.AI.SummaryProvider {
	case "local":
	case "gemini":
		if strings.TrimSpace(c.AI.GeminiAPIKey) == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when AI_SUMMARY_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("unknown AI_SUMMARY_PROVIDER %q", c.AI.SummaryProvider)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
