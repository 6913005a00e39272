// Package config provides configuration management for Memovo.
// It loads settings from environment variables with the MEMOVO_ prefix,
// optionally overlaid by a YAML file, and provides sensible defaults for
// all configuration options.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Memovo service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	LLM      LLMConfig      `yaml:"llm"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // Server port (default: 7373)
	Host            string        `yaml:"host"`             // Server host (default: 0.0.0.0)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // Graceful shutdown window (default: 10s)
	RateLimit       float64       `yaml:"rate_limit"`       // Requests per second per process (default: 20)
	RateBurst       int           `yaml:"rate_burst"`       // Rate limiter burst size (default: 40)
}

// StorageConfig contains database and vector index configuration.
type StorageConfig struct {
	SQLitePath      string `yaml:"sqlite_path"`      // SQLite database path (default: ./data/memovo.db)
	SemanticBackend string `yaml:"semantic_backend"` // Semantic index backend: chromem, postgres (default: chromem)
	PostgresDSN     string `yaml:"postgres_dsn"`     // Postgres DSN when semantic_backend=postgres
}

// LLMConfig contains LLM provider configuration.
type LLMConfig struct {
	Provider        string        `yaml:"provider"`         // LLM provider: ollama, anthropic (default: ollama)
	OllamaURL       string        `yaml:"ollama_url"`       // Ollama API URL (default: http://localhost:11434)
	OllamaModel     string        `yaml:"ollama_model"`     // Ollama model name (default: qwen2.5:7b)
	EmbeddingModel  string        `yaml:"embedding_model"`  // Embedding model name (default: nomic-embed-text)
	AnthropicAPIKey string        `yaml:"anthropic_api_key"`
	AnthropicModel  string        `yaml:"anthropic_model"` // (default: claude-sonnet-4-20250514)
	MaxTokens       int           `yaml:"max_tokens"`      // Response token cap (default: 4096)
	Timeout         time.Duration `yaml:"timeout"`         // Non-streaming request timeout (default: 60s)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	Mode     string `yaml:"mode"`      // Security mode: development, production (default: development)
	APIToken string `yaml:"api_token"` // Bearer token required in production mode
}

// Load builds configuration from environment variables, then overlays the
// YAML file named by MEMOVO_CONFIG_FILE (or the path argument) when present.
func Load(path string) (*Config, error) {
	cfg := buildBaseConfig()

	if path == "" {
		path = os.Getenv("MEMOVO_CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	if cfg.Security.Mode == "production" && cfg.Security.APIToken == "" {
		return nil, fmt.Errorf("config: MEMOVO_API_TOKEN is required in production mode")
	}
	return cfg, nil
}

func buildBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnvInt("MEMOVO_PORT", 7373),
			Host:            getEnv("MEMOVO_HOST", "0.0.0.0"),
			ShutdownTimeout: getEnvDuration("MEMOVO_SHUTDOWN_TIMEOUT", 10*time.Second),
			RateLimit:       float64(getEnvInt("MEMOVO_RATE_LIMIT", 20)),
			RateBurst:       getEnvInt("MEMOVO_RATE_BURST", 40),
		},
		Storage: StorageConfig{
			SQLitePath:      getEnv("MEMOVO_SQLITE_PATH", "./data/memovo.db"),
			SemanticBackend: getEnv("MEMOVO_SEMANTIC_BACKEND", "chromem"),
			PostgresDSN:     getEnv("MEMOVO_POSTGRES_DSN", ""),
		},
		LLM: LLMConfig{
			Provider:        getEnv("MEMOVO_LLM_PROVIDER", "ollama"),
			OllamaURL:       getEnv("MEMOVO_OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:     getEnv("MEMOVO_OLLAMA_MODEL", "qwen2.5:7b"),
			EmbeddingModel:  getEnv("MEMOVO_EMBEDDING_MODEL", "nomic-embed-text"),
			AnthropicAPIKey: getEnv("MEMOVO_ANTHROPIC_API_KEY", ""),
			AnthropicModel:  getEnv("MEMOVO_ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			MaxTokens:       getEnvInt("MEMOVO_MAX_TOKENS", 4096),
			Timeout:         getEnvDuration("MEMOVO_LLM_TIMEOUT", 60*time.Second),
		},
		Security: SecurityConfig{
			Mode:     getEnv("MEMOVO_SECURITY_MODE", "development"),
			APIToken: getEnv("MEMOVO_API_TOKEN", ""),
		},
	}
}

// getEnv retrieves an environment variable or returns the default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the
// default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
