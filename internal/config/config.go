package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML config file
const ConfigFileEnv = "ASSISTANT_CONFIG"

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	ServerPort       string
	FrontendURL      string

	OpenAIKey       string
	AIBaseURL       string
	AIModel         string
	EmbeddingModel  string
	ParseTimeout    time.Duration
	EnrichTimeout   time.Duration
	ParseMaxTokens  int
	EnrichMaxTokens int

	UseMockData      bool
	CalendarMockFile string
	EmailMockFile    string

	IndexPrefix string
	RateLimit   string

	DebugMode    bool
	OTELEnabled  bool
	OTELEndpoint string
}

// Load loads configuration from environment variables. When ASSISTANT_CONFIG names
// a YAML file its keys are used for any variable not set in the environment.
func Load() (*Config, error) {
	file, err := loadFile(os.Getenv(ConfigFileEnv))
	if err != nil {
		return nil, err
	}
	l := loader{file: file}

	cfg := &Config{
		DatabaseURL:      l.getEnv("DATABASE_URL", ""),
		RedisURL:         l.getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      l.getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: l.getEnvInt("RABBITMQ_PREFETCH", 1),
		ServerPort:       l.getEnv("SERVER_PORT", "5000"),
		FrontendURL:      l.getEnv("FRONTEND_URL", "http://localhost:3000"),
		OpenAIKey:        l.getEnv("OPENAI_API_KEY", ""),
		AIBaseURL:        l.getEnv("AI_BASE_URL", "http://localhost:11434/v1"),
		AIModel:          l.getEnv("AI_MODEL", "llama3.2:3b"),
		EmbeddingModel:   l.getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
		ParseTimeout:     l.getEnvDuration("PARSE_TIMEOUT", 45*time.Second),
		EnrichTimeout:    l.getEnvDuration("ENRICH_TIMEOUT", 30*time.Second),
		ParseMaxTokens:   l.getEnvInt("PARSE_MAX_TOKENS", 200),
		EnrichMaxTokens:  l.getEnvInt("ENRICH_MAX_TOKENS", 100),
		UseMockData:      l.getEnvBool("USE_MOCK_DATA", true),
		CalendarMockFile: l.getEnv("CALENDAR_MOCK_FILE", "data/mock/calendar_events.json"),
		EmailMockFile:    l.getEnv("EMAIL_MOCK_FILE", "data/mock/email_messages.json"),
		IndexPrefix:      l.getEnv("INDEX_PREFIX", "assistant"),
		RateLimit:        l.getEnv("RATE_LIMIT", "10-M"),
		DebugMode:        l.getEnvBool("DEBUG_MODE", false),
		OTELEnabled:      l.getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     l.getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ParseTimeout <= 0 || cfg.EnrichTimeout <= 0 {
		return nil, fmt.Errorf("PARSE_TIMEOUT and ENRICH_TIMEOUT must be positive")
	}
	if cfg.ParseMaxTokens <= 0 || cfg.EnrichMaxTokens <= 0 {
		return nil, fmt.Errorf("PARSE_MAX_TOKENS and ENRICH_MAX_TOKENS must be positive")
	}

	return cfg, nil
}

// RequireQueue returns an error when no RabbitMQ URL is configured
func (c *Config) RequireQueue() error {
	if c.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required for index repair jobs")
	}
	return nil
}

// AllowedOrigins returns the CORS origins from FRONTEND_URL, which may list
// several comma-separated origins
func (c *Config) AllowedOrigins() []string {
	seen := make(map[string]bool)
	var origins []string
	for _, origin := range strings.Split(c.FrontendURL, ",") {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}

// loadFile reads a flat YAML mapping of config keys. Keys are matched
// case-insensitively against the environment variable names.
func loadFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		values[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return values, nil
}

type loader struct {
	file map[string]string
}

func (l loader) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return l.file[key]
}

func (l loader) getEnv(key, defaultValue string) string {
	if value := l.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func (l loader) getEnvBool(key string, defaultValue bool) bool {
	if value := l.lookup(key); value != "" {
		value = strings.ToLower(value)
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (l loader) getEnvInt(key string, defaultValue int) int {
	if value := l.lookup(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("45s") or a bare number of seconds
func (l loader) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := l.lookup(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
