package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	LLM       LLMConfig
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	Gemini    GeminiConfig
	RateLimit RateLimitConfig
	Report    ReportConfig
	OTEL      OTELConfig
	Metrics   MetricsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host         string
	Port         int
	Env          string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// SSEPort is where cmd/sse listens.
	SSEPort        int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig selects the repository backend.
type StorageConfig struct {
	// Driver is "memory" or "postgres".
	Driver      string
	AutoMigrate bool
}

// LLMConfig holds provider-independent text generation settings
type LLMConfig struct {
	// Provider is one of "openai", "anthropic" or "gemini".
	Provider        string
	Temperature     float64
	MaxTokens       int
	Timeout         time.Duration
	RateLimitRPM    int
	RateLimitBurst  int
	BreakerFailures int
	BreakerCooldown time.Duration
}

// OpenAIConfig holds OpenAI configuration
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// AnthropicConfig holds Anthropic configuration
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey string
	Model  string
}

// RateLimitConfig limits AI-heavy endpoints per client
type RateLimitConfig struct {
	ConsultPerHour int
	// TrustProxyHeaders keys clients by X-Real-IP / X-Forwarded-For
	TrustProxyHeaders bool
}

// ReportConfig holds PDF report settings
type ReportConfig struct {
	FontPath string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load loads configuration from environment variables. When CONFIG_FILE names a
// YAML file its values replace the built-in defaults; environment variables
// still take precedence.
func Load() (*Config, error) {
	src, err := newSource(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Host:           src.str("SERVER_HOST", "server.host", "0.0.0.0"),
			Port:           src.int("SERVER_PORT", "server.port", 8080),
			Env:            src.str("APP_ENV", "server.env", "development"),
			LogLevel:       src.str("LOG_LEVEL", "server.log_level", "info"),
			ReadTimeout:    src.duration("SERVER_READ_TIMEOUT", "server.read_timeout", 15*time.Second),
			WriteTimeout:   src.duration("SERVER_WRITE_TIMEOUT", "server.write_timeout", 0),
			SSEPort:        src.int("SSE_PORT", "server.sse_port", 8081),
			AllowedOrigins: src.list("ALLOWED_ORIGINS", "server.allowed_origins", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     src.str("DB_HOST", "database.host", "localhost"),
			Port:     src.int("DB_PORT", "database.port", 5432),
			User:     src.str("DB_USER", "database.user", "postgres"),
			Password: src.str("DB_PASSWORD", "database.password", ""),
			Database: src.str("DB_NAME", "database.name", "medicrew"),
			SSLMode:  src.str("DB_SSLMODE", "database.sslmode", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  src.bool("REDIS_ENABLED", "redis.enabled", false),
			Host:     src.str("REDIS_HOST", "redis.host", "localhost"),
			Port:     src.int("REDIS_PORT", "redis.port", 6379),
			Password: src.str("REDIS_PASSWORD", "redis.password", ""),
			DB:       src.int("REDIS_DB", "redis.db", 0),
		},
		Storage: StorageConfig{
			Driver:      src.str("STORAGE_DRIVER", "storage.driver", "memory"),
			AutoMigrate: src.bool("STORAGE_AUTO_MIGRATE", "storage.auto_migrate", true),
		},
		LLM: LLMConfig{
			Provider:        src.str("LLM_PROVIDER", "llm.provider", "openai"),
			Temperature:     src.float("LLM_TEMPERATURE", "llm.temperature", 0.3),
			MaxTokens:       src.int("LLM_MAX_TOKENS", "llm.max_tokens", 2000),
			Timeout:         src.duration("LLM_TIMEOUT", "llm.timeout", 60*time.Second),
			RateLimitRPM:    src.int("LLM_RATE_LIMIT_RPM", "llm.rate_limit_rpm", 60),
			RateLimitBurst:  src.int("LLM_RATE_LIMIT_BURST", "llm.rate_limit_burst", 5),
			BreakerFailures: src.int("LLM_BREAKER_FAILURES", "llm.breaker_failures", 5),
			BreakerCooldown: src.duration("LLM_BREAKER_COOLDOWN", "llm.breaker_cooldown", 30*time.Second),
		},
		OpenAI: OpenAIConfig{
			APIKey:  src.str("OPENAI_API_KEY", "openai.api_key", ""),
			Model:   src.str("OPENAI_MODEL", "openai.model", "gpt-4o-mini"),
			BaseURL: src.str("OPENAI_BASE_URL", "openai.base_url", ""),
		},
		Anthropic: AnthropicConfig{
			APIKey: src.str("ANTHROPIC_API_KEY", "anthropic.api_key", ""),
			Model:  src.str("ANTHROPIC_MODEL", "anthropic.model", "claude-3-5-haiku-latest"),
		},
		Gemini: GeminiConfig{
			APIKey: src.str("GOOGLE_API_KEY", "gemini.api_key", ""),
			Model:  src.str("GEMINI_MODEL", "gemini.model", "gemini-2.5-flash"),
		},
		RateLimit: RateLimitConfig{
			ConsultPerHour:    src.int("CONSULT_RATE_LIMIT", "rate_limit.consult_per_hour", 30),
			TrustProxyHeaders: src.bool("TRUST_PROXY_HEADERS", "rate_limit.trust_proxy_headers", false),
		},
		Report: ReportConfig{
			FontPath: src.str("REPORT_FONT_PATH", "report.font_path", "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"),
		},
		OTEL: OTELConfig{
			ServiceName:    src.str("OTEL_SERVICE_NAME", "otel.service_name", "medicrew"),
			ServiceVersion: src.str("OTEL_SERVICE_VERSION", "otel.service_version", "1.0.0"),
			Endpoint:       src.str("OTEL_ENDPOINT", "otel.endpoint", ""),
			Enabled:        src.bool("OTEL_ENABLED", "otel.enabled", false),
		},
		Metrics: MetricsConfig{
			Enabled: src.bool("METRICS_ENABLED", "metrics.enabled", true),
			Path:    src.str("METRICS_PATH", "metrics.path", "/metrics"),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// DatabaseURL returns the PostgreSQL connection string in URL form, as
// expected by the migration driver.
func (c *DatabaseConfig) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// source resolves a setting from the environment, then the optional config
// file, then the built-in default.
type source struct {
	k *koanf.Koanf
}

func newSource(path string) (*source, error) {
	if path == "" {
		return &source{}, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %q: %w", path, err)
	}
	return &source{k: k}, nil
}

func (s *source) has(key string) bool {
	return s.k != nil && s.k.Exists(key)
}

func (s *source) str(envKey, fileKey, defaultValue string) string {
	if s.has(fileKey) {
		defaultValue = s.k.String(fileKey)
	}
	return getEnv(envKey, defaultValue)
}

func (s *source) int(envKey, fileKey string, defaultValue int) int {
	if s.has(fileKey) {
		defaultValue = s.k.Int(fileKey)
	}
	return getEnvAsInt(envKey, defaultValue)
}

func (s *source) bool(envKey, fileKey string, defaultValue bool) bool {
	if s.has(fileKey) {
		defaultValue = s.k.Bool(fileKey)
	}
	return getEnvAsBool(envKey, defaultValue)
}

func (s *source) float(envKey, fileKey string, defaultValue float64) float64 {
	if s.has(fileKey) {
		defaultValue = s.k.Float64(fileKey)
	}
	return getEnvAsFloat(envKey, defaultValue)
}

func (s *source) list(envKey, fileKey string, defaultValue []string) []string {
	if s.has(fileKey) {
		defaultValue = s.k.Strings(fileKey)
	}
	if value := os.Getenv(envKey); value != "" {
		var out []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func (s *source) duration(envKey, fileKey string, defaultValue time.Duration) time.Duration {
	if s.has(fileKey) {
		defaultValue = s.k.Duration(fileKey)
	}
	return getEnvAsDuration(envKey, defaultValue)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
