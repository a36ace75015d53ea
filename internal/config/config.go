// Package config provides environment configuration for the dashboard server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ErrMissingCredentials is returned when a required warehouse credential is unset.
var ErrMissingCredentials = errors.New("missing required warehouse credentials")

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Snowflake settings
	SnowflakeAccount   string
	SnowflakeUser      string
	SnowflakePassword  string
	SnowflakeRole      string
	SnowflakeWarehouse string
	SnowflakeDatabase  string
	SnowflakeSchema    string
	CasesTable         string

	// Dashboard
	DefaultCountries []string

	// LLM settings
	LLMProvider     string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	SystemPrompt    string
	LLMMaxTokens    int

	// Session settings
	SessionSecret       string
	SessionTTL          time.Duration
	SessionCookieSecure bool
	SessionStore        string
	SessionLockTTL      time.Duration
	RedisAddr           string
	RedisPassword       string
	RedisDB             int

	// NATS settings (empty URL disables the turn audit log)
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables and, when CONFIG_FILE
// names one, a YAML file. Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	src := source{v: v}

	cfg := &Config{
		// Server
		ServerPort:         src.getString("PORT", "8080"),
		ServerReadTimeout:  src.getDuration("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: src.getDuration("SERVER_WRITE_TIMEOUT", 180*time.Second),

		// Snowflake
		SnowflakeAccount:   src.getString("SNOWFLAKE_ACCOUNT", ""),
		SnowflakeUser:      src.getString("SNOWFLAKE_USERNAME", ""),
		SnowflakePassword:  src.getString("SNOWFLAKE_PASSWORD", ""),
		SnowflakeRole:      src.getString("SNOWFLAKE_ROLE", "ACCOUNTADMIN"),
		SnowflakeWarehouse: src.getString("SNOWFLAKE_WAREHOUSE", "COMPUTE_WH"),
		SnowflakeDatabase:  src.getString("SNOWFLAKE_DATABASE", "COVID19_EPIDEMIOLOGICAL_DATA"),
		SnowflakeSchema:    src.getString("SNOWFLAKE_SCHEMA", "PUBLIC"),
		CasesTable:         src.getString("CASES_TABLE", "PUBLIC.ECDC_GLOBAL"),

		// Dashboard
		DefaultCountries: src.getList("DEFAULT_COUNTRIES", []string{"United States", "India", "France"}),

		// LLM
		LLMProvider:     strings.ToLower(src.getString("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:    src.getString("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   src.getString("OPENAI_BASE_URL", ""),
		AnthropicAPIKey: src.getString("ANTHROPIC_API_KEY", ""),
		SystemPrompt:    src.getString("SYSTEM_PROMPT", "You are a helpful assistant."),
		LLMMaxTokens:    src.getInt("LLM_MAX_TOKENS", 0),

		// Session
		SessionSecret:       src.getString("SESSION_SECRET", "development-secret-change-in-production"),
		SessionTTL:          src.getDuration("SESSION_TTL", 24*time.Hour),
		SessionCookieSecure: src.getBool("SESSION_COOKIE_SECURE", false),
		SessionStore:        strings.ToLower(src.getString("SESSION_STORE", "memory")),
		SessionLockTTL:      src.getDuration("SESSION_LOCK_TTL", 5*time.Minute),
		RedisAddr:           src.getString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       src.getString("REDIS_PASSWORD", ""),
		RedisDB:             src.getInt("REDIS_DB", 0),

		// NATS
		NATSURL:      src.getString("NATS_URL", ""),
		NATSCAFile:   src.getString("NATS_CA_FILE", ""),
		NATSCertFile: src.getString("NATS_CERT_FILE", ""),
		NATSKeyFile:  src.getString("NATS_KEY_FILE", ""),
		NATSToken:    src.getString("NATS_TOKEN", ""),

		// Rate limiting
		RateLimitRequests: src.getInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   src.getDuration("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: src.getString("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: src.getString("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  src.getBool("TRACING_ENABLED", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	var missing []string
	if c.SnowflakeAccount == "" {
		missing = append(missing, "SNOWFLAKE_ACCOUNT")
	}
	if c.SnowflakeUser == "" {
		missing = append(missing, "SNOWFLAKE_USERNAME")
	}
	if c.SnowflakePassword == "" {
		missing = append(missing, "SNOWFLAKE_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	switch c.SessionStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}

	switch c.LLMProvider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}

	return nil
}

// source resolves keys through viper, falling back to defaults for unset or
// unparseable values.
type source struct {
	v *viper.Viper
}

func (s source) getString(key, defaultValue string) string {
	if value := s.v.GetString(key); value != "" {
		return value
	}
	return defaultValue
}

func (s source) getInt(key string, defaultValue int) int {
	if s.v.GetString(key) == "" {
		return defaultValue
	}
	if i, err := cast.ToIntE(s.v.Get(key)); err == nil {
		return i
	}
	return defaultValue
}

func (s source) getBool(key string, defaultValue bool) bool {
	if s.v.GetString(key) == "" {
		return defaultValue
	}
	if b, err := cast.ToBoolE(s.v.Get(key)); err == nil {
		return b
	}
	return defaultValue
}

func (s source) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := s.v.GetString(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func (s source) getList(key string, defaultValue []string) []string {
	value := s.v.GetString(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
