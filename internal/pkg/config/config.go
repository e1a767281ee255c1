package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	BodyLimit    int    `mapstructure:"body_limit"`
	CORSOrigins  string `mapstructure:"cors_origins"`
}

type RateLimitConfig struct {
	Max           int `mapstructure:"max"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

// NATSConfig is optional; an empty URL disables event publishing.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// ValkeyConfig is optional; an empty address disables caching.
type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type AgentConfig struct {
	APIKey          string `mapstructure:"api_key"`
	Model           string `mapstructure:"model"`
	BaseURL         string `mapstructure:"base_url"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
	MaxToolRounds   int    `mapstructure:"max_tool_rounds"`
}

// Enabled reports whether the conversational agent can be started.
func (a AgentConfig) Enabled() bool {
	return strings.TrimSpace(a.APIKey) != ""
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from .env, an optional config file and
// environment variables, in increasing order of precedence.
func Load(service string) (*Config, error) {
	_ = godotenv.Load() // OK if missing

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.body_limit", 1024*1024)
	v.SetDefault("server.cors_origins", "*")
	v.SetDefault("rate_limit.max", 120)
	v.SetDefault("rate_limit.window_seconds", 60)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "digipin")
	v.SetDefault("valkey.addr", "")
	v.SetDefault("agent.api_key", "")
	v.SetDefault("agent.model", "gemini-1.5-flash")
	v.SetDefault("agent.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("agent.timeout_seconds", 30)
	v.SetDefault("agent.cache_ttl_seconds", 300)
	v.SetDefault("agent.max_tool_rounds", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: DIGIPIN_AGENT_API_KEY → agent.api_key
	v.SetEnvPrefix("DIGIPIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names used by existing deployments.
	_ = v.BindEnv("agent.api_key", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	_ = v.BindEnv("agent.model", "GEMINI_MODEL")
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("server.port", "PORT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.BodyLimit <= 0 {
		errs = append(errs, "server.body_limit must be positive")
	}
	if c.RateLimit.Max <= 0 {
		errs = append(errs, "rate_limit.max must be positive")
	}
	if c.RateLimit.WindowSeconds <= 0 {
		errs = append(errs, "rate_limit.window_seconds must be positive")
	}
	if c.NATS.SubjectPrefix == "" {
		errs = append(errs, "nats.subject_prefix is required")
	}
	if c.Agent.TimeoutSeconds <= 0 {
		errs = append(errs, "agent.timeout_seconds must be positive")
	}
	if c.Agent.CacheTTLSeconds < 0 {
		errs = append(errs, "agent.cache_ttl_seconds must not be negative")
	}
	if c.Agent.MaxToolRounds < 1 || c.Agent.MaxToolRounds > 20 {
		errs = append(errs, fmt.Sprintf("agent.max_tool_rounds must be 1-20, got %d", c.Agent.MaxToolRounds))
	}
	if c.Agent.Enabled() && c.Agent.BaseURL == "" {
		errs = append(errs, "agent.base_url is required when agent.api_key is set")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
