package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Store      StoreConfig      `mapstructure:"store"`
	Supabase   SupabaseConfig   `mapstructure:"supabase"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Delivery   DeliveryConfig   `mapstructure:"delivery"`
	Email      EmailConfig      `mapstructure:"email"`
	SMS        ChannelConfig    `mapstructure:"sms"`
	Push       ChannelConfig    `mapstructure:"push"`
	AWS        AWSConfig        `mapstructure:"aws"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SlogLevel maps the configured level name onto a slog.Level. Unknown names
// fall back to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
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

// CORSConfig holds CORS policy settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSupabase = "supabase"
	StoreRedis    = "redis"
)

// StoreConfig selects the notification log backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

// SupabaseConfig holds Supabase project settings.
type SupabaseConfig struct {
	URL        string `mapstructure:"url"`
	ServiceKey string `mapstructure:"service_key"`
	Table      string `mapstructure:"table"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// DeliveryConfig holds retry settings for the delivery pipeline.
type DeliveryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	BaseDelayMS int `mapstructure:"base_delay_ms"`
}

// BaseDelay returns the configured backoff base as a duration.
func (c DeliveryConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMS) * time.Millisecond
}

// Budget is the longest a delivery can take when every attempt runs for
// perAttempt: all attempts plus the linear backoff between them.
func (c DeliveryConfig) Budget(perAttempt time.Duration) time.Duration {
	total := time.Duration(c.MaxAttempts) * perAttempt
	for k := 1; k < c.MaxAttempts; k++ {
		total += c.BaseDelay() * time.Duration(k)
	}
	return total
}

// MinWriteTimeout is the HTTP write timeout floor.
const MinWriteTimeout = 60 * time.Second

// WriteTimeout returns an HTTP write timeout long enough for a submit request
// to outlast its delivery budget, never below MinWriteTimeout.
func (c *Config) WriteTimeout(perAttempt time.Duration) time.Duration {
	return max(MinWriteTimeout, c.Delivery.Budget(perAttempt)+15*time.Second)
}

// EmailConfig holds email provider settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	APIKey      string `mapstructure:"api_key"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	Endpoint    string `mapstructure:"endpoint"`
}

// ChannelConfig selects the provider for the SMS or push channel.
type ChannelConfig struct {
	Provider string `mapstructure:"provider"`
}

// AWSConfig holds settings shared by the SES and SNS clients.
type AWSConfig struct {
	Region string `mapstructure:"region"`
}

// SimulationConfig tunes the simulated providers.
type SimulationConfig struct {
	FailureRate float64 `mapstructure:"failure_rate"`
}

// Load reads configuration from config.yaml and environment variables.
// Environment variables use the COURIER_ prefix and underscore separators.
// Example: COURIER_SERVER_PORT overrides server.port in config.yaml.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("COURIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Read config file (optional, env vars can provide everything)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Comma-separated lists from env vars
	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)
	cfg.CORS.AllowedMethods = splitList(cfg.CORS.AllowedMethods)
	cfg.CORS.AllowedHeaders = splitList(cfg.CORS.AllowedHeaders)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.level", "info")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "X-Request-ID"})
	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.service_key", "")
	v.SetDefault("supabase.table", "notification_logs")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "courier")
	v.SetDefault("delivery.max_attempts", 3)
	v.SetDefault("delivery.base_delay_ms", 500)
	v.SetDefault("email.provider", "auto")
	v.SetDefault("email.api_key", "")
	v.SetDefault("email.from_address", "notifications@yourdomain.com")
	v.SetDefault("email.from_name", "")
	v.SetDefault("email.endpoint", "")
	v.SetDefault("sms.provider", "simulated")
	v.SetDefault("push.provider", "simulated")
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("simulation.failure_rate", 0.1)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreSupabase, StoreRedis:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.Delivery.MaxAttempts < 1 {
		return fmt.Errorf("delivery.max_attempts must be at least 1, got %d", c.Delivery.MaxAttempts)
	}
	if c.Delivery.BaseDelayMS < 0 {
		return fmt.Errorf("delivery.base_delay_ms must not be negative, got %d", c.Delivery.BaseDelayMS)
	}
	if c.Simulation.FailureRate < 0 || c.Simulation.FailureRate > 1 {
		return fmt.Errorf("simulation.failure_rate must be within [0,1], got %v", c.Simulation.FailureRate)
	}
	return nil
}

func splitList(current []string) []string {
	if len(current) == 0 {
		return current
	}
	out := make([]string, 0, len(current))
	for _, item := range current {
		for _, p := range strings.Split(item, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
