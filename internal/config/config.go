// Package config loads LostBuddy settings from an optional YAML file and
// LOSTBUDDY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nirojbhetuwal/lostbuddy/internal/cache"
	"github.com/nirojbhetuwal/lostbuddy/internal/matching"
	"github.com/nirojbhetuwal/lostbuddy/internal/notify"
	"github.com/nirojbhetuwal/lostbuddy/internal/similarity"
)

const envPrefix = "LOSTBUDDY"

// weightTolerance is how far the weight sum may drift from 1.
const weightTolerance = 0.001

// Config is the full runtime configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Matching MatchingConfig `mapstructure:"matching"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
}

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig sets the log level and optional log file.
type LogConfig struct {
	// Path additionally writes every record to this file when set.
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

// MatchingConfig tunes scoring thresholds, result limits and weights.
type MatchingConfig struct {
	AutoThreshold    float64          `mapstructure:"auto_threshold"`
	AutoLimit        int              `mapstructure:"auto_limit"`
	SuggestThreshold float64          `mapstructure:"suggest_threshold"`
	SuggestPerItem   int              `mapstructure:"suggest_per_item"`
	SuggestLimit     int              `mapstructure:"suggest_limit"`
	DateRangeDays    int              `mapstructure:"date_range_days"`
	Workers          int              `mapstructure:"workers"`
	Weights          matching.Weights `mapstructure:"weights"`
}

// RedisConfig enables the suggestion cache.
type RedisConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Addr          string        `mapstructure:"addr"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	SuggestionTTL time.Duration `mapstructure:"suggestion_ttl"`
}

// KafkaConfig enables publishing notifications to Kafka.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AdminConfig describes the account created on first start.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
}

// newViper returns a viper instance with every key defaulted, so that each
// one can be overridden from the environment as LOSTBUDDY_SECTION_KEY.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.token_ttl", 7*24*time.Hour)

	v.SetDefault("database.path", "lostbuddy.sqlite3")

	v.SetDefault("log.path", "")
	v.SetDefault("log.level", "info")

	mc := matching.DefaultConfig()
	v.SetDefault("matching.auto_threshold", mc.AutoThreshold)
	v.SetDefault("matching.auto_limit", mc.AutoLimit)
	v.SetDefault("matching.suggest_threshold", mc.SuggestThreshold)
	v.SetDefault("matching.suggest_per_item", mc.SuggestPerItem)
	v.SetDefault("matching.suggest_limit", mc.SuggestLimit)
	v.SetDefault("matching.date_range_days", similarity.DefaultDateRangeDays)
	v.SetDefault("matching.workers", mc.Workers)
	w := matching.DefaultWeights()
	v.SetDefault("matching.weights.title", w.Title)
	v.SetDefault("matching.weights.description", w.Description)
	v.SetDefault("matching.weights.location", w.Location)
	v.SetDefault("matching.weights.date", w.Date)
	v.SetDefault("matching.weights.features", w.Features)
	v.SetDefault("matching.weights.category", w.Category)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.suggestion_ttl", 10*time.Minute)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "lostbuddy.notifications")
	v.SetDefault("kafka.write_timeout", 10*time.Second)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.email", "admin@localhost")
	return v
}

// Load reads the YAML file at path, if any, applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	m := c.Matching
	if err := m.Weights.Validate(); err != nil {
		errs = append(errs, err)
	} else if sum := m.Weights.Sum(); math.Abs(sum-1) > weightTolerance {
		errs = append(errs, fmt.Errorf("matching.weights must sum to 1, got %.4f", sum))
	}
	for name, t := range map[string]float64{
		"matching.auto_threshold":    m.AutoThreshold,
		"matching.suggest_threshold": m.SuggestThreshold,
	} {
		if t < 0 || t > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", name, t))
		}
	}
	if m.DateRangeDays < 1 {
		errs = append(errs, fmt.Errorf("matching.date_range_days must be positive, got %d", m.DateRangeDays))
	}
	if m.AutoLimit < 1 || m.SuggestPerItem < 1 || m.SuggestLimit < 1 || m.Workers < 1 {
		errs = append(errs, errors.New("matching limits and workers must be positive"))
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		errs = append(errs, errors.New("kafka.brokers and kafka.topic are required when kafka is enabled"))
	}
	if c.Admin.Username == "" {
		errs = append(errs, errors.New("admin.username is required"))
	}

	return errors.Join(errs...)
}

// FinderConfig returns the match finder settings.
func (c *Config) FinderConfig() matching.Config {
	m := c.Matching
	return matching.Config{
		AutoThreshold:    m.AutoThreshold,
		AutoLimit:        m.AutoLimit,
		SuggestThreshold: m.SuggestThreshold,
		SuggestPerItem:   m.SuggestPerItem,
		SuggestLimit:     m.SuggestLimit,
		Workers:          m.Workers,
	}
}

// CacheConfig returns the Redis suggestion cache settings.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TTL:      c.Redis.SuggestionTTL,
	}
}

// KafkaSinkConfig returns the Kafka notification publisher settings.
func (c *Config) KafkaSinkConfig() notify.KafkaConfig {
	return notify.KafkaConfig{
		Brokers:      c.Kafka.Brokers,
		Topic:        c.Kafka.Topic,
		WriteTimeout: c.Kafka.WriteTimeout,
	}
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
