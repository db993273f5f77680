// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Store    StoreConfig    `mapstructure:"store"`
	Resync   ResyncConfig   `mapstructure:"resync"`
	Session  SessionConfig  `mapstructure:"session"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// Realtime feed drivers.
const (
	DriverPostgres  = "postgres"
	DriverWebsocket = "websocket"
)

// RealtimeConfig selects and configures the change feed.
type RealtimeConfig struct {
	Driver         string        `mapstructure:"driver"`
	URL            string        `mapstructure:"url"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// StorageConfig holds the S3-compatible bucket used for user assets.
type StorageConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
}

// Enabled reports whether enough is configured to reach the bucket.
func (s *StorageConfig) Enabled() bool {
	return s.Bucket != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// OracleConfig holds the vision model used to verify match screenshots.
type OracleConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// StoreConfig tunes the reconciling store.
type StoreConfig struct {
	ToastDuration    time.Duration `mapstructure:"toast_duration"`
	GlobalRoom       string        `mapstructure:"global_room"`
	LeaderboardLimit int           `mapstructure:"leaderboard_limit"`
	FallbackMessage  string        `mapstructure:"fallback_message"`
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`
}

// ResyncConfig controls the periodic full refresh. A zero interval disables it.
type ResyncConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// SessionConfig lets the headless daemon act on behalf of one user.
type SessionConfig struct {
	UserID string `mapstructure:"user_id"`
	Token  string `mapstructure:"token"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DATABASE_HOST, STORAGE_BUCKET, ORACLE_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindSecrets(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	switch c.Realtime.Driver {
	case DriverPostgres:
	case DriverWebsocket:
		if c.Realtime.URL == "" {
			return fmt.Errorf("realtime.url is required for the %s driver", DriverWebsocket)
		}
	default:
		return fmt.Errorf("unknown realtime driver %q", c.Realtime.Driver)
	}
	if c.Store.ToastDuration <= 0 {
		return fmt.Errorf("store.toast_duration must be positive")
	}
	return nil
}

// secretKeys have no default and usually come from the environment only.
var secretKeys = []string{
	"database.password",
	"storage.access_key_id",
	"storage.secret_access_key",
	"storage.endpoint",
	"storage.public_base_url",
	"oracle.api_key",
	"oracle.endpoint",
	"realtime.url",
	"session.user_id",
	"session.token",
}

// bindSecrets makes env-only keys visible to Unmarshal, which only sees keys viper
// already knows from a default or the config file.
func bindSecrets(v *viper.Viper) error {
	for _, key := range secretKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "arena")
	v.SetDefault("database.name", "arena")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("realtime.driver", DriverPostgres)
	v.SetDefault("realtime.reconnect_delay", "3s")

	v.SetDefault("storage.bucket", "avatars")
	v.SetDefault("storage.region", "auto")

	v.SetDefault("oracle.model", "gemini-1.5-flash")
	v.SetDefault("oracle.timeout", "30s")

	// Store defaults
	v.SetDefault("store.toast_duration", "4s")
	v.SetDefault("store.global_room", "global")
	v.SetDefault("store.leaderboard_limit", 100)
	v.SetDefault("store.fallback_message", "Could not complete request. Please try again.")
	v.SetDefault("store.lock_timeout", "10s")

	v.SetDefault("resync.interval", "0s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}
