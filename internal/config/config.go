package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/resizer/internal/logger"
	"github.com/sevigo/resizer/internal/resize"
)

// Config holds the application's configuration values.
type Config struct {
	Server  ServerConfig
	Resize  ResizeConfig
	Cache   CacheConfig
	Broker  BrokerConfig
	Logging logger.Config
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string
	Port            string
	MaxBodyBytes    int64
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// ResizeConfig configures the worker lane and the image pipeline.
type ResizeConfig struct {
	QueueCapacity int
	DefaultWidth  uint16
	DefaultHeight uint16
	Filter        string
	JPEGQuality   int
	// MaxPixels bounds width*height of both the decoded source and the output.
	MaxPixels int64
}

// CacheConfig selects and configures the result cache.
type CacheConfig struct {
	Backend    string
	TTL        time.Duration
	MaxEntries int
	RedisURL   string
	KeyPrefix  string
}

// BrokerConfig configures the optional AMQP bridge. An empty URL disables it.
type BrokerConfig struct {
	URL           string
	RequestQueue  string
	ResponseQueue string
	Prefetch      int
}

// Enabled reports whether the bridge should be started.
func (b BrokerConfig) Enabled() bool {
	return b.URL != ""
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates the result. It uses the Viper
// library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	return load(viper.New(), ".env")
}

func load(v *viper.Viper, file string) (*Config, error) {
	v.SetConfigFile(file)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			slog.Error("failed to read config file", "file", file, "error", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetString("SERVER_PORT"),
			MaxBodyBytes:    v.GetInt64("MAX_BODY_BYTES"),
			RequestTimeout:  v.GetDuration("REQUEST_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Resize: ResizeConfig{
			QueueCapacity: v.GetInt("QUEUE_CAPACITY"),
			DefaultWidth:  v.GetUint16("DEFAULT_WIDTH"),
			DefaultHeight: v.GetUint16("DEFAULT_HEIGHT"),
			Filter:        v.GetString("RESIZE_FILTER"),
			JPEGQuality:   v.GetInt("JPEG_QUALITY"),
			MaxPixels:     v.GetInt64("MAX_PIXELS"),
		},
		Cache: CacheConfig{
			Backend:    v.GetString("CACHE_BACKEND"),
			TTL:        v.GetDuration("CACHE_TTL"),
			MaxEntries: v.GetInt("CACHE_MAX_ENTRIES"),
			RedisURL:   v.GetString("REDIS_URL"),
			KeyPrefix:  v.GetString("CACHE_KEY_PREFIX"),
		},
		Broker: BrokerConfig{
			URL:           v.GetString("AMQP_URL"),
			RequestQueue:  v.GetString("AMQP_REQUEST_QUEUE"),
			ResponseQueue: v.GetString("AMQP_RESPONSE_QUEUE"),
			Prefetch:      v.GetInt("AMQP_PREFETCH"),
		},
		Logging: logger.Config{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			Output: v.GetString("LOG_OUTPUT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("MAX_BODY_BYTES", 10<<20)
	v.SetDefault("REQUEST_TIMEOUT", 60*time.Second)
	v.SetDefault("SHUTDOWN_TIMEOUT", 30*time.Second)

	v.SetDefault("QUEUE_CAPACITY", 1)
	v.SetDefault("DEFAULT_WIDTH", 180)
	v.SetDefault("DEFAULT_HEIGHT", 180)
	v.SetDefault("RESIZE_FILTER", "lanczos")
	v.SetDefault("JPEG_QUALITY", 95)
	v.SetDefault("MAX_PIXELS", resize.DefaultMaxPixels)

	v.SetDefault("CACHE_BACKEND", "none")
	v.SetDefault("CACHE_TTL", 10*time.Minute)
	v.SetDefault("CACHE_MAX_ENTRIES", 256)
	v.SetDefault("CACHE_KEY_PREFIX", "resizer")

	v.SetDefault("AMQP_REQUEST_QUEUE", "requests")
	v.SetDefault("AMQP_RESPONSE_QUEUE", "responses")
	v.SetDefault("AMQP_PREFETCH", 1)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_OUTPUT", "stdout")
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("SERVER_PORT must be set")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.Server.MaxBodyBytes)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.Server.RequestTimeout)
	}
	if c.Resize.QueueCapacity < 1 {
		return fmt.Errorf("QUEUE_CAPACITY must be at least 1, got %d", c.Resize.QueueCapacity)
	}
	if c.Resize.JPEGQuality < 1 || c.Resize.JPEGQuality > 100 {
		return fmt.Errorf("JPEG_QUALITY must be between 1 and 100, got %d", c.Resize.JPEGQuality)
	}
	if c.Resize.MaxPixels <= 0 {
		return fmt.Errorf("MAX_PIXELS must be positive, got %d", c.Resize.MaxPixels)
	}
	if _, err := resize.ParseFilter(c.Resize.Filter); err != nil {
		return fmt.Errorf("invalid RESIZE_FILTER: %w", err)
	}

	switch c.Cache.Backend {
	case "none", "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			return errors.New("REDIS_URL must be set for the redis cache backend")
		}
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND: %s", c.Cache.Backend)
	}

	if c.Broker.Enabled() {
		if c.Broker.RequestQueue == "" || c.Broker.ResponseQueue == "" {
			return errors.New("AMQP_REQUEST_QUEUE and AMQP_RESPONSE_QUEUE must be set when AMQP_URL is set")
		}
		if c.Broker.Prefetch < 1 {
			return fmt.Errorf("AMQP_PREFETCH must be at least 1, got %d", c.Broker.Prefetch)
		}
	}
	return nil
}
