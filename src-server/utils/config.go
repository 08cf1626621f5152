package utils

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type rawConfig struct {
	Port                     string        `env:"PORT" envDefault:"8080"`
	DatabasePath             string        `env:"DATABASE_PATH" envDefault:"./sqlite.db"`
	JWTSecret                string        `env:"JWT_SECRET"`
	UploadDir                string        `env:"UPLOAD_DIR" envDefault:"./public/uploads"`
	PublicBaseURL            string        `env:"PUBLIC_BASE_URL"`
	CacheSize                int           `env:"CACHE_SIZE" envDefault:"1024"`
	PageSize                 int           `env:"PAGE_SIZE" envDefault:"3"`
	Timezone                 string        `env:"TIMEZONE"`
	MetricCollectionInterval time.Duration `env:"METRIC_COLLECTION_INTERVAL" envDefault:"15s"`
	ShutdownTimeout          time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

type Config struct {
	port         string
	databasePath string

	jwtSecret string

	uploadDir     string
	publicBaseURL string

	cacheSize int
	pageSize  int
	location  *time.Location

	metricCollectionInterval time.Duration
	shutdownTimeout          time.Duration
}

// Read the config from the environment, exiting on invalid values.
func NewConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	return config
}

func LoadConfig() (*Config, error) {
	var raw rawConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	switch {
	case raw.Port == "":
		return nil, fmt.Errorf("PORT is blank")
	case raw.DatabasePath == "":
		return nil, fmt.Errorf("DATABASE_PATH is blank")
	case raw.CacheSize < 1:
		return nil, fmt.Errorf("CACHE_SIZE must be at least 1, got %d", raw.CacheSize)
	case raw.PageSize < 1:
		return nil, fmt.Errorf("PAGE_SIZE must be at least 1, got %d", raw.PageSize)
	case raw.MetricCollectionInterval <= 0:
		return nil, fmt.Errorf("METRIC_COLLECTION_INTERVAL must be positive, got %s", raw.MetricCollectionInterval)
	case raw.ShutdownTimeout <= 0:
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", raw.ShutdownTimeout)
	}

	if raw.JWTSecret == "" {
		slog.Warn("JWT_SECRET is not set")
		raw.JWTSecret = "secret"
	}

	var location *time.Location
	switch raw.Timezone {
	case "":
		slog.Warn("TIMEZONE is not set, using local timezone", "timezone", time.Local)
		location = time.Local
	case "UTC":
		location = time.UTC
	default:
		var err error
		if location, err = time.LoadLocation(raw.Timezone); err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE %q: %w", raw.Timezone, err)
		}
	}

	slog.Debug("env",
		"PORT", raw.Port,
		"DATABASE_PATH", raw.DatabasePath,
		"UPLOAD_DIR", raw.UploadDir,
		"CACHE_SIZE", raw.CacheSize,
		"PAGE_SIZE", raw.PageSize,
		"TIMEZONE", location,
	)

	return &Config{
		port:                     raw.Port,
		databasePath:             raw.DatabasePath,
		jwtSecret:                raw.JWTSecret,
		uploadDir:                filepath.Clean(raw.UploadDir),
		publicBaseURL:            raw.PublicBaseURL,
		cacheSize:                raw.CacheSize,
		pageSize:                 raw.PageSize,
		location:                 location,
		metricCollectionInterval: raw.MetricCollectionInterval,
		shutdownTimeout:          raw.ShutdownTimeout,
	}, nil
}

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get DATABASE_PATH env, default to ./sqlite.db
func (c *Config) GetDatabasePath() string {
	return c.databasePath
}

// Get JWT_SECRET env
func (c *Config) GetJWTSecret() string {
	return c.jwtSecret
}

// Get UPLOAD_DIR env, default to ./public/uploads
func (c *Config) GetUploadDir() string {
	return c.uploadDir
}

// Get PUBLIC_BASE_URL env; blank means uploads are served as relative URLs
func (c *Config) GetPublicBaseURL() string {
	return c.publicBaseURL
}

// Get CACHE_SIZE env, default to 1024 entries
func (c *Config) GetCacheSize() int {
	return c.cacheSize
}

// Get PAGE_SIZE env, default to 3 categories per page
func (c *Config) GetPageSize() int {
	return c.pageSize
}

// Get TIMEZONE env
func (c *Config) GetLocation() *time.Location {
	return c.location
}

// Get METRIC_COLLECTION_INTERVAL env, default to 15s
func (c *Config) GetMetricCollectionInterval() time.Duration {
	return c.metricCollectionInterval
}

// Get SHUTDOWN_TIMEOUT env, default to 5s
func (c *Config) GetShutdownTimeout() time.Duration {
	return c.shutdownTimeout
}
