// Package config loads service settings from a YAML file with environment
// overrides on top.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the ingestion service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Ingest   IngestConfig   `yaml:"ingest"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DatabaseConfig locates the SQLite dataset store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// IngestConfig carries the default ingestion tunables. Per-request values
// override the header-skip counts.
type IngestConfig struct {
	SkipHeaderCmb int `yaml:"skipHeaderCmb"`
	SkipHeaderAmp int `yaml:"skipHeaderAmp"`
	SkipHeaderOpt int `yaml:"skipHeaderOpt"`

	// Linkage tolerances; zero values use the built-in defaults.
	FreqConsistencyRTol float64 `yaml:"freqConsistencyRTol"`
	PointMatchTol       float64 `yaml:"pointMatchTol"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CAMPBELL_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Database: DatabaseConfig{
			Path: "data/campbell.db",
		},
		Ingest: IngestConfig{
			SkipHeaderCmb: 1,
			SkipHeaderAmp: 5,
			SkipHeaderOpt: 1,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CAMPBELL_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("CAMPBELL_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("CAMPBELL_GRACEFUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.GracefulTimeout = d
		}
	}
	if v := os.Getenv("CAMPBELL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CAMPBELL_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("CAMPBELL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("CAMPBELL_SKIP_HEADER_CMB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.SkipHeaderCmb = n
		}
	}
	if v := os.Getenv("CAMPBELL_SKIP_HEADER_AMP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.SkipHeaderAmp = n
		}
	}
	if v := os.Getenv("CAMPBELL_SKIP_HEADER_OPT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.SkipHeaderOpt = n
		}
	}
	if v := os.Getenv("CAMPBELL_FREQ_CONSISTENCY_RTOL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Ingest.FreqConsistencyRTol = f
		}
	}
	if v := os.Getenv("CAMPBELL_POINT_MATCH_TOL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Ingest.PointMatchTol = f
		}
	}
}
