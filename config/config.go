// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the buildingid configuration and sets up logging.
package config

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. BUILDINGID_STORE_PATH.
const EnvPrefix = "BUILDINGID"

// Config is the full configuration.
type Config struct {
	Gazetteer  GazetteerConfig  `yaml:"gazetteer" mapstructure:"gazetteer"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// GazetteerConfig selects the building registry.
type GazetteerConfig struct {
	// Path of a gazetteer yaml file. Empty uses the embedded one.
	Path        string `yaml:"path" mapstructure:"path"`
	DefaultArea string `yaml:"default_area" mapstructure:"default_area"`
}

// ValidationConfig configures the coordinate validator.
type ValidationConfig struct {
	ThresholdMeters float64 `yaml:"threshold_meters" mapstructure:"threshold_meters"`
}

// ExtractionConfig configures the text extractor.
type ExtractionConfig struct {
	ExclusionWindow int `yaml:"exclusion_window" mapstructure:"exclusion_window"`
}

// StoreConfig configures the result store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the local API.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
	// AllowedOrigins enables CORS for browser tools served elsewhere.
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// BatchConfig configures batch identification.
type BatchConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. An empty path looks
// for an optional buildingid.yaml in the working directory; an explicit path
// must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("buildingid")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("gazetteer.path", "")
	v.SetDefault("gazetteer.default_area", "PALM_JUMEIRAH")
	v.SetDefault("validation.threshold_meters", 400.0)
	v.SetDefault("extraction.exclusion_window", 150)
	v.SetDefault("store.path", "buildingid.duckdb")
	v.SetDefault("server.addr", "localhost:8080")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("batch.workers", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger. Logs go to stderr so that
// command output stays clean.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}

	zapCfg.Level.SetLevel(level)
	zapCfg.OutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}

	zap.ReplaceGlobals(logger)

	return nil
}
