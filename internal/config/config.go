// Package config layers configuration from defaults, an optional YAML
// file, RECALLBOX_ environment variables, and command-line flags, in that
// order of increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "RECALLBOX_"

// Config holds the runtime settings for the recallbox server.
type Config struct {
	Listen   string `koanf:"listen" validate:"required"`
	DB       string `koanf:"db" validate:"required"`
	Timezone string `koanf:"timezone" validate:"required"`
	Repos    string `koanf:"repos" validate:"required"`
	Sync     bool   `koanf:"sync"`
}

// Flags returns the flag set the binary parses. Flag defaults double as
// the configuration defaults.
func Flags() *pflag.FlagSet {
	f := pflag.NewFlagSet("recallbox", pflag.ContinueOnError)
	f.String("config", "", "Path to an optional YAML config file")
	f.String("listen", ":8080", "Address for the HTTP API to listen on")
	f.String("db", "recallbox.db", "Path to the SQLite database file")
	f.String("timezone", "UTC", "IANA timezone for calendar boundaries (due windows, weeks, heatmap days)")
	f.String("repos", "repos", "Directory git catalog sources are mirrored into")
	f.Bool("sync", false, "Sync catalog sources on startup")
	return f
}

// Load builds the configuration from the parsed flag set.
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := f.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flag config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return &cfg, nil
}

// Location resolves the configured timezone. Load already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
