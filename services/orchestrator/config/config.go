// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the orchestrator's tunables from an optional YAML
// file, then applies environment variable overrides on top. Every knob has
// a default, so an empty environment boots a working service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can carry values like "10s".
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config holds every orchestrator tunable.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	RateLimit struct {
		Window      Duration `yaml:"window"`
		MaxRequests int      `yaml:"max_requests"`
	} `yaml:"rate_limit"`

	Cache struct {
		TTL Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Context struct {
		MaxEntries          int      `yaml:"max_entries"`
		MaxAge              Duration `yaml:"max_age"`
		SimilarityThreshold float64  `yaml:"similarity_threshold"`
	} `yaml:"context"`

	Retry struct {
		MaxAttempts int      `yaml:"max_attempts"`
		BaseDelay   Duration `yaml:"base_delay"`
		MaxDelay    Duration `yaml:"max_delay"`
	} `yaml:"retry"`

	Scrape struct {
		MaxChars   int    `yaml:"max_chars"`
		ServiceURL string `yaml:"service_url"`
	} `yaml:"scrape"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8010"
	cfg.RateLimit.Window = Duration{10 * time.Second}
	cfg.RateLimit.MaxRequests = 4
	cfg.Cache.TTL = Duration{10 * time.Minute}
	cfg.Context.MaxEntries = 500
	cfg.Context.MaxAge = Duration{30 * time.Minute}
	cfg.Context.SimilarityThreshold = 0.25
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.BaseDelay = Duration{time.Second}
	cfg.Retry.MaxDelay = Duration{10 * time.Second}
	cfg.Scrape.MaxChars = 25000
	return cfg
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped if path is empty or the file does not exist), then
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Optional file; fall through to env overrides.
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	envString("ORCHESTRATOR_PORT", &c.Server.Port)
	envDuration("RATE_LIMIT_WINDOW", &c.RateLimit.Window)
	envInt("RATE_LIMIT_MAX_REQUESTS", &c.RateLimit.MaxRequests)
	envDuration("ANSWER_CACHE_TTL", &c.Cache.TTL)
	envInt("CONTEXT_MAX_ENTRIES", &c.Context.MaxEntries)
	envDuration("CONTEXT_MAX_AGE", &c.Context.MaxAge)
	envFloat("CONTEXT_SIMILARITY_THRESHOLD", &c.Context.SimilarityThreshold)
	envInt("LLM_RETRY_MAX_ATTEMPTS", &c.Retry.MaxAttempts)
	envDuration("LLM_RETRY_BASE_DELAY", &c.Retry.BaseDelay)
	envDuration("LLM_RETRY_MAX_DELAY", &c.Retry.MaxDelay)
	envInt("SCRAPE_MAX_CHARS", &c.Scrape.MaxChars)
	envString("SCRAPER_SERVICE_URL", &c.Scrape.ServiceURL)
}

func (c *Config) validate() error {
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit.max_requests must be positive, got %d", c.RateLimit.MaxRequests)
	}
	if c.RateLimit.Window.Duration <= 0 {
		return fmt.Errorf("rate_limit.window must be positive, got %s", c.RateLimit.Window)
	}
	if c.Cache.TTL.Duration <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Context.SimilarityThreshold < 0 || c.Context.SimilarityThreshold > 1 {
		return fmt.Errorf("context.similarity_threshold must be in [0,1], got %g", c.Context.SimilarityThreshold)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
