package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
	} `yaml:"telegram"`
	Rate struct {
		FeedURL     string        `yaml:"feed_url"`
		Timeout     time.Duration `yaml:"timeout"`
		Fallback    float64       `yaml:"fallback"`
		StaticValue float64       `yaml:"static_value"` // > 0 replaces the feed
	} `yaml:"rate"`
	Session struct {
		IdleTimeout time.Duration `yaml:"idle_timeout"`
	} `yaml:"session"`
	History struct {
		Capacity    int `yaml:"capacity"`
		RenderLimit int `yaml:"render_limit"`
		MaxChars    int `yaml:"max_chars"`
	} `yaml:"history"`
	Schedule struct {
		RateWarmCron string `yaml:"rate_warm_cron"`
		StatsCron    string `yaml:"stats_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Session.IdleTimeout = -1 // unset marker, 0 is a valid "never"

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("RATE_FEED_URL"); v != "" {
		cfg.Rate.FeedURL = v
	}
	if v := os.Getenv("RATE_FALLBACK"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("RATE_FALLBACK: %w", err)
		}
		cfg.Rate.Fallback = f
	}
	if v := os.Getenv("RATE_STATIC"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("RATE_STATIC: %w", err)
		}
		cfg.Rate.StaticValue = f
	}
	if v := os.Getenv("RATE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("RATE_TIMEOUT: %w", err)
		}
		cfg.Rate.Timeout = d
	}
	if v := os.Getenv("SESSION_IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SESSION_IDLE_TIMEOUT: %w", err)
		}
		cfg.Session.IdleTimeout = d
	}
	if v := os.Getenv("HISTORY_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("HISTORY_CAPACITY: %w", err)
		}
		cfg.History.Capacity = n
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}

	// Defaults
	if cfg.Rate.FeedURL == "" {
		cfg.Rate.FeedURL = "https://www.cbr-xml-daily.ru/daily_json.js"
	}
	if cfg.Rate.Timeout == 0 {
		cfg.Rate.Timeout = 5 * time.Second
	}
	if cfg.Rate.Fallback == 0 {
		cfg.Rate.Fallback = 80.0
	}
	if cfg.Session.IdleTimeout < 0 {
		cfg.Session.IdleTimeout = 30 * time.Minute
	}
	if cfg.History.Capacity == 0 {
		cfg.History.Capacity = 50
	}
	if cfg.History.RenderLimit == 0 {
		cfg.History.RenderLimit = 10
	}
	if cfg.History.MaxChars == 0 {
		cfg.History.MaxChars = 4000
	}
	if cfg.Schedule.RateWarmCron == "" {
		cfg.Schedule.RateWarmCron = "0 1 0 * * *"
	}
	if cfg.Schedule.StatsCron == "" {
		cfg.Schedule.StatsCron = "0 0 * * * *"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Rate.Fallback <= 0 {
		return fmt.Errorf("rate.fallback must be positive")
	}
	if c.Rate.StaticValue < 0 || math.IsNaN(c.Rate.StaticValue) || math.IsInf(c.Rate.StaticValue, 0) {
		return fmt.Errorf("rate.static_value must be a finite non-negative number")
	}
	if c.Rate.Timeout <= 0 {
		return fmt.Errorf("rate.timeout must be positive")
	}
	if c.History.Capacity <= 0 {
		return fmt.Errorf("history.capacity must be positive")
	}
	if c.History.RenderLimit <= 0 || c.History.RenderLimit > c.History.Capacity {
		return fmt.Errorf("history.render_limit must be in [1, history.capacity]")
	}
	if c.History.MaxChars <= 0 || c.History.MaxChars > 4096 {
		return fmt.Errorf("history.max_chars must be in [1, 4096]")
	}
	return nil
}
