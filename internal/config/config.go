package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the full configuration required to run a harvest.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Harvest HarvestConfig `yaml:"harvest"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Robots  RobotsConfig  `yaml:"robots"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// BrowserConfig controls the headless Chrome session.
type BrowserConfig struct {
	UserAgent       string `yaml:"user_agent"`
	Language        string `yaml:"language"`
	DisableHeadless bool   `yaml:"disable_headless"`
	ExecPath        string `yaml:"exec_path"`
	WindowWidth     int    `yaml:"window_width"`
	WindowHeight    int    `yaml:"window_height"`
}

// HarvestConfig tunes the scroll loop and readiness waits.
type HarvestConfig struct {
	SettleTimeout  Duration `yaml:"settle_timeout"`
	ScrollPause    Duration `yaml:"scroll_pause"`
	MaxScrollSteps int      `yaml:"max_scroll_steps"`
}

// FetchConfig controls the image download phase.
type FetchConfig struct {
	Concurrency    int               `yaml:"concurrency"`
	QueueSize      int               `yaml:"queue_size"`
	RequestTimeout Duration          `yaml:"request_timeout"`
	ProbeTimeout   Duration          `yaml:"probe_timeout"`
	MaxBodyBytes   int64             `yaml:"max_body_bytes"`
	UserAgent      string            `yaml:"user_agent"`
	Headers        map[string]string `yaml:"headers"`
	PerDomainDelay Duration          `yaml:"per_domain_delay"`
	RateLimit      RateLimitConfig   `yaml:"rate_limit"`
}

// RateLimitConfig applies a token bucket per domain during fetching.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// Enabled reports whether per-domain rate limiting is active.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && !r.Window.IsZero()
}

// RobotsConfig configures optional robots.txt handling for image fetches.
type RobotsConfig struct {
	Respect   bool     `yaml:"respect"`
	Overrides []string `yaml:"overrides"`
	UserAgent string   `yaml:"user_agent"`
	CacheTTL  Duration `yaml:"cache_ttl"`
}

// OutputConfig controls where downloaded images land.
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Browser: BrowserConfig{
			UserAgent:    "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			Language:     "fr-FR,fr",
			WindowWidth:  1366,
			WindowHeight: 900,
		},
		Harvest: HarvestConfig{
			SettleTimeout:  DurationFrom(10 * time.Second),
			ScrollPause:    DurationFrom(1 * time.Second),
			MaxScrollSteps: 5,
		},
		Fetch: FetchConfig{
			Concurrency:    8,
			QueueSize:      256,
			RequestTimeout: DurationFrom(10 * time.Second),
			ProbeTimeout:   DurationFrom(5 * time.Second),
			MaxBodyBytes:   20 * 1024 * 1024,
			UserAgent:      "imgharvest/1.0",
			Headers:        map[string]string{},
		},
		Robots: RobotsConfig{
			Respect:   false,
			Overrides: []string{},
			UserAgent: "imgharvest/1.0",
			CacheTTL:  DurationFrom(6 * time.Hour),
		},
		Output: OutputConfig{
			Directory: "images",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: false,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()
	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces required invariants for the harvester configuration.
func (c Config) Validate() error {
	if c.Harvest.MaxScrollSteps <= 0 {
		return fmt.Errorf("harvest.max_scroll_steps must be > 0 (got %d)", c.Harvest.MaxScrollSteps)
	}
	if c.Harvest.SettleTimeout.IsZero() {
		return errors.New("harvest.settle_timeout must be set")
	}
	if c.Harvest.ScrollPause.IsZero() {
		return errors.New("harvest.scroll_pause must be set")
	}
	if c.Fetch.Concurrency <= 0 {
		return fmt.Errorf("fetch.concurrency must be > 0 (got %d)", c.Fetch.Concurrency)
	}
	if c.Fetch.QueueSize <= 0 {
		return fmt.Errorf("fetch.queue_size must be > 0 (got %d)", c.Fetch.QueueSize)
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("fetch.max_body_bytes must be > 0 (got %d)", c.Fetch.MaxBodyBytes)
	}
	if rl := c.Fetch.RateLimit; rl.Requests < 0 {
		return fmt.Errorf("fetch.rate_limit.requests must be >= 0 (got %d)", rl.Requests)
	}
	if strings.TrimSpace(c.Browser.UserAgent) == "" {
		return errors.New("browser.user_agent must be set")
	}
	if strings.TrimSpace(c.Output.Directory) == "" {
		return errors.New("output.directory must be set")
	}
	if c.Robots.Respect && strings.TrimSpace(c.Robots.UserAgent) == "" {
		return errors.New("robots.user_agent must be set when robots.respect is true")
	}
	return nil
}

func (c *Config) normalise() {
	c.Browser.UserAgent = strings.TrimSpace(c.Browser.UserAgent)
	c.Browser.ExecPath = strings.TrimSpace(c.Browser.ExecPath)
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	c.Robots.UserAgent = strings.TrimSpace(c.Robots.UserAgent)
	c.Output.Directory = strings.TrimSpace(c.Output.Directory)

	if c.Fetch.Headers == nil {
		c.Fetch.Headers = map[string]string{}
	}
	if len(c.Robots.Overrides) > 0 {
		c.Robots.Overrides = dedupeLower(c.Robots.Overrides)
	}
}

func dedupeLower(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := unique[v]; ok {
			continue
		}
		unique[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	sort.Strings(cleaned)
	return cleaned
}
