package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Harvest.MaxScrollSteps != 5 {
		t.Fatalf("expected 5 scroll steps, got %d", cfg.Harvest.MaxScrollSteps)
	}
	if cfg.Output.Directory != "images" {
		t.Fatalf("expected images output dir, got %q", cfg.Output.Directory)
	}
}

func TestLoadFromReaderOverrides(t *testing.T) {
	yaml := `
harvest:
  settle_timeout: 3s
  scroll_pause: 500ms
  max_scroll_steps: 8
fetch:
  concurrency: 2
output:
  directory: out
robots:
  respect: true
  overrides: ["EX.com", "ex.com", " "]
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Harvest.SettleTimeout.Duration != 3*time.Second {
		t.Fatalf("settle timeout = %v", cfg.Harvest.SettleTimeout.Duration)
	}
	if cfg.Harvest.ScrollPause.Duration != 500*time.Millisecond {
		t.Fatalf("scroll pause = %v", cfg.Harvest.ScrollPause.Duration)
	}
	if cfg.Harvest.MaxScrollSteps != 8 {
		t.Fatalf("max steps = %d", cfg.Harvest.MaxScrollSteps)
	}
	if cfg.Fetch.Concurrency != 2 {
		t.Fatalf("concurrency = %d", cfg.Fetch.Concurrency)
	}
	if cfg.Output.Directory != "out" {
		t.Fatalf("output dir = %q", cfg.Output.Directory)
	}
	if len(cfg.Robots.Overrides) != 1 || cfg.Robots.Overrides[0] != "ex.com" {
		t.Fatalf("overrides = %v", cfg.Robots.Overrides)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	if _, err := LoadFromReader(strings.NewReader("nonsense: true\n")); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Harvest.MaxScrollSteps = 0 },
		func(c *Config) { c.Harvest.SettleTimeout = Duration{} },
		func(c *Config) { c.Fetch.Concurrency = -1 },
		func(c *Config) { c.Fetch.MaxBodyBytes = 0 },
		func(c *Config) { c.Browser.UserAgent = " " },
		func(c *Config) { c.Output.Directory = "" },
		func(c *Config) { c.Robots.Respect = true; c.Robots.UserAgent = "" },
	}
	for i, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		cfg.normalise()
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestDurationYAMLForms(t *testing.T) {
	yaml := `
harvest:
  settle_timeout: 15
  scroll_pause: 1s
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Harvest.SettleTimeout.Duration != 15*time.Second {
		t.Fatalf("numeric seconds not honoured: %v", cfg.Harvest.SettleTimeout.Duration)
	}
}
