package runner

import (
	"testing"

	"imgharvest/internal/config"
)

func TestParsePageURL(t *testing.T) {
	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"https://ex.com/page", "https://ex.com/page", false},
		{"http://ex.com", "http://ex.com", false},
		{"//ex.com/page", "https://ex.com/page", false},
		{"ftp://ex.com/a", "", true},
		{"", "", true},
		{"   ", "", true},
		{"/just/a/path", "", true},
	}
	for _, tc := range cases {
		got, err := parsePageURL(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parsePageURL(%q): expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parsePageURL(%q): %v", tc.raw, err)
		}
		if got.String() != tc.want {
			t.Fatalf("parsePageURL(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestBuildLogger(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "warning", "error"} {
		if _, err := buildLogger(config.LoggingConfig{Level: level}); err != nil {
			t.Fatalf("level %q: %v", level, err)
		}
	}
	if _, err := buildLogger(config.LoggingConfig{Level: "verbose"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewEngineValidatesLogging(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "nope"
	if _, err := NewEngine(cfg); err == nil {
		t.Fatal("expected error for bad log level")
	}
}
