package runner

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"imgharvest/internal/browser"
	"imgharvest/internal/config"
	"imgharvest/internal/fetch"
	"imgharvest/internal/harvest"
	"imgharvest/internal/robots"
	"imgharvest/internal/store"
	"imgharvest/pkg/types"
)

// Engine sequences a full page run: acquire the render surface, harvest the
// image URL set, release the surface, fetch everything, report.
type Engine struct {
	cfg    config.Config
	logger *slog.Logger
}

// NewEngine builds an engine from configuration.
func NewEngine(cfg config.Config) (*Engine, error) {
	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// Run executes one page run. Per-URL download failures are reported but do
// not make the run fail; only surface acquisition, navigation, and
// cancellation do.
func (e *Engine) Run(ctx context.Context, rawURL string) error {
	pageURL, err := parsePageURL(rawURL)
	if err != nil {
		return err
	}

	result, err := e.harvest(ctx, pageURL)
	if err != nil {
		return err
	}
	e.logger.Info("found unique image URLs", "count", len(result.URLs))

	records, err := e.fetchAll(ctx, result.URLs)
	if err != nil {
		return err
	}

	e.report(records)
	return ctx.Err()
}

// harvest owns the browser session scope: the surface is acquired here and
// released before any fetching starts, even when harvesting fails.
func (e *Engine) harvest(ctx context.Context, pageURL *url.URL) (*types.HarvestResult, error) {
	session, err := browser.NewSession(ctx, e.cfg.Browser, e.logger)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	h := harvest.New(e.cfg.Harvest, e.logger)
	return h.Harvest(ctx, session, pageURL)
}

func (e *Engine) fetchAll(ctx context.Context, urls []string) ([]types.DownloadRecord, error) {
	st, err := store.New(e.cfg.Output.Directory)
	if err != nil {
		return nil, err
	}

	client := fetch.NewClient(e.cfg.Fetch)
	var agent *robots.Agent
	if e.cfg.Robots.Respect {
		agent = robots.NewAgent(e.cfg.Robots, client.HTTP())
	}

	fetcher := fetch.NewFetcher(e.cfg.Fetch, client, st, agent, e.logger)
	return fetcher.FetchAll(ctx, urls), nil
}

func (e *Engine) report(records []types.DownloadRecord) {
	counts := fetch.Summarize(records)
	e.logger.Info("run complete",
		"total", len(records),
		"saved", counts[types.OutcomeSaved],
		"duplicates_on_disk", counts[types.OutcomeSkippedDuplicateOnDisk],
		"vectors_skipped", counts[types.OutcomeSkippedVector],
		"data_uris_skipped", counts[types.OutcomeSkippedDataURI],
		"failed", counts[types.OutcomeFailed],
		"directory", e.cfg.Output.Directory,
	)
	for _, r := range records {
		if r.Outcome == types.OutcomeFailed {
			e.logger.Warn("download failed", "url", r.URL, "reason", r.Reason)
		}
	}
}

func parsePageURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("page URL must not be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse page URL %q: %w", raw, err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("page URL %q missing host", raw)
	}
	return parsed, nil
}

func buildLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unsupported log level %q", cfg.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Structured {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler), nil
}
