package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"imgharvest/internal/config"
	"imgharvest/internal/extract"
	"imgharvest/internal/imgurl"
	"imgharvest/pkg/types"
)

// scrollFraction is the portion of the viewport height advanced per step.
const scrollFraction = 0.8

// Surface is the render-surface collaborator the harvester drives. It is a
// single stateful browser session and must only be used from one goroutine.
type Surface interface {
	ClearState() error
	Navigate(url string) error
	WaitReady(selector string, timeout time.Duration) error
	Snapshot() (string, error)
	ReadMetrics() (types.ScrollState, error)
	ScrollBy(fraction float64) error
	DismissConsent() (bool, error)
	Title() (string, error)
	Location() (string, error)
}

// Harvester accumulates the image URL set of a dynamically rendered page by
// repeatedly sampling DOM state while scrolling. The loop is bounded: it
// terminates after MaxScrollSteps even when the page keeps growing.
type Harvester struct {
	cfg    config.HarvestConfig
	logger *slog.Logger
}

// New constructs a harvester.
func New(cfg config.HarvestConfig, logger *slog.Logger) *Harvester {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxScrollSteps <= 0 {
		cfg.MaxScrollSteps = 5
	}
	if cfg.ScrollPause.IsZero() {
		cfg.ScrollPause = config.DurationFrom(time.Second)
	}
	if cfg.SettleTimeout.IsZero() {
		cfg.SettleTimeout = config.DurationFrom(10 * time.Second)
	}
	return &Harvester{cfg: cfg, logger: logger}
}

// Harvest navigates the surface to pageURL and returns the accumulated set
// of resolved image URLs. Waits that time out degrade to warnings; only
// navigation failure and context cancellation abort the run.
func (h *Harvester) Harvest(ctx context.Context, surface Surface, pageURL *url.URL) (*types.HarvestResult, error) {
	if pageURL == nil {
		return nil, fmt.Errorf("page URL is nil")
	}
	logger := h.logger.With("url", pageURL.String())

	if err := surface.ClearState(); err != nil {
		logger.Warn("clearing browser state failed", "error", err)
	}

	logger.Info("loading page")
	if err := surface.Navigate(pageURL.String()); err != nil {
		return nil, err
	}

	settle := h.cfg.SettleTimeout.Duration
	if err := surface.WaitReady("body", settle); err != nil {
		logger.Warn("page structure wait timed out", "error", err)
	}

	if clicked, err := surface.DismissConsent(); err != nil {
		logger.Warn("consent banner interaction failed", "error", err)
	} else if clicked {
		logger.Info("accepted consent banner")
		if err := sleepCtx(ctx, h.cfg.ScrollPause.Duration); err != nil {
			return nil, err
		}
	}

	if err := surface.WaitReady("img", settle); err != nil {
		logger.Warn("image presence wait timed out", "error", err)
	}

	// Grace interval for deferred script execution before the first sample.
	if err := sleepCtx(ctx, 2*h.cfg.ScrollPause.Duration); err != nil {
		return nil, err
	}

	logger.Info("scrolling and extracting images")
	acc := newAccumulator(pageURL, logger)

	lastHeight := 0.0
	if m, err := surface.ReadMetrics(); err != nil {
		logger.Warn("initial metrics read failed", "error", err)
	} else {
		lastHeight = m.DocumentHeight
	}

	steps := 0
	for steps < h.cfg.MaxScrollSteps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		before := acc.Len()
		h.sample(surface, acc, logger)
		logger.Info("extraction pass complete", "new", acc.Len()-before, "total", acc.Len(), "step", steps)

		if err := surface.ScrollBy(scrollFraction); err != nil {
			logger.Warn("scroll failed", "error", err)
		}
		if err := sleepCtx(ctx, h.cfg.ScrollPause.Duration); err != nil {
			return nil, err
		}

		m, err := surface.ReadMetrics()
		if err != nil {
			logger.Warn("metrics read failed", "error", err)
			steps++
			continue
		}
		m.StepsTaken = steps

		// Stop when the document stopped growing and there is no room left
		// to scroll. One extra delayed pass catches trailing async loads.
		if m.DocumentHeight == lastHeight && m.AtBottom() {
			if err := sleepCtx(ctx, 2*h.cfg.ScrollPause.Duration); err != nil {
				return nil, err
			}
			h.sample(surface, acc, logger)
			break
		}

		lastHeight = m.DocumentHeight
		steps++
	}

	title, _ := surface.Title()
	finalURL, _ := surface.Location()
	logger.Info("harvest complete",
		"title", title,
		"final_url", finalURL,
		"scroll_steps", steps,
		"images", acc.Len(),
	)

	return &types.HarvestResult{
		PageURL:     pageURL,
		URLs:        acc.URLs(),
		Steps:       steps,
		PageTitle:   title,
		FinalURL:    finalURL,
		HarvestedAt: time.Now(),
	}, nil
}

// sample extracts the current snapshot and folds it into the accumulator.
// Extraction failures degrade to warnings so one bad snapshot cannot abort
// the run.
func (h *Harvester) sample(surface Surface, acc *accumulator, logger *slog.Logger) {
	snapshot, err := surface.Snapshot()
	if err != nil {
		logger.Warn("snapshot capture failed", "error", err)
		return
	}
	refs, err := extract.Snapshot(snapshot)
	if err != nil {
		logger.Warn("snapshot parse failed", "error", err)
		return
	}
	acc.Add(refs)
}

// accumulator is the monotonically growing set of resolved image URLs for
// one page run. It never shrinks; references are deduplicated post-resolution
// by exact string equality.
type accumulator struct {
	base   *url.URL
	logger *slog.Logger
	seen   map[string]struct{}
	urls   []string
}

func newAccumulator(base *url.URL, logger *slog.Logger) *accumulator {
	return &accumulator{
		base:   base,
		logger: logger,
		seen:   make(map[string]struct{}),
	}
}

func (a *accumulator) Add(refs []string) {
	for _, ref := range refs {
		resolved, err := imgurl.Resolve(ref, a.base)
		if err != nil {
			a.logger.Debug("dropping unresolvable reference", "ref", ref, "error", err)
			continue
		}
		if _, ok := a.seen[resolved]; ok {
			continue
		}
		a.seen[resolved] = struct{}{}
		a.urls = append(a.urls, resolved)
	}
}

func (a *accumulator) Len() int { return len(a.urls) }

// URLs returns the accumulated set in discovery order.
func (a *accumulator) URLs() []string {
	out := make([]string, len(a.urls))
	copy(out, a.urls)
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
