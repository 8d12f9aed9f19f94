package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"imgharvest/internal/config"
	"imgharvest/pkg/types"
)

// maskWebdriverJS hides the automation marker some sites use to gate content.
const maskWebdriverJS = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// Session owns one headless Chrome tab for the duration of a page run. The
// tab context derives from the parent passed to NewSession, so cancelling the
// parent aborts any in-flight browser action. A Session is not safe for
// concurrent use; the harvester drives it strictly sequentially.
type Session struct {
	ctx     context.Context
	cancels []context.CancelFunc
	logger  *slog.Logger
}

// NewSession launches a browser and verifies it is usable. A failure here is
// fatal to the run: there is no degraded mode without a render surface.
func NewSession(parent context.Context, cfg config.BrowserConfig, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !cfg.DisableHeadless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("enable-automation", false),
	)
	if ua := strings.TrimSpace(cfg.UserAgent); ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}
	if lang := strings.TrimSpace(cfg.Language); lang != "" {
		opts = append(opts, chromedp.Flag("lang", lang))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:     tabCtx,
		cancels: []context.CancelFunc{tabCancel, allocCancel},
		logger:  logger,
	}

	// Starting the browser eagerly surfaces acquisition failures before any
	// page work begins. The masking script runs on every new document.
	if err := chromedp.Run(tabCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(maskWebdriverJS).Do(ctx)
			return err
		}),
	); err != nil {
		s.Close()
		return nil, fmt.Errorf("acquire browser session: %w", err)
	}
	logger.Debug("browser session acquired", "headless", !cfg.DisableHeadless, "exec_path", cfg.ExecPath)
	return s, nil
}

// Close releases the tab and the browser process.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}

// ClearState drops cookies and the browser cache so a run is not polluted by
// a prior session.
func (s *Session) ClearState() error {
	if err := chromedp.Run(s.ctx,
		network.ClearBrowserCookies(),
		network.ClearBrowserCache(),
	); err != nil {
		return fmt.Errorf("clear browser state: %w", err)
	}
	return nil
}

// Navigate loads the target page.
func (s *Session) Navigate(url string) error {
	if err := chromedp.Run(s.ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// WaitReady blocks until at least one element matches the selector, or the
// timeout expires.
func (s *Session) WaitReady(selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// Snapshot captures the current outer HTML of the document.
func (s *Session) Snapshot() (string, error) {
	var html string
	if err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("capture snapshot: %w", err)
	}
	return html, nil
}

// ReadMetrics samples the current document height, scroll offset, and
// viewport height.
func (s *Session) ReadMetrics() (types.ScrollState, error) {
	var m types.ScrollState
	js := `({documentHeight: document.body.scrollHeight, viewportOffset: window.pageYOffset, viewportHeight: window.innerHeight})`
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(js, &m)); err != nil {
		return types.ScrollState{}, fmt.Errorf("read scroll metrics: %w", err)
	}
	return m, nil
}

// ScrollBy advances the viewport by the given fraction of its height.
func (s *Session) ScrollBy(fraction float64) error {
	js := fmt.Sprintf(`window.scrollBy(0, window.innerHeight * %g);`, fraction)
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("scroll by %g: %w", fraction, err)
	}
	return nil
}

// consentJS locates a visible accept-flavoured control and clicks it. It
// reports whether anything was clicked; absence is a normal outcome.
const consentJS = `(() => {
	const words = ['accepter', 'accept'];
	const nodes = document.querySelectorAll('button, a, [role="button"], input[type="button"], input[type="submit"]');
	for (const el of nodes) {
		const text = (el.textContent || el.value || '').trim().toLowerCase();
		const id = (el.id || '').toLowerCase();
		const cls = (typeof el.className === 'string' ? el.className : '').toLowerCase();
		const match = words.some(w => text.includes(w)) || id.includes('accept') || cls.includes('accept');
		if (!match) continue;
		if (el.offsetParent === null) continue;
		el.click();
		return true;
	}
	return false;
})()`

// DismissConsent makes one best-effort attempt to close a consent banner.
func (s *Session) DismissConsent() (bool, error) {
	var clicked bool
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(consentJS, &clicked)); err != nil {
		return false, fmt.Errorf("consent interaction: %w", err)
	}
	return clicked, nil
}

// Title returns the rendered page title.
func (s *Session) Title() (string, error) {
	var title string
	if err := chromedp.Run(s.ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("read title: %w", err)
	}
	return title, nil
}

// Location returns the current document URL after any redirects.
func (s *Session) Location() (string, error) {
	var loc string
	if err := chromedp.Run(s.ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}
