package fetch

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"imgharvest/internal/config"
	"imgharvest/internal/imgurl"
	"imgharvest/internal/robots"
	"imgharvest/internal/store"
	"imgharvest/pkg/types"
)

// Fetcher downloads a harvested URL set to local storage with bounded
// concurrency. Each input URL yields exactly one DownloadRecord; a failure
// on one URL never affects the others.
type Fetcher struct {
	cfg     config.FetchConfig
	client  *Client
	store   *store.Store
	robots  *robots.Agent
	limiter *DomainLimiter
	logger  *slog.Logger
}

// NewFetcher constructs a fetcher. A nil client gets built from the config;
// the robots agent may be nil when robots compliance is disabled.
func NewFetcher(cfg config.FetchConfig, client *Client, st *store.Store, agent *robots.Agent, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = NewClient(cfg)
	}
	return &Fetcher{
		cfg:     cfg,
		client:  client,
		store:   st,
		robots:  agent,
		limiter: NewDomainLimiter(cfg),
		logger:  logger,
	}
}

// Client exposes the underlying HTTP client (eg. for the robots agent).
func (f *Fetcher) Client() *Client { return f.client }

// FetchAll processes every URL and returns one record per input, in input
// order. Cancellation aborts outstanding work promptly; URLs that never ran
// are recorded as failed.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []types.DownloadRecord {
	records := make([]types.DownloadRecord, len(urls))

	pool, err := newWorkerPool(ctx, f.cfg.Concurrency, f.cfg.QueueSize)
	if err != nil {
		for i, u := range urls {
			records[i] = failed(u, err.Error())
		}
		return records
	}

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		if err := pool.submit(func(jobCtx context.Context) {
			defer wg.Done()
			records[i] = f.fetchOne(jobCtx, u)
		}); err != nil {
			wg.Done()
			records[i] = failed(u, err.Error())
		}
	}
	wg.Wait()
	pool.close()
	return records
}

// fetchOne runs the per-URL procedure: shape classification, advisory probe,
// on-disk dedup, full retrieval, final content-type check, persist.
func (f *Fetcher) fetchOne(ctx context.Context, rawURL string) types.DownloadRecord {
	logger := f.logger.With("url", rawURL)

	if err := ctx.Err(); err != nil {
		return failed(rawURL, err.Error())
	}

	switch imgurl.Classify(rawURL, "") {
	case types.DataEmbedded:
		logger.Debug("skipping data URI")
		return record(rawURL, types.OutcomeSkippedDataURI, "")
	case types.VectorExcluded:
		logger.Debug("skipping vector image")
		return record(rawURL, types.OutcomeSkippedVector, "")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return failed(rawURL, "unparseable URL: "+err.Error())
	}

	if f.robots != nil && !f.robots.Allowed(ctx, parsed) {
		return failed(rawURL, "blocked by robots.txt")
	}

	if err := f.limiter.Wait(ctx, parsed.Hostname()); err != nil {
		return failed(rawURL, err.Error())
	}

	// Advisory header probe: a reclassification avoids the full transfer,
	// anything else is ignored.
	if contentType, err := f.client.Probe(ctx, rawURL); err != nil {
		logger.Debug("probe failed, continuing", "error", err)
	} else if imgurl.Classify(rawURL, contentType) == types.VectorExcluded {
		logger.Debug("skipping vector image", "content_type", contentType)
		return record(rawURL, types.OutcomeSkippedVector, "")
	}

	exists, err := f.store.Exists(rawURL)
	if err != nil {
		return failed(rawURL, err.Error())
	}
	if exists {
		logger.Debug("already on disk")
		r := record(rawURL, types.OutcomeSkippedDuplicateOnDisk, "")
		r.LocalPath = f.store.PathFor(rawURL)
		return r
	}

	body, contentType, err := f.client.Get(ctx, rawURL)
	if err != nil {
		logger.Warn("download failed", "error", err)
		return failed(rawURL, err.Error())
	}

	// Final authoritative content-type check; rare correction path.
	if imgurl.Classify(rawURL, contentType) == types.VectorExcluded {
		logger.Debug("skipping vector image after fetch", "content_type", contentType)
		return record(rawURL, types.OutcomeSkippedVector, "")
	}

	path, err := f.store.Save(rawURL, body)
	if err != nil {
		logger.Warn("persist failed", "error", err)
		return failed(rawURL, err.Error())
	}

	logger.Debug("saved", "path", path, "bytes", len(body))
	r := record(rawURL, types.OutcomeSaved, "")
	r.LocalPath = path
	return r
}

func record(url string, outcome types.Outcome, reason string) types.DownloadRecord {
	return types.DownloadRecord{
		URL:       url,
		Outcome:   outcome,
		Reason:    reason,
		FetchedAt: time.Now(),
	}
}

func failed(url, reason string) types.DownloadRecord {
	return record(url, types.OutcomeFailed, reason)
}

// Summarize counts records per outcome for the run report.
func Summarize(records []types.DownloadRecord) map[types.Outcome]int {
	counts := make(map[types.Outcome]int, 5)
	for _, r := range records {
		counts[r.Outcome]++
	}
	return counts
}
