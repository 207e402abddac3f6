package domaincache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"emailscore/internal/domaincache/metrics"
	resolver "emailscore/internal/resolver/models"
	"emailscore/pkg/requestcontext"
)

// DomainResolver is the resolution chain the refresher re-runs.
type DomainResolver interface {
	Resolve(ctx context.Context, domain string) resolver.DomainInfo
}

// Refresher periodically re-resolves entries that have aged out of the
// freshness window, so hot domains stay warm.
type Refresher struct {
	cache    *Cache
	lister   StaleLister
	resolver DomainResolver
	interval time.Duration
	batch    int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type RefresherOption func(*Refresher)

func WithRefreshBatch(n int) RefresherOption {
	return func(r *Refresher) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithRefresherLogger(logger *slog.Logger) RefresherOption {
	return func(r *Refresher) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithRefresherMetrics(m *metrics.Metrics) RefresherOption {
	return func(r *Refresher) { r.metrics = m }
}

func NewRefresher(cache *Cache, lister StaleLister, res DomainResolver, interval time.Duration, opts ...RefresherOption) (*Refresher, error) {
	if cache == nil || lister == nil || res == nil {
		return nil, errors.New("refresher requires cache, stale lister and resolver")
	}
	if interval <= 0 {
		return nil, errors.New("refresh interval must be positive")
	}
	r := &Refresher{
		cache:    cache,
		lister:   lister,
		resolver: res,
		interval: interval,
		batch:    200,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run sweeps on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "domain cache refresher started", "interval", r.interval.String())
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "domain cache refresher stopped")
			return
		case <-ticker.C:
			if _, err := r.RefreshOnce(ctx); err != nil {
				r.logger.WarnContext(ctx, "domain cache refresh failed", "error", err)
			}
		}
	}
}

// RefreshOnce re-resolves up to one batch of stale domains and returns how
// many were written.
func (r *Refresher) RefreshOnce(ctx context.Context) (int, error) {
	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))
	domains, err := r.lister.ListStale(ctx, r.cache.Cutoff(ctx), r.batch)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, domain := range domains {
		if ctx.Err() != nil {
			break
		}
		info := r.resolver.Resolve(ctx, domain)
		r.cache.Save(ctx, domain, info)
		refreshed++
	}
	r.metrics.IncrementRefreshed(refreshed)
	if refreshed > 0 {
		r.logger.DebugContext(ctx, "domain cache refreshed", "count", refreshed)
	}
	return refreshed, nil
}
