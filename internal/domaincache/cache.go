// Package domaincache keeps recent domain resolutions so repeated lookups of
// the same mail domain skip the provider chain.
package domaincache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"emailscore/internal/domaincache/metrics"
	"emailscore/internal/domaincache/models"
	resolver "emailscore/internal/resolver/models"
	"emailscore/pkg/platform/sentinel"
	"emailscore/pkg/requestcontext"
)

// DefaultTTL is how long an entry is considered fresh.
const DefaultTTL = 24 * time.Hour

// Store persists cache entries. Entries written before freshAfter count as misses.
type Store interface {
	// Get returns sentinel.ErrNotFound when the domain is missing or stale.
	Get(ctx context.Context, domain string, freshAfter time.Time) (models.Entry, error)
	// GetMany returns only the fresh entries, keyed by domain, in one round trip.
	GetMany(ctx context.Context, domains []string, freshAfter time.Time) (map[string]models.Entry, error)
	// Upsert inserts or overwrites; the last write wins.
	Upsert(ctx context.Context, entry models.Entry) error
}

// StaleLister is implemented by stores that can enumerate entries due for refresh.
type StaleLister interface {
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
}

// Cache applies the freshness window over a Store and makes writes best-effort.
type Cache struct {
	store   Store
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

func New(store Store, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, errors.New("domain cache store is required")
	}
	c := &Cache{
		store:  store,
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Cutoff is the oldest LastUpdated still treated as fresh for this request.
func (c *Cache) Cutoff(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).Add(-c.ttl)
}

// Lookup returns the cached info for domain. Store errors are logged and
// reported as a miss.
func (c *Cache) Lookup(ctx context.Context, domain string) (resolver.DomainInfo, bool) {
	entry, err := c.store.Get(ctx, normalize(domain), c.Cutoff(ctx))
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			c.metrics.IncrementError()
			c.logger.WarnContext(ctx, "domain cache read failed",
				"domain", domain,
				"error", err,
			)
		}
		c.metrics.IncrementMiss(1)
		return resolver.DomainInfo{}, false
	}
	c.metrics.IncrementHit(1)
	return entry.Info(), true
}

// LookupMany batch-reads fresh entries for domains. A failed read yields an
// empty map so callers fall back to live resolution.
func (c *Cache) LookupMany(ctx context.Context, domains []string) map[string]resolver.DomainInfo {
	out := make(map[string]resolver.DomainInfo, len(domains))
	if len(domains) == 0 {
		return out
	}
	keys := make([]string, 0, len(domains))
	for _, d := range domains {
		keys = append(keys, normalize(d))
	}

	entries, err := c.store.GetMany(ctx, keys, c.Cutoff(ctx))
	if err != nil {
		c.metrics.IncrementError()
		c.logger.WarnContext(ctx, "domain cache batch read failed",
			"domains", len(keys),
			"error", err,
		)
		c.metrics.IncrementMiss(len(keys))
		return out
	}
	for domain, entry := range entries {
		out[domain] = entry.Info()
	}
	c.metrics.IncrementHit(len(out))
	c.metrics.IncrementMiss(len(keys) - len(out))
	return out
}

// Save records info for domain. Failures are logged and swallowed; a
// canceled caller writes nothing.
func (c *Cache) Save(ctx context.Context, domain string, info resolver.DomainInfo) {
	if ctx.Err() != nil {
		return
	}
	entry := models.NewEntry(normalize(domain), info, requestcontext.Now(ctx))
	if err := c.store.Upsert(ctx, entry); err != nil {
		c.metrics.IncrementWriteFailure()
		c.logger.WarnContext(ctx, "domain cache write failed",
			"domain", domain,
			"error", err,
		)
	}
}

func normalize(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
