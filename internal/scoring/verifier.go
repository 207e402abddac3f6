package scoring

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"emailscore/internal/domaincache"
	"emailscore/internal/heuristic"
	resolver "emailscore/internal/resolver/models"
	"emailscore/internal/scoring/metrics"
	"emailscore/internal/scoring/models"
)

// DefaultLiveLookupDelay spaces out uncached resolutions in bulk runs.
const DefaultLiveLookupDelay = 500 * time.Millisecond

// DefaultResolveTimeout bounds a shared resolution once it is detached from
// the request that started it.
const DefaultResolveTimeout = 30 * time.Second

// DomainResolver never fails; an unreachable chain yields an unknown domain.
type DomainResolver interface {
	Resolve(ctx context.Context, domain string) resolver.DomainInfo
}

// Verifier runs the full per-address pipeline: heuristics, cache, resolver
// and scoring.
type Verifier struct {
	validator *heuristic.Validator
	cache     *domaincache.Cache
	resolver  DomainResolver
	delay     time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics

	flight singleflight.Group
}

type Option func(*Verifier)

// WithLiveLookupDelay sets the pause before an uncached resolution in
// VerifyPrefetched. Zero disables it.
func WithLiveLookupDelay(d time.Duration) Option {
	return func(v *Verifier) {
		if d >= 0 {
			v.delay = d
		}
	}
}

// WithResolveTimeout caps a single shared chain walk.
func WithResolveTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Verifier) { v.metrics = m }
}

func NewVerifier(validator *heuristic.Validator, cache *domaincache.Cache, res DomainResolver, opts ...Option) (*Verifier, error) {
	if validator == nil {
		return nil, errors.New("validator is required")
	}
	if cache == nil {
		return nil, errors.New("domain cache is required")
	}
	if res == nil {
		return nil, errors.New("domain resolver is required")
	}
	v := &Verifier{
		validator: validator,
		cache:     cache,
		resolver:  res,
		delay:     DefaultLiveLookupDelay,
		timeout:   DefaultResolveTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify scores a single address, consulting the cache before resolving.
// The only error is the caller's context ending.
func (v *Verifier) Verify(ctx context.Context, address string) (models.EmailRecord, error) {
	h := v.validator.Validate(ctx, address)
	if h.Rejected() {
		return v.finish(Score(h, nil)), nil
	}

	info, ok := v.cache.Lookup(ctx, h.Domain)
	if !ok {
		var err error
		if info, err = v.resolve(ctx, h.Domain); err != nil {
			return models.EmailRecord{}, err
		}
	}
	return v.finish(Score(h, &info)), nil
}

// VerifyPrefetched is the bulk variant: prefetched holds the batch-read cache
// entries for the chunk, and a miss waits the live-lookup delay before resolving.
func (v *Verifier) VerifyPrefetched(ctx context.Context, address string, prefetched map[string]resolver.DomainInfo) (models.EmailRecord, error) {
	h := v.validator.Validate(ctx, address)
	if h.Rejected() {
		return v.finish(Score(h, nil)), nil
	}

	info, ok := prefetched[h.Domain]
	if !ok {
		if err := sleep(ctx, v.delay); err != nil {
			return models.EmailRecord{}, err
		}
		var err error
		if info, err = v.resolve(ctx, h.Domain); err != nil {
			return models.EmailRecord{}, err
		}
	}
	return v.finish(Score(h, &info)), nil
}

// resolve collapses concurrent lookups of the same domain into one chain walk
// and one cache write. The walk is detached from the first caller's
// cancellation because every waiting caller shares its result.
func (v *Verifier) resolve(ctx context.Context, domain string) (resolver.DomainInfo, error) {
	ch := v.flight.DoChan(domain, func() (any, error) {
		v.metrics.IncrementLiveLookup()
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.timeout)
		defer cancel()
		info := v.resolver.Resolve(flightCtx, domain)
		v.cache.Save(flightCtx, domain, info)
		return info, nil
	})
	select {
	case <-ctx.Done():
		return resolver.DomainInfo{}, ctx.Err()
	case res := <-ch:
		if err := ctx.Err(); err != nil {
			return resolver.DomainInfo{}, err
		}
		return res.Val.(resolver.DomainInfo), nil
	}
}

func (v *Verifier) finish(rec models.EmailRecord) models.EmailRecord {
	v.metrics.IncrementVerification(rec.Status.String())
	return rec
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
