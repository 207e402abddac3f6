// Package resolver turns a domain into reachability signals by walking an
// ordered chain of providers until one answers.
package resolver

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"emailscore/internal/resolver/metrics"
	"emailscore/internal/resolver/models"
	"emailscore/internal/resolver/providers"
	"emailscore/pkg/platform/circuit"
)

// Link is one step of the chain. A nil Breaker means the provider is always tried.
type Link struct {
	Provider providers.Provider
	Breaker  *circuit.Breaker
}

// Resolver tries each link in order. It never returns an error: when every
// provider fails the answer is unknown with no MX record.
type Resolver struct {
	links   []Link
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Resolver) {
		if t != nil {
			r.tracer = t
		}
	}
}

func New(links []Link, opts ...Option) *Resolver {
	r := &Resolver{
		links:  links,
		logger: slog.Default(),
		tracer: otel.Tracer("emailscore/resolver"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Guarded wraps provider in a breaker configured with the given thresholds.
func Guarded(p providers.Provider, failures int, cooldown time.Duration) Link {
	return Link{
		Provider: p,
		Breaker: circuit.New(p.ID(),
			circuit.WithFailureThreshold(failures),
			circuit.WithCooldown(cooldown),
		),
	}
}

// Terminal is a link without a breaker, for the last provider in the chain.
func Terminal(p providers.Provider) Link {
	return Link{Provider: p}
}

// Resolve walks the chain sequentially.
func (r *Resolver) Resolve(ctx context.Context, domain string) models.DomainInfo {
	ctx, span := r.tracer.Start(ctx, "resolver.Resolve",
		trace.WithAttributes(attribute.String("domain", domain)))
	defer span.End()

	for _, link := range r.links {
		if ctx.Err() != nil {
			break
		}
		id := link.Provider.ID()

		if link.Breaker != nil && !link.Breaker.Allow() {
			r.metrics.ObserveProvider(id, metrics.OutcomeSkipped, 0)
			continue
		}

		start := r.now()
		info, err := link.Provider.Resolve(ctx, domain)
		elapsed := r.now().Sub(start)

		if err != nil {
			r.metrics.ObserveProvider(id, metrics.OutcomeFailure, elapsed)
			r.recordFailure(ctx, link, err)
			r.logger.WarnContext(ctx, "domain provider failed, falling back",
				"provider", id,
				"domain", domain,
				"category", providers.GetCategory(err),
				"error", err,
			)
			continue
		}

		r.metrics.ObserveProvider(id, metrics.OutcomeSuccess, elapsed)
		if link.Breaker != nil {
			if _, change := link.Breaker.RecordSuccess(); change.Closed {
				r.logger.InfoContext(ctx, "domain provider recovered", "provider", id)
			}
		}
		if !info.Status.IsValid() {
			info.Status = models.StatusUnknown
		}
		span.SetAttributes(
			attribute.String("provider", id),
			attribute.String("domain_status", info.Status.String()),
		)
		r.metrics.IncrementResolution(info.Status.String())
		return info
	}

	span.SetAttributes(attribute.String("domain_status", models.StatusUnknown.String()))
	r.metrics.IncrementResolution(models.StatusUnknown.String())
	return models.Unknown()
}

func (r *Resolver) recordFailure(ctx context.Context, link Link, err error) {
	if link.Breaker == nil {
		return
	}
	if !providers.CountsAgainstProvider(err) {
		link.Breaker.Abandon()
		return
	}
	if _, change := link.Breaker.RecordFailure(); change.Opened {
		r.metrics.IncrementBreakerOpened(link.Provider.ID())
		r.logger.WarnContext(ctx, "domain provider circuit opened",
			"provider", link.Provider.ID(),
		)
	}
}
