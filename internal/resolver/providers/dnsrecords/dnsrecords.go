// Package dnsrecords is the terminal provider: a rate-limited third-party
// DNS-records API. It never returns an error; any failure is reported as an
// unknown domain so the chain always produces a value.
package dnsrecords

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"emailscore/internal/resolver/models"
	"emailscore/internal/resolver/providers"
)

const ID = "dnsrecords"

type record struct {
	RecordType string `json:"record_type"`
	Value      string `json:"value"`
	Priority   int    `json:"priority"`
}

type Provider struct {
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
	parking  *providers.ParkingDetector
	logger   *slog.Logger
}

type Option func(*Provider)

func WithAPIKey(key string) Option {
	return func(p *Provider) { p.apiKey = key }
}

func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithRateLimit caps outbound requests per second (burst 1). Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(p *Provider) {
		if rps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			p.limiter = nil
		}
	}
}

func WithParkingDetector(d *providers.ParkingDetector) Option {
	return func(p *Provider) { p.parking = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func New(endpoint string, opts ...Option) *Provider {
	p := &Provider{
		endpoint: endpoint,
		client:   providers.NewHTTPClient(0),
		limiter:  rate.NewLimiter(rate.Limit(5), 1),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) ID() string { return ID }

// Resolve always returns a nil error.
func (p *Provider) Resolve(ctx context.Context, domain string) (models.DomainInfo, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			p.logger.DebugContext(ctx, "dns records rate limiter aborted", "domain", domain, "error", err)
			return models.Unknown(), nil
		}
	}

	q := url.Values{}
	q.Set("domain", domain)
	headers := map[string]string{}
	if p.apiKey != "" {
		headers["X-Api-Key"] = p.apiKey
	}

	var records []record
	if err := providers.GetJSON(ctx, p.client, ID, p.endpoint+"?"+q.Encode(), headers, &records); err != nil {
		p.logger.WarnContext(ctx, "dns records lookup failed",
			"domain", domain,
			"category", providers.GetCategory(err),
			"error", err,
		)
		return models.Unknown(), nil
	}

	return interpret(records, p.parking), nil
}

// interpret prefers NS evidence, falls back to A records, and takes the
// lowest-priority MX exchange.
func interpret(records []record, parking *providers.ParkingDetector) models.DomainInfo {
	var nameservers []string
	hasA := false
	mx := ""
	mxPriority := 0

	for _, r := range records {
		switch strings.ToUpper(r.RecordType) {
		case "NS":
			nameservers = append(nameservers, r.Value)
		case "A", "AAAA":
			hasA = true
		case "MX":
			host := providers.NormalizeHost(r.Value)
			if host == "" {
				continue
			}
			if mx == "" || r.Priority < mxPriority {
				mx, mxPriority = host, r.Priority
			}
		}
	}

	info := models.DomainInfo{MXRecord: mx}
	switch {
	case len(nameservers) > 0:
		info.Status = providers.StatusFromNameservers(nameservers, parking)
	case hasA:
		info.Status = models.StatusActive
	default:
		info.Status = models.StatusInactive
	}
	return info
}
