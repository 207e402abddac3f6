// Package doh is the secondary provider: two DNS-over-HTTPS JSON queries
// (A and MX) against a public resolver.
package doh

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"emailscore/internal/resolver/models"
	"emailscore/internal/resolver/providers"
)

const (
	ID = "doh"

	typeMX = 15
)

type answer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

type response struct {
	Status int      `json:"Status"`
	Answer []answer `json:"Answer"`
}

type Provider struct {
	endpoint string
	client   *http.Client
}

func New(endpoint string, client *http.Client) *Provider {
	if client == nil {
		client = providers.NewHTTPClient(0)
	}
	return &Provider{endpoint: endpoint, client: client}
}

func (p *Provider) ID() string { return ID }

// Resolve issues the A and MX queries concurrently; either failing fails the lookup.
func (p *Provider) Resolve(ctx context.Context, domain string) (models.DomainInfo, error) {
	var aResp, mxResp response

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.query(gctx, domain, "A", &aResp)
	})
	g.Go(func() error {
		return p.query(gctx, domain, "MX", &mxResp)
	})
	if err := g.Wait(); err != nil {
		return models.DomainInfo{}, err
	}

	info := models.DomainInfo{Status: models.StatusInactive}
	if len(aResp.Answer) > 0 {
		info.Status = models.StatusActive
	}
	info.MXRecord = firstExchange(mxResp.Answer)
	return info, nil
}

func (p *Provider) query(ctx context.Context, domain, rrType string, out *response) error {
	q := url.Values{}
	q.Set("name", domain)
	q.Set("type", rrType)
	return providers.GetJSON(ctx, p.client, ID, p.endpoint+"?"+q.Encode(),
		map[string]string{"Accept": "application/dns-json"}, out)
}

// firstExchange takes the first type-15 answer's "priority exchange" data
// and returns the exchange host.
func firstExchange(answers []answer) string {
	for _, a := range answers {
		if a.Type != typeMX {
			continue
		}
		fields := strings.Fields(a.Data)
		if len(fields) < 2 {
			return ""
		}
		return providers.NormalizeHost(fields[1])
	}
	return ""
}
