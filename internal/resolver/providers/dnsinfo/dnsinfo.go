// Package dnsinfo is the primary provider: an HTTP DNS-lookup API that
// returns NS and MX record sets in one response.
package dnsinfo

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"emailscore/internal/resolver/models"
	"emailscore/internal/resolver/providers"
)

const ID = "dnsinfo"

type response struct {
	Status  string `json:"status"`
	Records struct {
		NS []struct {
			Nameserver string `json:"nameserver"`
		} `json:"NS"`
		MX []struct {
			Exchange string `json:"exchange"`
			Priority int    `json:"priority"`
		} `json:"MX"`
	} `json:"records"`
}

type Provider struct {
	baseURL string
	client  *http.Client
	parking *providers.ParkingDetector
}

// New builds the provider. baseURL is the lookup endpoint; the domain is
// appended as a path segment.
func New(baseURL string, client *http.Client, parking *providers.ParkingDetector) *Provider {
	if client == nil {
		client = providers.NewHTTPClient(0)
	}
	return &Provider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		parking: parking,
	}
}

func (p *Provider) ID() string { return ID }

func (p *Provider) Resolve(ctx context.Context, domain string) (models.DomainInfo, error) {
	var body response
	endpoint := p.baseURL + "/" + url.PathEscape(domain)
	if err := providers.GetJSON(ctx, p.client, ID, endpoint, nil, &body); err != nil {
		return models.DomainInfo{}, err
	}
	if !strings.EqualFold(body.Status, "OK") {
		return models.DomainInfo{}, providers.NewProviderError(providers.ErrorBadData, ID,
			"lookup status "+body.Status, nil)
	}

	nameservers := make([]string, 0, len(body.Records.NS))
	for _, ns := range body.Records.NS {
		if ns.Nameserver != "" {
			nameservers = append(nameservers, ns.Nameserver)
		}
	}

	info := models.DomainInfo{
		Status: providers.StatusFromNameservers(nameservers, p.parking),
	}
	for _, mx := range body.Records.MX {
		if host := providers.NormalizeHost(mx.Exchange); host != "" {
			info.MXRecord = host
			break
		}
	}
	return info, nil
}
