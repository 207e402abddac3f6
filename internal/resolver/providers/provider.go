// Package providers defines the contract every domain-information source
// implements, plus the pieces they share: error taxonomy, JSON-over-HTTP
// fetching and parking detection.
package providers

import (
	"context"
	"strings"

	"golang.org/x/net/publicsuffix"

	"emailscore/internal/resolver/models"
)

// Provider resolves a domain to its reachability signals. Implementations
// return a *ProviderError on failure so the chain can fall through.
type Provider interface {
	// ID returns a stable identifier used in logs and metrics.
	ID() string

	Resolve(ctx context.Context, domain string) (models.DomainInfo, error)
}

// DefaultParkingNameservers are registrable domains of common parking services.
var DefaultParkingNameservers = []string{
	"sedoparking.com", "parkingcrew.net", "bodis.com", "above.com",
	"parklogic.com", "dan.com", "afternic.com", "ztomy.com", "cashparking.com",
	"fabulous.com", "parked.com", "namedrive.com", "dsredirection.com",
	"hugedomains.com", "undeveloped.com",
}

// ParkingDetector matches nameserver hosts against parking services by
// registrable domain, so ns1.sedoparking.com and ns2.sedoparking.com both match.
type ParkingDetector struct {
	domains map[string]struct{}
}

func NewParkingDetector(domains []string) *ParkingDetector {
	if len(domains) == 0 {
		domains = DefaultParkingNameservers
	}
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		set[normalizeHost(d)] = struct{}{}
	}
	return &ParkingDetector{domains: set}
}

// IsParked reports whether any nameserver belongs to a parking service.
func (p *ParkingDetector) IsParked(nameservers []string) bool {
	if p == nil {
		return false
	}
	for _, ns := range nameservers {
		host := normalizeHost(ns)
		if host == "" {
			continue
		}
		registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
		if err != nil {
			registrable = host
		}
		if _, ok := p.domains[registrable]; ok {
			return true
		}
	}
	return false
}

// StatusFromNameservers applies the NS rule shared by the NS-aware providers:
// parked if a parking nameserver is present, active if any NS exists,
// inactive otherwise.
func StatusFromNameservers(nameservers []string, parking *ParkingDetector) models.DomainStatus {
	switch {
	case len(nameservers) == 0:
		return models.StatusInactive
	case parking.IsParked(nameservers):
		return models.StatusParked
	default:
		return models.StatusActive
	}
}

// NormalizeHost lower-cases a DNS name and strips the trailing root dot.
func NormalizeHost(host string) string {
	return normalizeHost(host)
}

func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}
