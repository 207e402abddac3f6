// Package native resolves NS and MX records directly over DNS with
// miekg/dns, without any third-party HTTP service in between.
package native

import (
	"context"
	"sort"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"

	"emailscore/internal/resolver/models"
	"emailscore/internal/resolver/providers"
)

const ID = "native"

type Provider struct {
	server  string
	client  *dns.Client
	parking *providers.ParkingDetector
}

// New queries server (host:port) over UDP, retrying over TCP on truncation.
func New(server string, timeout time.Duration, parking *providers.ParkingDetector) *Provider {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Provider{
		server:  server,
		client:  &dns.Client{Timeout: timeout},
		parking: parking,
	}
}

func (p *Provider) ID() string { return ID }

func (p *Provider) Resolve(ctx context.Context, domain string) (models.DomainInfo, error) {
	var nsResp, mxResp *dns.Msg

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		nsResp, err = p.exchange(gctx, domain, dns.TypeNS)
		return err
	})
	g.Go(func() (err error) {
		mxResp, err = p.exchange(gctx, domain, dns.TypeMX)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.DomainInfo{}, err
	}

	if nsResp.Rcode == dns.RcodeNameError {
		return models.DomainInfo{Status: models.StatusInactive}, nil
	}

	var nameservers []string
	for _, rr := range nsResp.Answer {
		if ns, ok := rr.(*dns.NS); ok {
			nameservers = append(nameservers, ns.Ns)
		}
	}

	var exchanges []*dns.MX
	for _, rr := range mxResp.Answer {
		if mx, ok := rr.(*dns.MX); ok {
			exchanges = append(exchanges, mx)
		}
	}
	sort.SliceStable(exchanges, func(i, j int) bool {
		return exchanges[i].Preference < exchanges[j].Preference
	})

	info := models.DomainInfo{Status: providers.StatusFromNameservers(nameservers, p.parking)}
	if len(exchanges) > 0 {
		info.MXRecord = providers.NormalizeHost(exchanges[0].Mx)
	}
	return info, nil
}

func (p *Provider) exchange(ctx context.Context, domain string, qtype uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	resp, _, err := p.client.ExchangeContext(ctx, msg, p.server)
	if err == nil && resp.Truncated {
		tcp := &dns.Client{Net: "tcp", Timeout: p.client.Timeout}
		resp, _, err = tcp.ExchangeContext(ctx, msg, p.server)
	}
	if err != nil {
		return nil, providers.TransportError(ctx, ID, err)
	}
	switch resp.Rcode {
	case dns.RcodeSuccess, dns.RcodeNameError:
		return resp, nil
	default:
		return nil, providers.NewProviderError(providers.ErrorProviderOutage, ID,
			"dns rcode "+dns.RcodeToString[resp.Rcode], nil)
	}
}
