// Package disposable holds the process-wide set of throwaway mailbox domains.
//
// The set is loaded lazily on first use from a curated blocklist URL. Loading
// happens exactly once per Set: concurrent first callers wait for the same
// fetch, and a failed fetch leaves the set empty (fail open) for the rest of
// the process lifetime.
package disposable

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const DefaultListURL = "https://raw.githubusercontent.com/disposable-email-domains/disposable-email-domains/master/disposable_email_blocklist.conf"

// Set is safe for concurrent use.
type Set struct {
	url     string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
	seed    []string

	once    sync.Once
	domains map[string]struct{}
	loadErr error
}

type Option func(*Set)

// WithURL sets the blocklist location. An empty URL disables fetching.
func WithURL(url string) Option {
	return func(s *Set) { s.url = url }
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Set) {
		if c != nil {
			s.client = c
		}
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(s *Set) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Set) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSeed adds domains that are always in the set, fetched or not.
func WithSeed(domains ...string) Option {
	return func(s *Set) { s.seed = append(s.seed, domains...) }
}

func New(opts ...Option) *Set {
	s := &Set{
		url:     DefaultListURL,
		client:  http.DefaultClient,
		timeout: 10 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStatic returns an already-populated set that never fetches.
func NewStatic(domains ...string) *Set {
	s := New(WithURL(""), WithSeed(domains...))
	s.Load(context.Background())
	return s
}

// Load populates the set on first call and is a no-op afterwards. The fetch
// is detached from ctx cancellation so one cancelled request cannot leave the
// whole process without a blocklist.
func (s *Set) Load(ctx context.Context) {
	s.once.Do(func() {
		domains := make(map[string]struct{}, len(s.seed))
		for _, d := range s.seed {
			if n := normalize(d); n != "" {
				domains[n] = struct{}{}
			}
		}

		if s.url != "" {
			fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
			defer cancel()

			fetched, err := s.fetch(fetchCtx)
			if err != nil {
				s.loadErr = err
				s.logger.WarnContext(ctx, "disposable domain list unavailable, treating no domain as disposable",
					"url", s.url,
					"error", err,
				)
			} else {
				for _, d := range fetched {
					domains[d] = struct{}{}
				}
				s.logger.InfoContext(ctx, "loaded disposable domain list",
					"url", s.url,
					"count", len(fetched),
				)
			}
		}
		s.domains = domains
	})
}

// Contains reports whether domain is a known disposable domain.
func (s *Set) Contains(ctx context.Context, domain string) bool {
	s.Load(ctx)
	_, ok := s.domains[normalize(domain)]
	return ok
}

// Len returns the number of loaded domains.
func (s *Set) Len(ctx context.Context) int {
	s.Load(ctx)
	return len(s.domains)
}

// Err returns the fetch error, if the load failed.
func (s *Set) Err() error {
	return s.loadErr
}

func (s *Set) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch disposable domains: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch disposable domains: unexpected status %d", resp.StatusCode)
	}
	return parse(resp.Body)
}

func parse(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, normalize(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read disposable domains: %w", err)
	}
	return out, nil
}

func normalize(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}
