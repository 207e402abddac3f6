// Package memory is the process-local domain cache store, backed by go-cache.
package memory

import (
	"context"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"emailscore/internal/domaincache/models"
	"emailscore/pkg/platform/sentinel"
)

// Store keeps entries in memory. Retention bounds how long an entry is kept
// at all; freshness is decided per read.
type Store struct {
	items *gocache.Cache
}

// New keeps entries for retention (zero keeps them forever) and purges
// expired ones every cleanup interval.
func New(retention, cleanup time.Duration) *Store {
	if retention <= 0 {
		retention = gocache.NoExpiration
	}
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &Store{items: gocache.New(retention, cleanup)}
}

func (s *Store) Get(_ context.Context, domain string, freshAfter time.Time) (models.Entry, error) {
	v, ok := s.items.Get(domain)
	if !ok {
		return models.Entry{}, sentinel.ErrNotFound
	}
	entry := v.(models.Entry)
	if !entry.FreshAt(freshAfter) {
		return models.Entry{}, sentinel.ErrNotFound
	}
	return entry, nil
}

func (s *Store) GetMany(ctx context.Context, domains []string, freshAfter time.Time) (map[string]models.Entry, error) {
	out := make(map[string]models.Entry, len(domains))
	for _, d := range domains {
		if entry, err := s.Get(ctx, d, freshAfter); err == nil {
			out[d] = entry
		}
	}
	return out, nil
}

func (s *Store) Upsert(_ context.Context, entry models.Entry) error {
	s.items.SetDefault(entry.Domain, entry)
	return nil
}

// ListStale returns up to limit domains last written before olderThan, oldest first.
func (s *Store) ListStale(_ context.Context, olderThan time.Time, limit int) ([]string, error) {
	var stale []models.Entry
	for _, item := range s.items.Items() {
		entry := item.Object.(models.Entry)
		if entry.LastUpdated.Before(olderThan) {
			stale = append(stale, entry)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].LastUpdated.Before(stale[j].LastUpdated)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	domains := make([]string, 0, len(stale))
	for _, e := range stale {
		domains = append(domains, e.Domain)
	}
	return domains, nil
}

func (s *Store) Len() int {
	return s.items.ItemCount()
}
