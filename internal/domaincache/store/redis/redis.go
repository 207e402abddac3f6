// Package redis stores domain cache entries as JSON strings with a key TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"emailscore/internal/domaincache/models"
	"emailscore/pkg/platform/sentinel"
)

const keyPrefix = "domaincache:"

// Store keeps each entry under domaincache:<domain>. Keys expire after the
// retention period; freshness is still checked against LastUpdated.
type Store struct {
	client    *goredis.Client
	retention time.Duration
}

type Option func(*Store)

// WithRetention sets the key TTL. Zero keeps keys until evicted.
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.retention = d
		}
	}
}

func New(client *goredis.Client, opts ...Option) *Store {
	s := &Store{client: client, retention: 48 * time.Hour}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func key(domain string) string {
	return keyPrefix + domain
}

func (s *Store) Get(ctx context.Context, domain string, freshAfter time.Time) (models.Entry, error) {
	raw, err := s.client.Get(ctx, key(domain)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return models.Entry{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Entry{}, fmt.Errorf("get domain cache entry: %w", err)
	}
	var entry models.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return models.Entry{}, fmt.Errorf("decode domain cache entry: %w", err)
	}
	if !entry.FreshAt(freshAfter) {
		return models.Entry{}, sentinel.ErrNotFound
	}
	return entry, nil
}

func (s *Store) GetMany(ctx context.Context, domains []string, freshAfter time.Time) (map[string]models.Entry, error) {
	out := make(map[string]models.Entry, len(domains))
	if len(domains) == 0 {
		return out, nil
	}
	keys := make([]string, len(domains))
	for i, d := range domains {
		keys[i] = key(d)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget domain cache entries: %w", err)
	}
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var entry models.Entry
		if err := json.Unmarshal([]byte(str), &entry); err != nil {
			continue
		}
		if entry.FreshAt(freshAfter) {
			out[entry.Domain] = entry
		}
	}
	return out, nil
}

func (s *Store) Upsert(ctx context.Context, entry models.Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode domain cache entry: %w", err)
	}
	if err := s.client.Set(ctx, key(entry.Domain), raw, s.retention).Err(); err != nil {
		return fmt.Errorf("set domain cache entry: %w", err)
	}
	return nil
}
