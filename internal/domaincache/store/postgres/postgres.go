// Package postgres persists the domain cache in the domain_cache table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"emailscore/internal/domaincache/models"
	resolver "emailscore/internal/resolver/models"
	"emailscore/pkg/platform/sentinel"
	"emailscore/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, domain string, freshAfter time.Time) (models.Entry, error) {
	query := `
		SELECT domain, domain_status, mx_record, last_updated
		FROM domain_cache
		WHERE domain = $1 AND last_updated >= $2
	`
	entry, err := scanEntry(tx.Execer(ctx, s.db).QueryRowContext(ctx, query, domain, freshAfter))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Entry{}, sentinel.ErrNotFound
		}
		return models.Entry{}, fmt.Errorf("get domain cache entry: %w", err)
	}
	return entry, nil
}

func (s *Store) GetMany(ctx context.Context, domains []string, freshAfter time.Time) (map[string]models.Entry, error) {
	out := make(map[string]models.Entry, len(domains))
	if len(domains) == 0 {
		return out, nil
	}
	query := `
		SELECT domain, domain_status, mx_record, last_updated
		FROM domain_cache
		WHERE domain = ANY($1) AND last_updated >= $2
	`
	rows, err := tx.Execer(ctx, s.db).QueryContext(ctx, query, pq.Array(domains), freshAfter)
	if err != nil {
		return nil, fmt.Errorf("get domain cache entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan domain cache entry: %w", err)
		}
		out[entry.Domain] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domain cache entries: %w", err)
	}
	return out, nil
}

func (s *Store) Upsert(ctx context.Context, entry models.Entry) error {
	query := `
		INSERT INTO domain_cache (domain, domain_status, mx_record, last_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (domain) DO UPDATE SET
			domain_status = EXCLUDED.domain_status,
			mx_record = EXCLUDED.mx_record,
			last_updated = EXCLUDED.last_updated
	`
	_, err := tx.Execer(ctx, s.db).ExecContext(ctx, query,
		entry.Domain,
		string(entry.DomainStatus),
		sql.NullString{String: entry.MXRecord, Valid: entry.MXRecord != ""},
		entry.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert domain cache entry: %w", err)
	}
	return nil
}

func (s *Store) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	query := `
		SELECT domain FROM domain_cache
		WHERE last_updated < $1
		ORDER BY last_updated ASC
		LIMIT $2
	`
	rows, err := tx.Execer(ctx, s.db).QueryContext(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan stale domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (models.Entry, error) {
	var (
		entry  models.Entry
		status string
		mx     sql.NullString
	)
	if err := row.Scan(&entry.Domain, &status, &mx, &entry.LastUpdated); err != nil {
		return models.Entry{}, err
	}
	entry.DomainStatus = resolver.ParseDomainStatus(status)
	entry.MXRecord = mx.String
	return entry, nil
}
