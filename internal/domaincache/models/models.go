package models

import (
	"time"

	resolver "emailscore/internal/resolver/models"
)

// Entry is one cached resolution. Domain is the lower-cased mail domain.
type Entry struct {
	Domain       string                `json:"domain"`
	DomainStatus resolver.DomainStatus `json:"domain_status"`
	MXRecord     string                `json:"mx_record,omitempty"`
	LastUpdated  time.Time             `json:"last_updated"`
}

// NewEntry stamps info for domain at now.
func NewEntry(domain string, info resolver.DomainInfo, now time.Time) Entry {
	return Entry{
		Domain:       domain,
		DomainStatus: info.Status,
		MXRecord:     info.MXRecord,
		LastUpdated:  now,
	}
}

// FreshAt reports whether the entry was written at or after cutoff.
func (e Entry) FreshAt(cutoff time.Time) bool {
	return !e.LastUpdated.Before(cutoff)
}

func (e Entry) Info() resolver.DomainInfo {
	return resolver.DomainInfo{
		Status:   resolver.ParseDomainStatus(string(e.DomainStatus)),
		MXRecord: e.MXRecord,
	}
}
