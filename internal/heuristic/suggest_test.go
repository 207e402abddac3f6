package heuristic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggester_Suggest(t *testing.T) {
	s := NewSuggester(DefaultKnownDomains, DefaultKnownSecondLevel)

	tests := []struct {
		name   string
		local  string
		domain string
		want   string
	}{
		{"exact known domain", "jane", "gmail.com", ""},
		{"known domain is case-insensitive", "jane", "GMAIL.com", ""},
		{"transposed letters", "jane", "gmial.com", "jane@gmail.com"},
		{"missing letter", "jane", "hotmal.com", "jane@hotmail.com"},
		{"second-level typo keeps own tld", "jane", "yahooo.fr", "jane@yahoo.fr"},
		{"unrelated domain", "jane", "knowngooddomain.com", ""},
		{"too far from anything", "jane", "examplecorp.io", ""},
		{"mail.com is itself known", "jane", "mail.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Suggest(tt.local, tt.domain))
		})
	}
}
