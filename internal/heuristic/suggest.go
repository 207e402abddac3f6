package heuristic

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

const suggestThreshold = 2

// DefaultKnownDomains are popular mailbox providers typos are corrected towards.
var DefaultKnownDomains = []string{
	"gmail.com", "googlemail.com", "yahoo.com", "yahoo.co.uk", "ymail.com",
	"hotmail.com", "hotmail.co.uk", "outlook.com", "live.com", "msn.com",
	"aol.com", "icloud.com", "me.com", "mac.com", "mail.com", "gmx.com",
	"gmx.de", "web.de", "protonmail.com", "proton.me", "yandex.ru", "mail.ru",
	"qq.com", "163.com", "comcast.net", "att.net", "verizon.net", "sbcglobal.net",
}

// DefaultKnownSecondLevel are provider names matched independently of TLD.
var DefaultKnownSecondLevel = []string{
	"gmail", "googlemail", "yahoo", "hotmail", "outlook", "live", "aol",
	"icloud", "protonmail", "yandex", "gmx", "zoho",
}

// Suggester proposes corrections for mistyped mailbox domains. The address's
// own top-level part is the only TLD candidate, so a TLD is never swapped on
// its own.
type Suggester struct {
	domains      []string
	secondLevels []string
	known        map[string]struct{}
}

func NewSuggester(domains, secondLevels []string) *Suggester {
	known := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		known[strings.ToLower(d)] = struct{}{}
	}
	return &Suggester{domains: domains, secondLevels: secondLevels, known: known}
}

// Suggest returns the corrected full address, or "" when none applies.
func (s *Suggester) Suggest(local, domain string) string {
	domain = strings.ToLower(domain)
	if _, ok := s.known[domain]; ok {
		return ""
	}

	if closest := closestWithin(domain, s.domains); closest != "" && closest != domain {
		return local + "@" + closest
	}

	dot := strings.IndexByte(domain, '.')
	if dot <= 0 {
		return ""
	}
	sld, tld := domain[:dot], domain[dot+1:]
	if closest := closestWithin(sld, s.secondLevels); closest != "" && closest != sld {
		return local + "@" + closest + "." + tld
	}
	return ""
}

func closestWithin(target string, candidates []string) string {
	best := ""
	bestDist := suggestThreshold + 1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(target, c)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
