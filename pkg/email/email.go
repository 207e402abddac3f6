// Package email holds small address helpers shared by the validator, the
// bulk job and notifications. None of them validate; see internal/heuristic.
package email

import (
	"strings"
	"unicode"
)

// Split returns the local part and domain around the last '@'.
// ok is false when there is no '@' or either side is empty.
func Split(address string) (local, domain string, ok bool) {
	at := strings.LastIndexByte(address, '@')
	if at <= 0 || at == len(address)-1 {
		return "", "", false
	}
	return address[:at], address[at+1:], true
}

// Domain returns the lower-cased domain of address, or "" when it has none.
func Domain(address string) string {
	_, d, ok := Split(strings.TrimSpace(address))
	if !ok {
		return ""
	}
	return strings.ToLower(d)
}

// Normalize trims surrounding whitespace. Case is preserved because local
// parts are case-sensitive.
func Normalize(address string) string {
	return strings.TrimSpace(address)
}

// DeriveNameFromEmail guesses a first and last name from the local part,
// used to greet users in notifications.
func DeriveNameFromEmail(address string) (string, string) {
	localPart := address
	if at := strings.IndexByte(address, '@'); at > 0 {
		localPart = address[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}
	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
