package heuristic

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	syntaxPattern    = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	noSeparatorRun   = regexp.MustCompile(`^[A-Za-z0-9]{8,}$`)
	alphanumericOnly = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	alphabeticOnly   = regexp.MustCompile(`^[A-Za-z]+$`)
)

// roleKeywords are matched as case-insensitive substrings of the local part.
var roleKeywords = []string{
	"admin", "support", "info", "sales", "contact", "help", "office",
	"marketing", "billing", "abuse", "postmaster", "noreply", "no-reply",
	"webmaster", "hostmaster", "jobs", "careers", "enquiries",
}

func validSyntax(address string) bool {
	return syntaxPattern.MatchString(address)
}

// isGibberish flags local parts longer than 8 characters that are mostly
// digits, or are a single unbroken alphanumeric run, or mix letters and
// digits without any separator.
func isGibberish(local string) bool {
	if len(local) <= 8 {
		return false
	}
	if digitRatio(local) > 0.5 {
		return true
	}
	if noSeparatorRun.MatchString(local) {
		return true
	}
	return alphanumericOnly.MatchString(local) && !alphabeticOnly.MatchString(local)
}

func digitRatio(s string) float64 {
	if s == "" {
		return 0
	}
	digits := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return float64(digits) / float64(len(s))
}

func isRole(local string) bool {
	lower := strings.ToLower(local)
	for _, kw := range roleKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
