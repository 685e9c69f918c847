package utils

import (
	"regexp"
	"strings"
)

var schemePrefix = regexp.MustCompile(`(?i)^https?://`)

// NormalizeWebsite trims s and prepends https:// when it has no http(s) scheme.
// Empty input stays empty.
func NormalizeWebsite(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || schemePrefix.MatchString(s) {
		return s
	}
	return "https://" + s
}
