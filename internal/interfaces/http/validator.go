package http

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxIDLength      = 128
	MaxMessageLength = 4096
	MaxImportRows    = 50000
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// ValidID checks a path identifier (uuid, numeric bot id, slug).
func ValidID(s string) bool {
	return s != "" && len(s) <= MaxIDLength && idPattern.MatchString(s)
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

// TruncateString truncates to at most maxLen bytes without splitting a rune.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen]
}

// CleanText prepares inbound chat text for storage.
func CleanText(s string) string {
	return strings.TrimSpace(TruncateString(SanitizeString(s), MaxMessageLength))
}
