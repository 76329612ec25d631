package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength bounds URL paths in logs
	MaxPathLength = 500
	// MaxUserIDLength bounds user and subject ids in logs
	MaxUserIDLength = 128
	// MaxErrorMessageLength bounds error strings in logs
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength is the fallback bound for SanitizeString
	MaxGeneralStringLength = 2000
	// MaxDateKeyLength bounds client-supplied date keys; valid keys are 10 chars
	MaxDateKeyLength = 32
)

// SanitizeString strips control characters, repairs invalid UTF-8 and
// truncates to maxLength bytes (MaxGeneralStringLength when maxLength <= 0).
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' {
			builder.WriteRune(r)
		}
	}
	s = builder.String()

	if len(s) > maxLength {
		s = strings.ToValidUTF8(s[:maxLength], "") + "..."
	}
	return s
}

// SanitizePath prepares a request path for logging
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeError prepares an error for logging; nil yields ""
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// SanitizeUserID prepares a user id or token subject for logging
func SanitizeUserID(userID string) string {
	return SanitizeString(userID, MaxUserIDLength)
}

// SanitizeDate prepares a client-supplied date key for logging
func SanitizeDate(date string) string {
	return SanitizeString(date, MaxDateKeyLength)
}
