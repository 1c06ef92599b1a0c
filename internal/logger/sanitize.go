package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength is the maximum length for URL paths in logs
	MaxPathLength = 500
	// MaxErrorMessageLength is the maximum length for error messages in logs
	MaxErrorMessageLength = 1000
	// MaxPreviewLength bounds previews of untrusted content (email snippets, model output)
	MaxPreviewLength = 200
	// MaxGeneralStringLength is the default bound for SanitizeString
	MaxGeneralStringLength = 2000
	// MaxDebugContentLength bounds prompts and responses logged in debug mode
	MaxDebugContentLength = 10000
)

// SanitizeString validates UTF-8, drops control characters (keeping space, tab,
// newline and carriage return) and truncates to maxLength bytes.
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
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
		}
	}
	s = b.String()
	if len(s) > maxLength {
		s = strings.ToValidUTF8(s[:maxLength], "") + "..."
	}
	return s
}

// SanitizePath sanitizes a URL path for logging
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeError sanitizes an error message for logging
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// Preview returns a short sanitized preview of untrusted text
func Preview(s string) string {
	return SanitizeString(s, MaxPreviewLength)
}

// SanitizeDebugContent sanitizes prompts and responses logged in debug mode
func SanitizeDebugContent(content string) string {
	return SanitizeString(content, MaxDebugContentLength)
}
