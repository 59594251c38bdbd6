package logger

import (
	"log/slog"
	"regexp"
	"strings"
)

// SensitiveDataPatterns contains regex patterns for sensitive data that should be redacted in logs
var SensitiveDataPatterns = []*regexp.Regexp{
	// Sentry DSNs embed the public key before the host
	regexp.MustCompile(`(?i)(https?://)([0-9a-f]{16,})@`),

	// API keys, tokens and secrets
	regexp.MustCompile(`(?i)((api|access|auth|token|secret|passw(or)?d)[0-9a-z\-_\.]*[\s:=]+)([^;,\s]{5,})`),
}

// SensitiveKeywords are keywords that indicate fields may contain sensitive data
var SensitiveKeywords = []string{
	"password", "passwd", "secret", "credential", "token", "dsn", "api_key", "apikey",
}

// RedactSensitiveData replaces sensitive information with "[REDACTED]"
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}

	for _, pattern := range SensitiveDataPatterns {
		input = pattern.ReplaceAllString(input, "$1[REDACTED]")
	}

	return input
}

// isSensitiveKey reports whether a field key suggests a secret value
func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, sensitiveKey := range SensitiveKeywords {
		if strings.Contains(keyLower, sensitiveKey) {
			return true
		}
	}
	return false
}

// redactAttr is a slog ReplaceAttr function shared by the text and JSON handlers
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	if isSensitiveKey(a.Key) && a.Value.String() != "" {
		return slog.String(a.Key, "[REDACTED]")
	}
	if redacted := RedactSensitiveData(a.Value.String()); redacted != a.Value.String() {
		return slog.String(a.Key, redacted)
	}
	return a
}
