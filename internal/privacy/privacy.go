// Package privacy scrubs user data, such as image paths, home directories
// and URLs, from telemetry messages.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// Pre-compiled patterns
var (
	// URL pattern for finding URLs in text
	urlPattern = regexp.MustCompile(`\b(?:https?|s3|gs|file)://\S+`)

	// Absolute paths under a user directory, Unix and Windows
	userPathPattern = regexp.MustCompile(`(?:/home|/Users|/root)/[^\s"':]+|(?i:[a-z]:\\Users\\[^\s"':]+)`)

	// IPv4 pattern for IP address detection
	ipv4Pattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
)

// ScrubMessage removes or anonymizes sensitive information from telemetry messages.
// URLs are replaced by AnonymizeURL and user paths by AnonymizePath.
func ScrubMessage(message string) string {
	scrubbed := urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
	return userPathPattern.ReplaceAllStringFunc(scrubbed, AnonymizePath)
}

// AnonymizeURL converts a URL to an anonymized form while preserving debugging value.
// Credentials, hostnames and paths are hashed; scheme, host category and port
// feed the hash so equal endpoints map to equal identifiers.
func AnonymizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var normalizedParts []string

	if parsedURL.Scheme != "" {
		normalizedParts = append(normalizedParts, parsedURL.Scheme)
	}

	if host := parsedURL.Hostname(); host != "" {
		normalizedParts = append(normalizedParts, categorizeHost(host))
	}

	if parsedURL.Port() != "" {
		normalizedParts = append(normalizedParts, "port-"+parsedURL.Port())
	}

	if parsedURL.Path != "" && parsedURL.Path != "/" {
		normalizedParts = append(normalizedParts, anonymizeSegments(parsedURL.Path))
	}

	normalized := strings.Join(normalizedParts, ":")
	hash := sha256.Sum256([]byte(normalized))

	return fmt.Sprintf("url-%x", hash[:12])
}

// AnonymizePath replaces a file path with a hash that keeps only the file
// extension, e.g. /home/alice/selfie.jpg becomes path-1a2b3c4d.jpg
func AnonymizePath(path string) string {
	hash := sha256.Sum256([]byte(path))
	ext := strings.ToLower(filepath.Ext(strings.ReplaceAll(path, `\`, "/")))
	if len(ext) > 6 {
		ext = ""
	}
	return fmt.Sprintf("path-%x%s", hash[:4], ext)
}

// categorizeHost anonymizes hostnames while preserving useful categorization
func categorizeHost(host string) string {
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return "localhost"
	}

	if isPrivateIP(host) {
		return "private-ip"
	}

	if isIPAddress(host) {
		return "public-ip"
	}

	// For domain names, preserve TLD only
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return "domain-" + parts[len(parts)-1]
	}

	return "unknown-host"
}

// anonymizeSegments creates a structure-preserving but privacy-safe path representation
func anonymizeSegments(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}

	var anonymized []string
	for segment := range strings.SplitSeq(path, "/") {
		if segment == "" {
			continue
		}
		if isNumeric(segment) {
			anonymized = append(anonymized, "numeric")
			continue
		}
		hash := sha256.Sum256([]byte(segment))
		anonymized = append(anonymized, fmt.Sprintf("seg-%x", hash[:4]))
	}

	return strings.Join(anonymized, "/")
}

// isPrivateIP checks if the host is a private IP address (both IPv4 and IPv6)
func isPrivateIP(host string) bool {
	privateRanges := []string{
		"10.", "172.16.", "172.17.", "172.18.", "172.19.", "172.20.", "172.21.", "172.22.", "172.23.",
		"172.24.", "172.25.", "172.26.", "172.27.", "172.28.", "172.29.", "172.30.", "172.31.",
		"192.168.", "169.254.",
		"fc00:", "fd00:", // Unique local addresses
		"fe80:", // Link-local addresses
		"::1",   // Loopback
	}

	host = strings.ToLower(host)
	for _, prefix := range privateRanges {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}

// isIPAddress checks if the host looks like an IP address
func isIPAddress(host string) bool {
	if ipv4Pattern.MatchString(host) {
		return true
	}
	return strings.Contains(host, ":")
}

// isNumeric checks if a string is purely numeric
func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
