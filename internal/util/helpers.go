package util

import (
	"html/template"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// =============================================================================
// Template Compilation Helpers
// =============================================================================

// MustCompileTemplate compiles a template with the given name and content.
// Panics with a fatal error if compilation fails.
// This is used during initialization when template failures are unrecoverable.
func MustCompileTemplate(name string, funcs template.FuncMap, content string) *template.Template {
	t, err := template.New(name).Funcs(funcs).Parse(content)
	if err != nil {
		slog.Error("failed to compile template", "template", name, "error", err)
		os.Exit(1)
	}
	return t
}

// =============================================================================
// Host Validation Helpers
// =============================================================================

// IsInternalHost checks if a hostname is internal/private and should not be accessed.
// Used to prevent SSRF attacks by blocking requests to internal networks.
func IsInternalHost(host string) bool {
	host = strings.ToLower(host)
	return strings.HasSuffix(host, ".local") ||
		strings.HasSuffix(host, ".internal") ||
		strings.HasSuffix(host, ".onion") ||
		strings.HasSuffix(host, ".localhost")
}

// IsLoopbackHost checks if a hostname resolves to localhost.
func IsLoopbackHost(host string) bool {
	host = strings.ToLower(host)
	return host == "localhost" ||
		host == "127.0.0.1" ||
		host == "::1" ||
		strings.HasPrefix(host, "127.") ||
		host == "[::1]"
}

// IsPrivateHost checks if a host should be blocked for security reasons.
// Combines internal host and loopback checks.
func IsPrivateHost(host string) bool {
	return host == "" || IsInternalHost(host) || IsLoopbackHost(host)
}

// =============================================================================
// URL Building Helpers
// =============================================================================

// URLParamOrder defines the canonical order for widget query parameters.
var URLParamOrder = []string{
	"instance",
	"document-uri", "publication-uri",
	"depth", "label", "hide",
	"callback-uri", "origin", "page",
}

// BuildURL constructs a URL with query parameters in canonical order.
// Empty values are omitted. Parameters not in the canonical order are appended alphabetically.
func BuildURL(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}

	var parts []string
	used := make(map[string]bool, len(params))

	for _, key := range URLParamOrder {
		if val, ok := params[key]; ok && val != "" {
			parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(val))
			used[key] = true
		}
	}

	var remaining []string
	for key := range params {
		if !used[key] && params[key] != "" {
			remaining = append(remaining, key)
		}
	}
	sort.Strings(remaining)
	for _, key := range remaining {
		parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(params[key]))
	}

	if len(parts) == 0 {
		return path
	}
	return path + "?" + strings.Join(parts, "&")
}

// ParsePositiveInt parses s as a positive integer, returning def when s is
// empty or not a positive number.
func ParsePositiveInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// =============================================================================
// String Utilities
// =============================================================================

// TruncateStringRunes truncates a string to maxLen runes (Unicode-aware),
// adding "..." suffix if truncation occurs.
func TruncateStringRunes(s string, maxLen int) string {
	if maxLen <= 3 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// Initials returns up to two uppercase letters for an avatar placeholder:
// the first letter of the first two words, or the first two characters of a
// single word.
func Initials(name string) string {
	parts := strings.Fields(name)
	if len(parts) >= 2 {
		return strings.ToUpper(string([]rune{firstRune(parts[0]), firstRune(parts[1])}))
	}
	runes := []rune(strings.TrimSpace(name))
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes))
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return unicode.ReplacementChar
}

// =============================================================================
// Time Formatting
// =============================================================================

// RelativeTime formats t relative to now: "just now", "5m ago", "3h ago",
// "2d ago", "1w ago", "4mo ago", "2y ago". Future times read "just now".
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case seconds < 60:
		return "just now"
	case minutes < 60:
		return strconv.FormatInt(minutes, 10) + "m ago"
	case hours < 24:
		return strconv.FormatInt(hours, 10) + "h ago"
	case days < 7:
		return strconv.FormatInt(days, 10) + "d ago"
	case days/7 < 4:
		return strconv.FormatInt(days/7, 10) + "w ago"
	case days/30 < 12:
		return strconv.FormatInt(days/30, 10) + "mo ago"
	default:
		return strconv.FormatInt(days/365, 10) + "y ago"
	}
}
