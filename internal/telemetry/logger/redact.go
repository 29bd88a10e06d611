package logger

import (
	"log/slog"
	"strings"

	"github.com/yndnr/redwire-go/pkg/redis"
)

// Key patterns whose string values are always masked.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"credential",
	"auth",
	"token",
}

// redactedValue is the placeholder for masked values.
const redactedValue = "***REDACTED***"

// redactAttr masks attribute values that would leak credentials.
// Endpoint-looking values keep everything except the password so logs
// stay useful for correlating connection problems.
func redactAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		val := a.Value.String()
		if val == "" {
			return a
		}
		if looksLikeEndpoint(val) {
			return slog.String(a.Key, redis.RedactEndpoint(val))
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		masked := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			masked[i] = redactAttr(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}
	return a
}

// IsSensitiveKey reports whether a key name suggests secret content.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func looksLikeEndpoint(val string) bool {
	return strings.Contains(val, "://") && strings.Contains(val, "@")
}
