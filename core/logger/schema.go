package logger

import "strings"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// Known values for the status and outcome attributes. Unknown outcomes are dropped.
var (
	knownStatus  = []string{"ok", "fail", "skip", "retry", "rate_limited", "cancelled", "denied", "expired"}
	knownOutcome = []string{"ok", "fail", "cancelled", "rate_limited", "success", "pending", "failed", "error"}
)

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeEnum(value string, known []string) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", false
	}
	for _, k := range known {
		if k == value {
			return k, true
		}
	}
	return value, false
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"cb_key",
	"state",
	"from_state",
	"to_state",
	"category",
	"offer_id",
	"amount",
	"phone",
	"reference",
	"outcome",
	"http_code",
	"duration_ms",
	"messages",
	"kb",
	"count",
	"sent",
	"failed",
	"total",
	"payload",
	"username",
	"mode",
	"listen",
	"public_url",
	"driver",
	"db",
	"host",
	"port",
	"path",
	"err",
	"err_code",
	"cause",
	"attempts",
}
