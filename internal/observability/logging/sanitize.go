package logging

import (
	"regexp"
)

var (
	// Discord webhook token (the path segment after the webhook ID)
	webhookTokenPattern = regexp.MustCompile(`(/api/webhooks/\d+/)[A-Za-z0-9_\-]+`)

	// データベースパスワードパターン（DSN内）
	dbPasswordPattern = regexp.MustCompile(`://([^:/@]+):([^@]+)@`)
)

// SanitizeError returns the error message with webhook tokens and DSN
// passwords masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error())
}

// SanitizeString masks secrets in an arbitrary string such as a URL.
func SanitizeString(msg string) string {
	msg = webhookTokenPattern.ReplaceAllString(msg, "${1}****")
	msg = dbPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	return msg
}
