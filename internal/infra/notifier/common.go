package notifier

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// ErrSinkNotConfigured is returned by the no-op notifier when no webhook URL
// was provided.
var ErrSinkNotConfigured = errors.New("notification sink not configured")

// Webhook error types. They classify a failed delivery for logs and metrics;
// none of them is retried within a cycle.

// RateLimitError represents a 429 rate limit error from a webhook service.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string // Optional custom message
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError represents a 4xx client error from a webhook service.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError represents a 5xx server error from a webhook service.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// UnexpectedStatusError is any other status outside {200, 204}, including
// other 2xx codes.
type UnexpectedStatusError struct {
	StatusCode int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected webhook status %d", e.StatusCode)
}

// errorKind returns a short label for metrics.
func errorKind(err error) string {
	var (
		rateLimitErr *RateLimitError
		clientErr    *ClientError
		serverErr    *ServerError
		statusErr    *UnexpectedStatusError
	)
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrSinkNotConfigured):
		return "disabled"
	case errors.As(err, &rateLimitErr):
		return "rate_limited"
	case errors.As(err, &clientErr):
		return "client_error"
	case errors.As(err, &serverErr):
		return "server_error"
	case errors.As(err, &statusErr):
		return "unexpected_status"
	default:
		return "transport_error"
	}
}

// truncateRunes cuts text to at most maxRunes characters without splitting
// a multi-byte character.
func truncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	n := 0
	for i := range text {
		if n == maxRunes {
			return text[:i]
		}
		n++
	}
	return text
}
