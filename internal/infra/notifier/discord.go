package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"newsrelay/internal/domain/entity"
	"newsrelay/internal/observability/logging"
	"newsrelay/internal/observability/tracing"
)

// DiscordConfig contains configuration for Discord webhook notifications.
type DiscordConfig struct {
	// WebhookURL is the Discord webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for one webhook post
	Timeout time.Duration

	// Content is the text posted above the embed
	Content string

	// Footer is the embed footer label
	Footer string

	// FallbackDescription is used when an item has no summary
	FallbackDescription string

	// DescriptionLimit is the maximum description length in characters
	DescriptionLimit int

	// Color is the embed accent color
	Color int
}

// DefaultDiscordConfig returns the stock payload settings.
func DefaultDiscordConfig() DiscordConfig {
	return DiscordConfig{
		Timeout:             10 * time.Second,
		Content:             "⚠️ New post published! ⚠️",
		Footer:              "News Relay",
		FallbackDescription: "A new post is available.",
		DescriptionLimit:    2000,
		Color:               3447003,
	}
}

// DiscordNotifier sends item notifications to Discord via webhook.
type DiscordNotifier struct {
	config     DiscordConfig
	httpClient *http.Client
	now        func() time.Time
}

// NewDiscordNotifier creates a new DiscordNotifier with the specified configuration.
// The HTTP client carries config.Timeout, which bounds each post.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		now: time.Now,
	}
}

// DiscordWebhookPayload represents the JSON payload sent to Discord webhook.
type DiscordWebhookPayload struct {
	Content string         `json:"content"`
	Embeds  []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed represents a Discord embed message.
type DiscordEmbed struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	URL         string             `json:"url"`
	Color       int                `json:"color"`
	Footer      DiscordEmbedFooter `json:"footer"`
	Timestamp   string             `json:"timestamp"`
}

// DiscordEmbedFooter represents the footer of a Discord embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// DiscordErrorResponse represents the error response from Discord API.
type DiscordErrorResponse struct {
	Message    string  `json:"message"`
	Code       int     `json:"code"`
	RetryAfter float64 `json:"retry_after"` // In seconds
}

// Discord rejects embed titles longer than this.
const maxTitleLength = 256

// buildEmbedPayload creates the webhook payload for one item.
// The timestamp is the send time in UTC, not the item's publication time.
func (d *DiscordNotifier) buildEmbedPayload(item *entity.SourceItem) DiscordWebhookPayload {
	description := strings.TrimSpace(item.Summary)
	if description == "" {
		description = d.config.FallbackDescription
	}

	return DiscordWebhookPayload{
		Content: d.config.Content,
		Embeds: []DiscordEmbed{{
			Title:       truncateRunes(item.Title, maxTitleLength),
			Description: truncateRunes(description, d.config.DescriptionLimit),
			URL:         item.Link,
			Color:       d.config.Color,
			Footer:      DiscordEmbedFooter{Text: d.config.Footer},
			Timestamp:   d.now().UTC().Format(time.RFC3339),
		}},
	}
}

// sendWebhookRequest posts the payload once.
//
// Returns nil only for 200 and 204. Otherwise:
//   - 429: RateLimitError
//   - other 4xx: ClientError
//   - 5xx: ServerError
//   - anything else: UnexpectedStatusError
//   - transport failure: wrapped net/http error
func (d *DiscordNotifier) sendWebhookRequest(ctx context.Context, payload DiscordWebhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    "Discord rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, body),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Discord API client error %d: %s", resp.StatusCode, string(body)),
		}
	case resp.StatusCode >= 500:
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Discord API server error %d: %s", resp.StatusCode, string(body)),
		}
	default:
		return &UnexpectedStatusError{StatusCode: resp.StatusCode}
	}
}

// extractRetryAfter extracts retry_after duration from Discord error response.
// It tries to parse from JSON body first, then falls back to Retry-After header.
// Only used for logging; the item waits for the next cycle either way.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var discordErr DiscordErrorResponse
	if err := json.Unmarshal(body, &discordErr); err == nil && discordErr.RetryAfter > 0 {
		return time.Duration(discordErr.RetryAfter * float64(time.Second))
	}

	if retryAfterHeader := resp.Header.Get("Retry-After"); retryAfterHeader != "" {
		if seconds, err := strconv.Atoi(retryAfterHeader); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return 5 * time.Second
}

// NotifyItem sends one Discord notification for item. It makes exactly one
// attempt; the caller decides what a failure means for the item.
func (d *DiscordNotifier) NotifyItem(ctx context.Context, item *entity.SourceItem) error {
	requestID := uuid.New().String()
	logger := logging.FromContext(ctx).With(
		slog.String("request_id", requestID),
		slog.String("post_id", item.ID))

	ctx, span := tracing.GetTracer().Start(ctx, "notifier.discord")
	defer span.End()
	span.SetAttributes(
		attribute.String("request_id", requestID),
		attribute.String("post_id", item.ID))

	start := time.Now()
	err := d.sendWebhookRequest(ctx, d.buildEmbedPayload(item))
	notificationDuration.Observe(time.Since(start).Seconds())
	notificationSentTotal.WithLabelValues(errorKind(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errorKind(err))
		logger.Warn("Discord notification failed",
			slog.String("url", item.Link),
			slog.String("kind", errorKind(err)),
			slog.String("error", logging.SanitizeError(err)))
		return err
	}

	logger.Info("Discord notification successful", slog.String("url", item.Link))
	return nil
}
