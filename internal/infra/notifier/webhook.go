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
	"time"

	"github.com/google/uuid"
)

// WebhookConfig contains configuration for session webhook notifications.
type WebhookConfig struct {
	// Enabled indicates whether webhook notifications are enabled
	Enabled bool

	// WebhookURL is the endpoint that routes messages to client sessions
	WebhookURL string

	// Timeout is the HTTP request timeout for webhook calls
	Timeout time.Duration
}

// WebhookNotifier pushes degraded-service messages to client sessions
// through a webhook endpoint.
type WebhookNotifier struct {
	config      WebhookConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewWebhookNotifier creates a WebhookNotifier with the given configuration.
// The notifier is rate limited to 2 requests/second with a burst of 5 so a
// cascade of dependency failures cannot flood the session channel.
func NewWebhookNotifier(config WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(2.0, 5),
	}
}

// webhookPayload is the JSON body posted to the webhook endpoint.
type webhookPayload struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	ErrorID   string `json:"error_id"`
	Timestamp string `json:"timestamp"`
}

// webhookErrorResponse is the error body returned by the webhook service.
type webhookErrorResponse struct {
	Message    string  `json:"message"`
	Code       int     `json:"code"`
	RetryAfter float64 `json:"retry_after"` // in seconds
}

const (
	maxMessageLength = 2000
	truncationSuffix = "..."
)

// buildPayload assembles the webhook body for one failure notification.
func (w *WebhookNotifier) buildPayload(sessionID, kind, message, errorID string) webhookPayload {
	return webhookPayload{
		SessionID: sessionID,
		Kind:      kind,
		Message:   truncateMessage(message, maxMessageLength, truncationSuffix),
		ErrorID:   errorID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// sendWebhookRequest posts one notification and classifies the response.
//
// Returns:
//   - nil: request succeeded (2xx status)
//   - *RateLimitError: 429, retryable after the indicated delay
//   - *ClientError: other 4xx, non-retryable
//   - *ServerError: 5xx, retryable
func (w *WebhookNotifier) sendWebhookRequest(ctx context.Context, payload webhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			Message:    "webhook rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, body),
		}
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("webhook client error: %s", string(body)),
		}
	}

	if resp.StatusCode >= 500 {
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("webhook server error: %s", string(body)),
		}
	}

	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

// extractRetryAfter extracts the retry_after duration from a 429 response.
// It tries the JSON body first, then the Retry-After header, and defaults
// to 5 seconds.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var webhookErr webhookErrorResponse
	if err := json.Unmarshal(body, &webhookErr); err == nil && webhookErr.RetryAfter > 0 {
		return time.Duration(webhookErr.RetryAfter * float64(time.Second))
	}

	if retryAfterHeader := resp.Header.Get("Retry-After"); retryAfterHeader != "" {
		if seconds, err := strconv.Atoi(retryAfterHeader); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return 5 * time.Second
}

// sendWebhookRequestWithRetry posts a notification with retry logic.
//
// Retry strategy:
//   - Max attempts: 2
//   - 429 errors: wait retry_after from the response, then retry
//   - Server errors (5xx): linear backoff
//   - Client errors (4xx): fail immediately
func (w *WebhookNotifier) sendWebhookRequestWithRetry(ctx context.Context, payload webhookPayload) error {
	const (
		maxAttempts = 2
		baseDelay   = 5 * time.Second
	)

	requestID, _ := ctx.Value(requestIDKey).(string)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := w.sendWebhookRequest(ctx, payload)

		if err == nil {
			slog.Info("session notification delivered",
				slog.String("request_id", requestID),
				slog.String("session_id", payload.SessionID),
				slog.String("error_id", payload.ErrorID),
				slog.Int("attempt", attempt))
			return nil
		}

		lastErr = err

		if rateLimitErr, ok := is429Error(err); ok {
			slog.Warn("webhook rate limit hit, backing off",
				slog.String("request_id", requestID),
				slog.String("session_id", payload.SessionID),
				slog.Duration("retry_after", rateLimitErr.RetryAfter),
				slog.Int("attempt", attempt))

			select {
			case <-time.After(rateLimitErr.RetryAfter):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during rate limit backoff: %w", ctx.Err())
			}
		}

		if !isRetryableError(err) {
			slog.Error("session notification failed with non-retryable error",
				slog.String("request_id", requestID),
				slog.String("session_id", payload.SessionID),
				slog.Any("error", err),
				slog.Int("attempt", attempt))
			return err
		}

		if attempt < maxAttempts {
			delay := baseDelay * time.Duration(attempt)
			slog.Warn("webhook request failed, retrying",
				slog.String("request_id", requestID),
				slog.String("session_id", payload.SessionID),
				slog.Any("error", err),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
			}
		}
	}

	slog.Error("session notification failed after all retries",
		slog.String("request_id", requestID),
		slog.String("session_id", payload.SessionID),
		slog.Any("error", lastErr),
		slog.Int("max_attempts", maxAttempts))

	return fmt.Errorf("session notification failed after %d attempts: %w", maxAttempts, lastErr)
}

// NotifyFailure delivers one failure notification to the session named in
// the call metadata. This method implements the report.Notifier interface.
//
// Metadata without a session identifier is skipped silently: there is no
// session to deliver to, and that is not an error.
func (w *WebhookNotifier) NotifyFailure(ctx context.Context, meta map[string]any, kind, message, errorID string) error {
	sessionID, _ := meta["session_id"].(string)
	if sessionID == "" {
		return nil
	}

	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	slog.Info("starting session notification",
		slog.String("request_id", requestID),
		slog.String("session_id", sessionID),
		slog.String("error_id", errorID))

	if err := w.rateLimiter.Allow(ctx); err != nil {
		slog.Error("rate limiter error",
			slog.String("request_id", requestID),
			slog.String("session_id", sessionID),
			slog.Any("error", err))
		return fmt.Errorf("rate limiter error: %w", err)
	}

	payload := w.buildPayload(sessionID, kind, message, errorID)
	return w.sendWebhookRequestWithRetry(ctx, payload)
}
