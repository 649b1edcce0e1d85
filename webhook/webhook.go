package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// Event types.
const (
	EventCrawlCompleted = "crawl.completed"
	EventCrawlFailed    = "crawl.failed"
)

// SignatureHeader carries "sha256=<hex>" of the body when a secret is set.
const SignatureHeader = "X-Threadscope-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string      `json:"type"`
	JobID     string      `json:"jobId"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// DefaultDelays are the waits before each retry after the first attempt.
var DefaultDelays = []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second}

// Notifier delivers events with retries.
type Notifier struct {
	Client *http.Client
	Delays []time.Duration
	Logger *slog.Logger
}

// NewNotifier returns a notifier whose attempts time out after timeout.
func NewNotifier(timeout time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		Client: &http.Client{Timeout: timeout},
		Delays: DefaultDelays,
		Logger: logger,
	}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends a webhook event once.
func (n *Notifier) Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Threadscope-Webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, Sign(secret, body))
	}

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Send delivers event, retrying after each of n.Delays.
func (n *Notifier) Send(ctx context.Context, url, secret string, event *Event) error {
	attempt := 0
	err := retry.Do(ctx, schedule(n.Delays), func(ctx context.Context) error {
		attempt++
		if err := n.Deliver(ctx, url, secret, event); err != nil {
			n.Logger.Warn("webhook delivery failed",
				"url", url,
				"event", event.Type,
				"jobId", event.JobID,
				"attempt", attempt,
				"error", err,
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		n.Logger.Error("webhook delivery exhausted all retries",
			"url", url,
			"event", event.Type,
			"jobId", event.JobID,
		)
		return err
	}
	n.Logger.Info("webhook delivered", "url", url, "event", event.Type, "jobId", event.JobID, "attempt", attempt)
	return nil
}

// SendAsync runs Send in the background, detached from any request context.
func (n *Notifier) SendAsync(url, secret string, event *Event) {
	go func() { _ = n.Send(context.Background(), url, secret, event) }()
}

// schedule yields the given delays in order, then stops.
func schedule(delays []time.Duration) retry.Backoff {
	i := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		if i >= len(delays) {
			return 0, true
		}
		d := delays[i]
		i++
		return d, false
	})
}
