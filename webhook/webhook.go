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

	"github.com/use-agent/termharvest/models"
	"github.com/use-agent/termharvest/retry"
)

// Event types.
const (
	EventCompleted   = "harvest.completed"
	EventInterrupted = "harvest.interrupted"
)

// SignatureHeader carries the HMAC-SHA256 of the body: "sha256=<hex>".
const SignatureHeader = "X-Harvest-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string             `json:"type"`
	Timestamp int64              `json:"timestamp"`
	Summary   *models.RunSummary `json:"summary"`
}

// NewEvent builds the end-of-run event for summary.
func NewEvent(summary *models.RunSummary) *Event {
	typ := EventCompleted
	if summary.Interrupted {
		typ = EventInterrupted
	}
	return &Event{Type: typ, Timestamp: time.Now().Unix(), Summary: summary}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends a webhook event once.
// The request body is signed with HMAC-SHA256 if secret is non-empty.
func Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "termharvest-webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, Sign(secret, body))
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// DefaultDelays are the waits before each delivery attempt.
var DefaultDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second}

// DeliverWithRetry sends event, waiting delays[i] before attempt i+1.
// It blocks until delivery succeeds, every attempt fails or ctx is done,
// so the process can exit only after the endpoint has been told.
func DeliverWithRetry(ctx context.Context, url, secret string, event *Event, delays []time.Duration) error {
	if len(delays) == 0 {
		delays = []time.Duration{0}
	}

	var lastErr error
	for attempt, delay := range delays {
		if delay > 0 {
			if err := retry.Sleep(ctx, delay); err != nil {
				return fmt.Errorf("webhook: %w", err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		lastErr = Deliver(attemptCtx, url, secret, event)
		cancel()
		if lastErr == nil {
			slog.Info("webhook delivered",
				"url", url,
				"event", event.Type,
				"attempt", attempt+1,
			)
			return nil
		}
		slog.Warn("webhook delivery failed",
			"url", url,
			"event", event.Type,
			"attempt", attempt+1,
			"error", lastErr,
		)
	}

	slog.Error("webhook delivery exhausted all retries", "url", url, "event", event.Type)
	return lastErr
}
