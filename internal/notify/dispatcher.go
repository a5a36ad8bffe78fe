package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/geekyuvi069/CureLink/pkg/logging"
)

// DeliveryStatus is the outcome of a notification attempt.
type DeliveryStatus string

const (
	Delivered DeliveryStatus = "delivered"
	Mocked    DeliveryStatus = "mocked"
	Failed    DeliveryStatus = "failed"
)

// DefaultChannel is the channel name used when callers pass none.
const DefaultChannel = "slack"

// Delivery reports what happened to one notification. It is returned as data
// and never as an error.
type Delivery struct {
	Status    DeliveryStatus `json:"-"`
	Result    string         `json:"status"`
	Mode      string         `json:"mode,omitempty"`
	Channel   string         `json:"channel,omitempty"`
	Recipient string         `json:"recipient"`
	Message   string         `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// Payload renders the delivery as a tool-result map.
func (d Delivery) Payload() map[string]any {
	out := map[string]any{
		"status":    d.Result,
		"recipient": d.Recipient,
		"timestamp": d.Timestamp,
	}
	if d.Mode != "" {
		out["mode"] = d.Mode
	}
	if d.Channel != "" {
		out["channel"] = d.Channel
	}
	if d.Message != "" {
		out["message"] = d.Message
	}
	if d.Error != "" {
		out["error"] = d.Error
	}
	return out
}

// Dispatcher delivers formatted messages to a chat channel through an
// incoming-webhook URL. Without a URL every notification is Mocked.
type Dispatcher struct {
	webhookURL string
	client     *http.Client
	now        func() time.Time
	logger     *logging.Logger
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHTTPClient overrides the HTTP client used for webhook posts.
func WithHTTPClient(client *http.Client) DispatcherOption {
	return func(d *Dispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func NewDispatcher(webhookURL string, logger *logging.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	d := &Dispatcher{
		webhookURL: strings.TrimSpace(webhookURL),
		client:     &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify sends message to recipient on channel.
func (d *Dispatcher) Notify(ctx context.Context, recipient, message, channel string) Delivery {
	if channel == "" {
		channel = DefaultChannel
	}
	now := d.now()
	delivery := Delivery{
		Recipient: recipient,
		Channel:   channel,
		Timestamp: now.Format(time.RFC3339),
	}

	if d.webhookURL == "" {
		d.logger.Info("mock notification", "recipient", recipient, "channel", channel, "message", message)
		delivery.Status = Mocked
		delivery.Result = "success"
		delivery.Mode = "mock"
		delivery.Message = message
		return delivery
	}

	if err := d.post(ctx, BuildSlackPayload(recipient, message, now)); err != nil {
		d.logger.Error("notification delivery failed", "recipient", recipient, "channel", channel, "error", err)
		delivery.Status = Failed
		delivery.Result = "failed"
		delivery.Error = err.Error()
		return delivery
	}

	delivery.Status = Delivered
	delivery.Result = "success"
	delivery.Mode = "live"
	return delivery
}

func (d *Dispatcher) post(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook error: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// SplitMessage separates the headline (first line) from body lines. Blank
// lines are dropped.
func SplitMessage(message string) (string, []string) {
	lines := strings.Split(strings.TrimSpace(message), "\n")
	headline := strings.TrimSpace(lines[0])
	if headline == "" {
		headline = "New Update"
	}
	var body []string
	for _, line := range lines[1:] {
		if line = strings.TrimSpace(line); line != "" {
			body = append(body, line)
		}
	}
	return headline, body
}

// BuildSlackPayload renders an attachment with a header, greeting, bulleted
// body and timestamp footer.
func BuildSlackPayload(recipient, message string, issued time.Time) map[string]any {
	headline, body := SplitMessage(message)

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{"type": "plain_text", "text": "🏥 CureLink Clinic", "emoji": true},
		},
		{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Hello %s,*\n%s", recipient, headline)},
		},
	}
	if len(body) > 0 {
		bullets := make([]string, 0, len(body))
		for _, line := range body {
			if !strings.HasPrefix(line, "•") && !strings.HasPrefix(line, "-") {
				line = "• " + line
			}
			bullets = append(bullets, line)
		}
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": strings.Join(bullets, "\n")},
		})
	}
	blocks = append(blocks,
		map[string]any{"type": "divider"},
		map[string]any{
			"type": "context",
			"elements": []map[string]any{{
				"type": "mrkdwn",
				"text": fmt.Sprintf("📅 *Issued:* %s  •  🤖 *AI Assistant*", issued.Format("Jan 02, 2006 | 15:04")),
			}},
		},
	)

	return map[string]any{
		"text": headline,
		"attachments": []map[string]any{{
			"color":  "#36a64f",
			"blocks": blocks,
		}},
	}
}
