package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/geekyuvi069/CureLink/pkg/logging"
)

const (
	defaultAPIBase     = "https://slack.com/api"
	defaultHTTPTimeout = 10 * time.Second
)

// Client posts replies with chat.postMessage. Without a bot token it only
// logs the reply.
type Client struct {
	botToken   string
	apiBase    string
	httpClient *http.Client
	logger     *logging.Logger
}

func NewClient(botToken string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		botToken:   botToken,
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logger,
	}
}

// SetAPIBase overrides the Web API base URL (useful for testing).
func (c *Client) SetAPIBase(base string) {
	c.apiBase = base
}

// Configured reports whether replies are actually delivered.
func (c *Client) Configured() bool {
	return c.botToken != ""
}

// PostMessage sends text to channel, threading under threadTS when set.
func (c *Client) PostMessage(ctx context.Context, channel, text, threadTS string) error {
	if !c.Configured() {
		c.logger.Info("slack bot token not configured; mock reply", "channel", channel, "text", text)
		return nil
	}

	body, err := json.Marshal(PostMessageRequest{Channel: channel, Text: text, ThreadTS: threadTS})
	if err != nil {
		return fmt.Errorf("slack: marshal post request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("slack: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack: chat.postMessage returned %d: %s", resp.StatusCode, string(respBody))
	}
	var out PostMessageResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return fmt.Errorf("slack: unmarshal response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("slack: chat.postMessage failed: %s", out.Error)
	}
	return nil
}
