package slack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/geekyuvi069/CureLink/internal/events"
	"github.com/geekyuvi069/CureLink/internal/observability/metrics"
	"github.com/geekyuvi069/CureLink/pkg/logging"
)

const (
	headerTimestamp = "X-Slack-Request-Timestamp"
	headerSignature = "X-Slack-Signature"
	maxBodyBytes    = 1 << 20
	provider        = "slack"
)

// Enqueuer hands a message to the out-of-band worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg InboundMessage) error
}

// WebhookHandler serves POST /api/slack/events.
type WebhookHandler struct {
	signingSecret string
	queue         Enqueuer
	processed     events.Tracker
	metrics       *metrics.AgentMetrics
	logger        *logging.Logger
	now           func() time.Time
}

// WebhookOption customizes a WebhookHandler.
type WebhookOption func(*WebhookHandler)

// WithProcessedTracker drops redelivered events that share an event_id.
func WithProcessedTracker(t events.Tracker) WebhookOption {
	return func(h *WebhookHandler) { h.processed = t }
}

func WithWebhookMetrics(m *metrics.AgentMetrics) WebhookOption {
	return func(h *WebhookHandler) { h.metrics = m }
}

func WithWebhookClock(now func() time.Time) WebhookOption {
	return func(h *WebhookHandler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewWebhookHandler creates the events handler. An empty signingSecret
// disables verification.
func NewWebhookHandler(signingSecret string, queue Enqueuer, logger *logging.Logger, opts ...WebhookOption) *WebhookHandler {
	if queue == nil {
		panic("slack: enqueuer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &WebhookHandler{
		signingSecret: signingSecret,
		queue:         queue,
		logger:        logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if signingSecret == "" {
		logger.Warn("slack signing secret not configured; webhook signatures will not be verified")
	}
	return h
}

// HandleEvents acknowledges immediately and queues user messages.
func (h *WebhookHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.reject(w, "unknown", http.StatusBadRequest, "Invalid request body")
		return
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		h.reject(w, "unknown", http.StatusBadRequest, "Invalid request body")
		return
	}

	if env.Type == envelopeURLVerification {
		h.metrics.ObserveWebhookEvent(envelopeURLVerification, "ok")
		writeJSON(w, http.StatusOK, map[string]string{"challenge": env.Challenge})
		return
	}

	if h.signingSecret != "" {
		if err := VerifySignature(h.signingSecret, r.Header.Get(headerTimestamp), body, r.Header.Get(headerSignature), h.now()); err != nil {
			h.logger.Warn("rejected slack webhook", "error", err)
			h.reject(w, env.Type, http.StatusBadRequest, detailFor(err))
			return
		}
	}

	eventType := env.Type
	if env.Event != nil {
		eventType = env.Event.Type
	}
	if env.Type != envelopeEventCallback || !env.Event.handled() {
		h.metrics.ObserveWebhookEvent(eventType, "ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	dedupe := h.processed != nil && env.EventID != ""
	if dedupe {
		seen, err := h.processed.AlreadyProcessed(r.Context(), provider, env.EventID)
		if err != nil {
			h.logger.Warn("slack event dedupe failed", "event_id", env.EventID, "error", err)
		} else if seen {
			h.metrics.ObserveWebhookEvent(eventType, "duplicate")
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
	}

	msg := InboundMessage{
		EventID:  env.EventID,
		User:     env.Event.User,
		Channel:  env.Event.Channel,
		ThreadTS: env.Event.ThreadTS,
		Text:     StripLeadingMention(env.Event.Text),
	}
	status := "queued"
	// Record the id only after the event is queued.
	if err := h.queue.Enqueue(r.Context(), msg); err != nil {
		h.logger.Error("failed to enqueue slack event", "event_id", env.EventID, "error", err)
		status = "error"
	} else if dedupe {
		if _, err := h.processed.MarkProcessed(r.Context(), provider, env.EventID); err != nil {
			h.logger.Warn("failed to record slack event", "event_id", env.EventID, "error", err)
		}
	}
	h.metrics.ObserveWebhookEvent(eventType, status)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) reject(w http.ResponseWriter, eventType string, code int, detail string) {
	h.metrics.ObserveWebhookEvent(eventType, "rejected")
	writeJSON(w, code, map[string]string{"detail": detail})
}

func detailFor(err error) string {
	switch {
	case errors.Is(err, ErrMissingSignature):
		return "Missing Slack headers"
	case errors.Is(err, ErrStaleTimestamp):
		return "Request too old"
	default:
		return "Invalid signature"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
