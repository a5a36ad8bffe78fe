package slack

import "strings"

const (
	envelopeURLVerification = "url_verification"
	envelopeEventCallback   = "event_callback"

	eventMessage    = "message"
	eventAppMention = "app_mention"
)

// Envelope is the outer body of an Events API request.
type Envelope struct {
	Type      string `json:"type"`
	Token     string `json:"token,omitempty"`
	Challenge string `json:"challenge,omitempty"`
	TeamID    string `json:"team_id,omitempty"`
	EventID   string `json:"event_id,omitempty"`
	EventTime int64  `json:"event_time,omitempty"`
	Event     *Event `json:"event,omitempty"`
}

// Event is the inner event of an event_callback envelope.
type Event struct {
	Type     string `json:"type"`
	Subtype  string `json:"subtype,omitempty"`
	User     string `json:"user,omitempty"`
	BotID    string `json:"bot_id,omitempty"`
	Text     string `json:"text"`
	Channel  string `json:"channel"`
	TS       string `json:"ts,omitempty"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

// InboundMessage is the queued unit of work for one user message.
type InboundMessage struct {
	EventID  string `json:"event_id,omitempty"`
	User     string `json:"user"`
	Channel  string `json:"channel"`
	ThreadTS string `json:"thread_ts,omitempty"`
	Text     string `json:"text"`
}

// SessionID is stable per user so a Slack user keeps one conversation.
func (m InboundMessage) SessionID() string {
	return "slack_" + m.User
}

// PostMessageRequest is the chat.postMessage body.
type PostMessageRequest struct {
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

// PostMessageResponse is the chat.postMessage reply. Slack reports API
// failures with ok=false and HTTP 200.
type PostMessageResponse struct {
	OK      bool   `json:"ok"`
	Channel string `json:"channel,omitempty"`
	TS      string `json:"ts,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handled reports whether ev is a user message the assistant should answer.
func (ev *Event) handled() bool {
	if ev == nil || ev.BotID != "" || ev.Subtype != "" {
		return false
	}
	return ev.Type == eventMessage || ev.Type == eventAppMention
}

// StripLeadingMention removes a leading "<@U123>" style mention.
func StripLeadingMention(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "<@") {
		return text
	}
	end := strings.IndexByte(text, '>')
	if end < 0 {
		return text
	}
	return strings.TrimSpace(text[end+1:])
}
