package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/geekyuvi069/CureLink/pkg/logging"
)

const emptyReply = "No response generated."

// Chatter is the orchestrator surface used by transports.
type Chatter interface {
	Chat(ctx context.Context, sessionID, owner, message string) (*ChatResult, error)
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is returned by POST /api/chat.
type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// Handler wires HTTP requests to the orchestrator.
type Handler struct {
	chat   Chatter
	logger *logging.Logger
}

// NewHandler creates a chat handler.
func NewHandler(chat Chatter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{chat: chat, logger: logger}
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat request", "error", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "detail": "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "detail": "message is required"})
		return
	}

	res, err := h.chat.Chat(r.Context(), req.SessionID, "web", req.Message)
	if err != nil {
		h.logger.Error("failed to process chat message", "session_id", req.SessionID, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "detail": err.Error()})
		return
	}

	text := res.Response
	if strings.TrimSpace(text) == "" {
		text = emptyReply
	}
	h.writeJSON(w, http.StatusOK, ChatResponse{Response: text, SessionID: res.SessionID, Status: "success"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
