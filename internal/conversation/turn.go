package conversation

import (
	"fmt"
	"time"
)

// TurnKind tags the variant carried by a Turn.
type TurnKind string

const (
	KindUserText      TurnKind = "user_text"
	KindAssistantText TurnKind = "assistant_text"
	KindToolCall      TurnKind = "tool_call"
	KindToolResult    TurnKind = "tool_result"
)

// Turn is one unit of conversation history. Text is set for the two text
// kinds; Name and Args for tool calls; Name and Payload for tool results.
type Turn struct {
	Kind    TurnKind       `json:"kind"`
	Text    string         `json:"text,omitempty"`
	Name    string         `json:"name,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

func UserText(text string) Turn      { return Turn{Kind: KindUserText, Text: text} }
func AssistantText(text string) Turn { return Turn{Kind: KindAssistantText, Text: text} }

func ToolCall(name string, args map[string]any) Turn {
	return Turn{Kind: KindToolCall, Name: name, Args: args}
}

func ToolResult(name string, payload map[string]any) Turn {
	return Turn{Kind: KindToolResult, Name: name, Payload: payload}
}

// Validate rejects turns whose fields do not fit their kind.
func (t Turn) Validate() error {
	switch t.Kind {
	case KindUserText, KindAssistantText:
		return nil
	case KindToolCall, KindToolResult:
		if t.Name == "" {
			return fmt.Errorf("conversation: %s turn without a tool name", t.Kind)
		}
		return nil
	default:
		return fmt.Errorf("conversation: unknown turn kind %q", t.Kind)
	}
}

// MaxTurns bounds the stored history of a session.
const MaxTurns = 60

// Session is the durable conversation state for one user or channel.
type Session struct {
	ID           string         `json:"session_id"`
	Owner        string         `json:"owner,omitempty"`
	Turns        []Turn         `json:"turns"`
	Context      map[string]any `json:"context,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActivity time.Time      `json:"last_activity"`
}

// appendTruncated appends extra to turns and keeps the newest MaxTurns.
func appendTruncated(turns []Turn, extra []Turn) []Turn {
	merged := make([]Turn, 0, len(turns)+len(extra))
	merged = append(merged, turns...)
	merged = append(merged, extra...)
	if len(merged) > MaxTurns {
		merged = append([]Turn(nil), merged[len(merged)-MaxTurns:]...)
	}
	return merged
}
