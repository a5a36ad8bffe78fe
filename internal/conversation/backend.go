package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/geekyuvi069/CureLink/internal/tools"
)

// ErrBackend marks failures talking to the generative backend.
var ErrBackend = errors.New("conversation: generative backend error")

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// GenerateRequest is one round trip to a generative backend.
type GenerateRequest struct {
	System     string
	Transcript []Content
	Tools      []tools.Definition
}

// Reply is the backend's answer. Parts may hold text and function calls and
// may be empty. Raw is the backend's whole-response text, used when Parts
// carry no text.
type Reply struct {
	Parts        []Part
	Raw          string
	FinishReason string
	Usage        TokenUsage
}

// Backend exchanges a transcript plus the declared tools for the next
// model turn.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (*Reply, error)
}

// Unavailable stands in when no model credentials are configured. Every
// turn becomes the diagnostic reply.
type Unavailable struct{}

func (Unavailable) Name() string { return "unavailable" }

func (Unavailable) Generate(context.Context, GenerateRequest) (*Reply, error) {
	return nil, fmt.Errorf("%w: no model credentials configured", ErrBackend)
}
