package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geekyuvi069/CureLink/internal/observability/metrics"
	"github.com/geekyuvi069/CureLink/internal/tools"
	"github.com/geekyuvi069/CureLink/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultMaxToolRounds = 8

// ErrToolRoundsExceeded stops a turn whose model keeps requesting tools.
var ErrToolRoundsExceeded = errors.New("conversation: too many consecutive tool calls")

// ToolRunner advertises and executes tools. Execute reports failures inside
// the payload.
type ToolRunner interface {
	Definitions() []tools.Definition
	Execute(ctx context.Context, name string, args map[string]any) map[string]any
}

// ChatResult is the outcome of one user message.
type ChatResult struct {
	Response  string
	SessionID string
}

// Orchestrator drives the tool-calling loop for one user message at a time
// per session.
type Orchestrator struct {
	store     Store
	backend   Backend
	tools     ToolRunner
	loc       *time.Location
	maxRounds int
	now       func() time.Time
	metrics   *metrics.AgentMetrics
	logger    *logging.Logger
	tracer    trace.Tracer
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

func WithMaxToolRounds(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRounds = n
		}
	}
}

func WithLocation(loc *time.Location) OrchestratorOption {
	return func(o *Orchestrator) {
		if loc != nil {
			o.loc = loc
		}
	}
}

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func WithMetrics(m *metrics.AgentMetrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

func NewOrchestrator(store Store, backend Backend, runner ToolRunner, logger *logging.Logger, opts ...OrchestratorOption) *Orchestrator {
	if store == nil || backend == nil || runner == nil {
		panic("conversation: store, backend and tools are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	o := &Orchestrator{
		store:     store,
		backend:   backend,
		tools:     runner,
		loc:       time.UTC,
		maxRounds: defaultMaxToolRounds,
		now:       time.Now,
		logger:    logger,
		tracer:    otel.Tracer("curelink.internal.conversation"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Chat records message, runs the model/tool loop until the model answers in
// text, and records the answer. Backend failures are turned into a
// diagnostic reply that is stored like any other answer; only session store
// failures before the loop starts are returned as errors.
func (o *Orchestrator) Chat(ctx context.Context, sessionID, owner, message string) (*ChatResult, error) {
	ctx, span := o.tracer.Start(ctx, "conversation.chat")
	defer span.End()

	sess, err := o.store.GetOrCreate(ctx, sessionID, owner)
	if err != nil {
		span.RecordError(err)
		o.metrics.ObserveChatTurn("error")
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))

	user := UserText(message)
	if err := o.store.Append(ctx, sess.ID, user); err != nil {
		span.RecordError(err)
		o.metrics.ObserveChatTurn("error")
		return nil, fmt.Errorf("conversation: record message: %w", err)
	}

	history := appendTruncated(sess.Turns, []Turn{user})
	text, err := o.loop(ctx, sess.ID, Sanitize(Encode(history)))
	status := "success"
	if err != nil {
		span.RecordError(err)
		o.logger.Error("agent turn failed", "session_id", sess.ID, "error", err)
		text = fmt.Sprintf("Error communicating with AI: %v", err)
		status = "error"
	}

	if err := o.store.Append(ctx, sess.ID, AssistantText(text)); err != nil {
		span.RecordError(err)
		o.logger.Error("failed to record assistant reply", "session_id", sess.ID, "error", err)
	}
	o.metrics.ObserveChatTurn(status)
	return &ChatResult{Response: text, SessionID: sess.ID}, nil
}

func (o *Orchestrator) loop(ctx context.Context, sessionID string, transcript []Content) (string, error) {
	req := GenerateRequest{
		System:     SystemPrompt(o.now(), o.loc),
		Transcript: transcript,
		Tools:      o.tools.Definitions(),
	}

	reply, err := o.generate(ctx, req)
	if err != nil {
		return "", err
	}

	for rounds := 0; ; rounds++ {
		call := FirstCall(reply.Parts)
		if call == nil {
			break
		}
		if rounds >= o.maxRounds {
			return "", fmt.Errorf("%w (limit %d)", ErrToolRoundsExceeded, o.maxRounds)
		}

		o.logger.Info("executing tool", "session_id", sessionID, "tool", call.Name)
		payload := o.tools.Execute(ctx, call.Name, call.Args)

		if err := o.store.Append(ctx, sessionID, ToolCall(call.Name, call.Args), ToolResult(call.Name, payload)); err != nil {
			return "", fmt.Errorf("conversation: record tool exchange: %w", err)
		}
		req.Transcript = append(req.Transcript,
			Content{Role: RoleModel, Parts: []Part{{Call: call}}},
			Content{Role: RoleUser, Parts: []Part{{Result: &FunctionResult{Name: call.Name, Payload: payload}}}},
		)

		reply, err = o.generate(ctx, req)
		if err != nil {
			return "", err
		}
	}

	if text := JoinText(reply.Parts); text != "" {
		return text, nil
	}
	return strings.TrimSpace(reply.Raw), nil
}

func (o *Orchestrator) generate(ctx context.Context, req GenerateRequest) (*Reply, error) {
	start := time.Now()
	reply, err := o.backend.Generate(ctx, req)
	o.metrics.ObserveBackendLatency(o.backend.Name(), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if reply == nil {
		reply = &Reply{}
	}
	return reply, nil
}
