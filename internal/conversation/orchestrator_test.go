package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geekyuvi069/CureLink/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	calls    []string
	payloads map[string]map[string]any
}

func (r *recordingRunner) Definitions() []tools.Definition {
	return tools.NewRegistry().Definitions()
}

func (r *recordingRunner) Execute(_ context.Context, name string, _ map[string]any) map[string]any {
	r.calls = append(r.calls, name)
	if p, ok := r.payloads[name]; ok {
		return p
	}
	return map[string]any{"error": "tool not found"}
}

func callReply(name string, args map[string]any) *Reply {
	return &Reply{Parts: []Part{{Call: &FunctionCall{Name: name, Args: args}}}}
}

func textReply(text string) *Reply {
	return &Reply{Parts: []Part{{Text: text}}, Raw: text}
}

var ist = time.FixedZone("IST", 5*3600+1800)

func newOrchestrator(backend Backend, runner ToolRunner, opts ...OrchestratorOption) (*Orchestrator, *MemoryStore) {
	store := NewMemoryStore()
	opts = append([]OrchestratorOption{
		WithLocation(ist),
		WithClock(func() time.Time { return time.Date(2025, 3, 2, 9, 0, 0, 0, ist) }),
	}, opts...)
	return NewOrchestrator(store, backend, runner, nil, opts...), store
}

func TestChat_PlainTextReply(t *testing.T) {
	backend := &scriptedBackend{name: "fake", replies: []*Reply{textReply("Hello! How can I help?")}}
	o, store := newOrchestrator(backend, &recordingRunner{})

	res, err := o.Chat(context.Background(), "", "web", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", res.Response)
	assert.NotEmpty(t, res.SessionID)

	sess, err := store.GetOrCreate(context.Background(), res.SessionID, "")
	require.NoError(t, err)
	require.Len(t, sess.Turns, 2)
	assert.Equal(t, UserText("hi"), sess.Turns[0])
	assert.Equal(t, AssistantText("Hello! How can I help?"), sess.Turns[1])

	req := backend.requests[0]
	assert.Contains(t, req.System, "Today is 2025-03-02 (Sunday)")
	assert.Len(t, req.Tools, 5)
	require.Len(t, req.Transcript, 1)
	assert.Equal(t, RoleUser, req.Transcript[0].Role)
}

func TestChat_ToolLoopPersistsCallThenResult(t *testing.T) {
	backend := &scriptedBackend{name: "fake", replies: []*Reply{
		callReply("check_doctor_availability", map[string]any{"doctor_name": "Ahuja", "date": "2025-03-03"}),
		{Parts: []Part{
			{Call: &FunctionCall{Name: "book_appointment", Args: map[string]any{"doctor_id": float64(1)}}},
			{Call: &FunctionCall{Name: "send_doctor_notification"}},
		}},
		textReply("You're booked for 09:00."),
	}}
	runner := &recordingRunner{payloads: map[string]map[string]any{
		"check_doctor_availability": {"available_slots": []any{"09:00"}},
		"book_appointment":          {"status": "success"},
	}}
	o, store := newOrchestrator(backend, runner)

	res, err := o.Chat(context.Background(), "s1", "web", "book Ahuja Monday 9am")
	require.NoError(t, err)
	assert.Equal(t, "You're booked for 09:00.", res.Response)
	assert.Equal(t, []string{"check_doctor_availability", "book_appointment"}, runner.calls, "only the first call of a reply runs")

	sess, _ := store.GetOrCreate(context.Background(), "s1", "")
	kinds := make([]TurnKind, 0, len(sess.Turns))
	for _, turn := range sess.Turns {
		kinds = append(kinds, turn.Kind)
	}
	assert.Equal(t, []TurnKind{
		KindUserText, KindToolCall, KindToolResult, KindToolCall, KindToolResult, KindAssistantText,
	}, kinds)

	last := backend.requests[2].Transcript
	require.Len(t, last, 5)
	assert.NotNil(t, last[3].Parts[0].Call)
	assert.Equal(t, "success", last[4].Parts[0].Result.Payload["status"])
}

func TestChat_UnknownToolIsFedBack(t *testing.T) {
	backend := &scriptedBackend{name: "fake", replies: []*Reply{
		callReply("cancel_appointment", nil),
		textReply("I can't cancel appointments."),
	}}
	o, _ := newOrchestrator(backend, &recordingRunner{})

	res, err := o.Chat(context.Background(), "s1", "", "cancel my visit")
	require.NoError(t, err)
	assert.Equal(t, "I can't cancel appointments.", res.Response)
	result := backend.requests[1].Transcript[2].Parts[0].Result
	assert.Equal(t, map[string]any{"error": "tool not found"}, result.Payload)
}

func TestChat_BackendFailureBecomesDiagnostic(t *testing.T) {
	backend := &scriptedBackend{name: "fake", errs: []error{errors.New("deadline exceeded")}}
	o, store := newOrchestrator(backend, &recordingRunner{})

	res, err := o.Chat(context.Background(), "s1", "", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Error communicating with AI: deadline exceeded", res.Response)

	sess, _ := store.GetOrCreate(context.Background(), "s1", "")
	require.Len(t, sess.Turns, 2)
	assert.Equal(t, UserText("hello"), sess.Turns[0])
	assert.Equal(t, KindAssistantText, sess.Turns[1].Kind)
}

func TestChat_ToolRoundCap(t *testing.T) {
	replies := make([]*Reply, 0, 5)
	for i := 0; i < 5; i++ {
		replies = append(replies, callReply("list_doctors", nil))
	}
	backend := &scriptedBackend{name: "fake", replies: replies}
	runner := &recordingRunner{payloads: map[string]map[string]any{"list_doctors": {"count": 0}}}
	o, _ := newOrchestrator(backend, runner, WithMaxToolRounds(2))

	res, err := o.Chat(context.Background(), "s1", "", "loop forever")
	require.NoError(t, err)
	assert.Contains(t, res.Response, "Error communicating with AI:")
	assert.Len(t, runner.calls, 2)
}

func TestChat_EmptyAndRawFallback(t *testing.T) {
	backend := &scriptedBackend{name: "fake", replies: []*Reply{
		{Raw: "raw text only"},
		{},
	}}
	o, _ := newOrchestrator(backend, &recordingRunner{})

	res, err := o.Chat(context.Background(), "s1", "", "one")
	require.NoError(t, err)
	assert.Equal(t, "raw text only", res.Response)

	res, err = o.Chat(context.Background(), "s1", "", "two")
	require.NoError(t, err)
	assert.Empty(t, res.Response)
}

func TestChat_OrphanResultsAreNotSent(t *testing.T) {
	backend := &scriptedBackend{name: "fake", replies: []*Reply{textReply("ok")}}
	o, store := newOrchestrator(backend, &recordingRunner{})
	ctx := context.Background()

	_, err := store.GetOrCreate(ctx, "s1", "")
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "s1",
		ToolResult("book_appointment", map[string]any{"status": "success"}),
		AssistantText("Booked."),
	))

	_, err = o.Chat(ctx, "s1", "", "thanks")
	require.NoError(t, err)
	transcript := backend.requests[0].Transcript
	require.Len(t, transcript, 2)
	assert.Equal(t, RoleModel, transcript[0].Role)
	assert.Nil(t, transcript[0].Parts[0].Result)
}
