package conversation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRoles(t *testing.T) {
	turns := []Turn{
		UserText("is Dr. Smith free on Monday?"),
		ToolCall("check_doctor_availability", map[string]any{"doctor_name": "Dr. Smith", "date": "2025-03-03"}),
		ToolResult("check_doctor_availability", map[string]any{"available_slots": []any{"09:00"}}),
		AssistantText("Dr. Smith is free at 09:00."),
	}

	got := Encode(turns)
	require.Len(t, got, 4)
	assert.Equal(t, RoleUser, got[0].Role)
	assert.Equal(t, RoleModel, got[1].Role)
	require.NotNil(t, got[1].Parts[0].Call)
	assert.Equal(t, "check_doctor_availability", got[1].Parts[0].Call.Name)
	assert.Equal(t, RoleUser, got[2].Role)
	require.NotNil(t, got[2].Parts[0].Result)
	assert.Equal(t, RoleModel, got[3].Role)
	assert.Equal(t, "Dr. Smith is free at 09:00.", got[3].Parts[0].Text)
}

func TestSanitizeDropsLeadingOrphanResults(t *testing.T) {
	transcript := Encode([]Turn{
		ToolResult("book_appointment", map[string]any{"status": "success"}),
		ToolResult("send_doctor_notification", map[string]any{"status": "success"}),
		AssistantText("Booked."),
		UserText("thanks"),
	})

	got := Sanitize(transcript)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].Parts[0].Result)
	assert.Equal(t, "Booked.", got[0].Parts[0].Text)
}

func TestSanitizeAllOrphansYieldsEmpty(t *testing.T) {
	transcript := Encode([]Turn{ToolResult("list_doctors", nil), ToolResult("list_doctors", nil)})
	assert.Empty(t, Sanitize(transcript))
	assert.Empty(t, Sanitize(nil))
}

func TestSanitizeKeepsInteriorResults(t *testing.T) {
	transcript := Encode([]Turn{
		UserText("hi"),
		ToolResult("list_doctors", map[string]any{"count": 0}),
	})
	assert.Len(t, Sanitize(transcript), 2)
}

func TestAppendTruncated(t *testing.T) {
	var turns []Turn
	for i := 0; i < 55; i++ {
		turns = append(turns, UserText("x"))
	}
	batch := make([]Turn, 0, 10)
	for i := 0; i < 10; i++ {
		batch = append(batch, AssistantText("y"))
	}

	got := appendTruncated(turns, batch)
	assert.Len(t, got, MaxTurns)
	assert.Equal(t, KindUserText, got[0].Kind)
	assert.Equal(t, KindAssistantText, got[len(got)-1].Kind)

	big := make([]Turn, 0, 150)
	for i := 0; i < 150; i++ {
		big = append(big, UserText("z"))
	}
	assert.Len(t, appendTruncated(nil, big), MaxTurns)
}

func TestTurnJSON(t *testing.T) {
	data, err := json.Marshal(ToolCall("book_appointment", map[string]any{"doctor_id": 3}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"tool_call","name":"book_appointment","args":{"doctor_id":3}}`, string(data))

	var back Turn
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"tool_result","name":"x","payload":{"ok":true}}`), &back))
	assert.NoError(t, back.Validate())
	assert.Error(t, Turn{Kind: "system"}.Validate())
	assert.Error(t, Turn{Kind: KindToolCall}.Validate())
}

func TestFirstCallAndJoinText(t *testing.T) {
	parts := []Part{
		{Text: "Let me check. "},
		{Call: &FunctionCall{Name: "list_doctors"}},
		{Call: &FunctionCall{Name: "check_doctor_availability"}},
		{Text: "One moment."},
	}
	require.NotNil(t, FirstCall(parts))
	assert.Equal(t, "list_doctors", FirstCall(parts).Name)
	assert.Equal(t, "Let me check. One moment.", JoinText(parts))
	assert.Nil(t, FirstCall([]Part{{Text: "hi"}}))
}
