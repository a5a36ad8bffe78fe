package conversation

import "strings"

// Transcript roles understood by the generative backends.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// FunctionCall is a structured tool invocation authored by the model.
type FunctionCall struct {
	Name string
	Args map[string]any
}

// FunctionResult carries a tool payload back to the model.
type FunctionResult struct {
	Name    string
	Payload map[string]any
}

// Part is one element of a transcript entry. Exactly one field is set.
type Part struct {
	Text   string
	Call   *FunctionCall
	Result *FunctionResult
}

// Content is one transcript entry.
type Content struct {
	Role  string
	Parts []Part
}

// Encode maps stored turns onto transcript entries. Tool results are
// attributed to the user role.
func Encode(turns []Turn) []Content {
	out := make([]Content, 0, len(turns))
	for _, t := range turns {
		switch t.Kind {
		case KindUserText:
			out = append(out, Content{Role: RoleUser, Parts: []Part{{Text: t.Text}}})
		case KindAssistantText:
			out = append(out, Content{Role: RoleModel, Parts: []Part{{Text: t.Text}}})
		case KindToolCall:
			out = append(out, Content{Role: RoleModel, Parts: []Part{{Call: &FunctionCall{Name: t.Name, Args: t.Args}}}})
		case KindToolResult:
			out = append(out, Content{Role: RoleUser, Parts: []Part{{Result: &FunctionResult{Name: t.Name, Payload: t.Payload}}}})
		}
	}
	return out
}

// Sanitize drops leading entries that carry a function result. Nothing
// precedes the head, so a leading result can never have a matching call.
// Interior gaps are left alone.
func Sanitize(transcript []Content) []Content {
	for len(transcript) > 0 && hasResult(transcript[0]) {
		transcript = transcript[1:]
	}
	return transcript
}

func hasResult(c Content) bool {
	for _, p := range c.Parts {
		if p.Result != nil {
			return true
		}
	}
	return false
}

// FirstCall returns the first function call among parts, or nil.
func FirstCall(parts []Part) *FunctionCall {
	for _, p := range parts {
		if p.Call != nil {
			return p.Call
		}
	}
	return nil
}

// JoinText concatenates the text parts, skipping calls and results.
func JoinText(parts []Part) string {
	var b strings.Builder
	for _, p := range parts {
		if p.Call == nil && p.Result == nil {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
