package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithydocument "github.com/aws/smithy-go/document"
	"github.com/geekyuvi069/CureLink/internal/tools"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockBackend implements Backend with the Bedrock Converse API and its
// tool-use blocks.
type BedrockBackend struct {
	api     bedrockConverseAPI
	modelID string
}

func NewBedrockBackend(api bedrockConverseAPI, modelID string) *BedrockBackend {
	if api == nil {
		panic("conversation: bedrock converse client cannot be nil")
	}
	return &BedrockBackend{api: api, modelID: modelID}
}

func (b *BedrockBackend) Name() string { return "bedrock" }

func (b *BedrockBackend) Generate(ctx context.Context, req GenerateRequest) (*Reply, error) {
	if strings.TrimSpace(b.modelID) == "" {
		return nil, fmt.Errorf("%w: bedrock model id is required", ErrBackend)
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(b.modelID),
		Messages: bedrockMessages(req.Transcript),
	}
	if len(input.Messages) == 0 {
		return nil, fmt.Errorf("%w: bedrock requires at least one user message", ErrBackend)
	}
	if strings.TrimSpace(req.System) != "" {
		input.System = []brtypes.SystemContentBlock{&brtypes.SystemContentBlockMemberText{Value: req.System}}
	}
	if len(req.Tools) > 0 {
		input.ToolConfig = bedrockToolConfig(req.Tools)
	}

	out, err := b.api.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: bedrock converse failed: %v", ErrBackend, err)
	}
	return fromBedrockOutput(out)
}

func bedrockToolConfig(defs []tools.Definition) *brtypes.ToolConfiguration {
	specs := make([]brtypes.Tool, 0, len(defs))
	for _, d := range defs {
		specs = append(specs, &brtypes.ToolMemberToolSpec{Value: brtypes.ToolSpecification{
			Name:        aws.String(d.Name),
			Description: aws.String(d.Description),
			InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(d.Parameters.JSONSchema())},
		}})
	}
	return &brtypes.ToolConfiguration{Tools: specs}
}

// bedrockMessages converts the transcript into strictly alternating
// user/assistant messages starting with the user. Tool-use ids are derived
// from position; results with no pending call of the same name become text.
func bedrockMessages(transcript []Content) []brtypes.Message {
	var (
		messages []brtypes.Message
		pending  = map[string][]string{}
		seq      int
	)
	for _, c := range transcript {
		role := brtypes.ConversationRoleUser
		if c.Role == RoleModel {
			role = brtypes.ConversationRoleAssistant
		}
		var blocks []brtypes.ContentBlock
		for _, p := range c.Parts {
			switch {
			case p.Call != nil:
				seq++
				id := fmt.Sprintf("tooluse_%d", seq)
				pending[p.Call.Name] = append(pending[p.Call.Name], id)
				args := p.Call.Args
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
					ToolUseId: aws.String(id),
					Name:      aws.String(p.Call.Name),
					Input:     document.NewLazyDocument(args),
				}})
			case p.Result != nil:
				payload := p.Result.Payload
				if payload == nil {
					payload = map[string]any{}
				}
				ids := pending[p.Result.Name]
				if len(ids) == 0 {
					blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: fmt.Sprintf("[%s result] %v", p.Result.Name, payload)})
					continue
				}
				pending[p.Result.Name] = ids[1:]
				blocks = append(blocks, &brtypes.ContentBlockMemberToolResult{Value: brtypes.ToolResultBlock{
					ToolUseId: aws.String(ids[0]),
					Content:   []brtypes.ToolResultContentBlock{&brtypes.ToolResultContentBlockMemberJson{Value: document.NewLazyDocument(payload)}},
				}})
			case strings.TrimSpace(p.Text) != "":
				blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: p.Text})
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if len(messages) == 0 && role != brtypes.ConversationRoleUser {
			continue
		}
		if n := len(messages); n > 0 && messages[n-1].Role == role {
			messages[n-1].Content = append(messages[n-1].Content, blocks...)
			continue
		}
		messages = append(messages, brtypes.Message{Role: role, Content: blocks})
	}
	return messages
}

func fromBedrockOutput(out *bedrockruntime.ConverseOutput) (*Reply, error) {
	reply := &Reply{}
	if out == nil {
		return reply, nil
	}
	reply.FinishReason = string(out.StopReason)
	if out.Usage != nil {
		reply.Usage = TokenUsage{
			InputTokens:  aws.ToInt32(out.Usage.InputTokens),
			OutputTokens: aws.ToInt32(out.Usage.OutputTokens),
			TotalTokens:  aws.ToInt32(out.Usage.TotalTokens),
		}
	}

	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || msg == nil {
		return reply, nil
	}
	var raw strings.Builder
	for _, block := range msg.Value.Content {
		switch v := block.(type) {
		case *brtypes.ContentBlockMemberText:
			raw.WriteString(v.Value)
			reply.Parts = append(reply.Parts, Part{Text: v.Value})
		case *brtypes.ContentBlockMemberToolUse:
			args := map[string]any{}
			if v.Value.Input != nil {
				if err := v.Value.Input.UnmarshalSmithyDocument(&args); err != nil {
					return nil, fmt.Errorf("%w: decode tool input: %v", ErrBackend, err)
				}
			}
			normalizeDocument(args)
			reply.Parts = append(reply.Parts, Part{Call: &FunctionCall{Name: aws.ToString(v.Value.Name), Args: args}})
		}
	}
	reply.Raw = strings.TrimSpace(raw.String())
	return reply, nil
}

// normalizeDocument replaces smithy document numbers with float64 so tool
// arguments look the same as those decoded from JSON.
func normalizeDocument(v any) any {
	switch t := v.(type) {
	case smithydocument.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeDocument(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = normalizeDocument(item)
		}
		return t
	default:
		return v
	}
}
