package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geekyuvi069/CureLink/internal/tools"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiBackend implements Backend using Google's Gemini API with function
// declarations.
type GeminiBackend struct {
	client  *genai.Client
	modelID string
}

// NewGeminiBackend creates a Gemini client. The handle is built once at
// startup and shared by all sessions.
func NewGeminiBackend(ctx context.Context, apiKey, modelID string, opts ...option.ClientOption) (*GeminiBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create gemini client: %w", err)
	}
	return &GeminiBackend{client: client, modelID: modelID}, nil
}

func (b *GeminiBackend) Name() string { return "gemini" }

func (b *GeminiBackend) Generate(ctx context.Context, req GenerateRequest) (*Reply, error) {
	if len(req.Transcript) == 0 {
		return nil, fmt.Errorf("%w: gemini requires at least one message", ErrBackend)
	}
	last := req.Transcript[len(req.Transcript)-1]
	if last.Role != RoleUser {
		return nil, fmt.Errorf("%w: transcript must end with a user turn", ErrBackend)
	}

	model := b.client.GenerativeModel(b.modelID)
	if strings.TrimSpace(req.System) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	if len(req.Tools) > 0 {
		model.Tools = geminiTools(req.Tools)
	}

	cs := model.StartChat()
	for _, c := range req.Transcript[:len(req.Transcript)-1] {
		if gc := toGeminiContent(c); gc != nil {
			cs.History = append(cs.History, gc)
		}
	}

	resp, err := cs.SendMessage(ctx, toGeminiParts(last.Parts)...)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini completion failed: %v", ErrBackend, err)
	}
	return fromGeminiResponse(resp), nil
}

// Close releases resources held by the Gemini client.
func (b *GeminiBackend) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

func geminiTools(defs []tools.Definition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  geminiSchema(d.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func geminiSchema(p tools.ParameterSchema) *genai.Schema {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(p.Properties)),
		Required:   p.Required,
	}
	for name, prop := range p.Properties {
		schema.Properties[name] = &genai.Schema{
			Type:        geminiType(prop.Type),
			Description: prop.Description,
			Enum:        prop.Enum,
		}
	}
	return schema
}

func geminiType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

func toGeminiContent(c Content) *genai.Content {
	parts := toGeminiParts(c.Parts)
	if len(parts) == 0 {
		return nil
	}
	return &genai.Content{Role: c.Role, Parts: parts}
}

func toGeminiParts(parts []Part) []genai.Part {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.Call != nil:
			out = append(out, genai.FunctionCall{Name: p.Call.Name, Args: p.Call.Args})
		case p.Result != nil:
			payload := p.Result.Payload
			if payload == nil {
				payload = map[string]any{}
			}
			out = append(out, genai.FunctionResponse{Name: p.Result.Name, Response: payload})
		case strings.TrimSpace(p.Text) != "":
			out = append(out, genai.Text(p.Text))
		}
	}
	return out
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) *Reply {
	reply := &Reply{}
	if resp == nil {
		return reply
	}
	if resp.UsageMetadata != nil {
		reply.Usage = TokenUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}

	var raw strings.Builder
	for i, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch v := part.(type) {
			case genai.Text:
				raw.WriteString(string(v))
				if i == 0 {
					reply.Parts = append(reply.Parts, Part{Text: string(v)})
				}
			case genai.FunctionCall:
				if i == 0 {
					reply.Parts = append(reply.Parts, Part{Call: &FunctionCall{Name: v.Name, Args: v.Args}})
				}
			case *genai.FunctionCall:
				if i == 0 && v != nil {
					reply.Parts = append(reply.Parts, Part{Call: &FunctionCall{Name: v.Name, Args: v.Args}})
				}
			}
		}
		if i == 0 {
			reply.FinishReason = cand.FinishReason.String()
		}
	}
	reply.Raw = strings.TrimSpace(raw.String())
	return reply
}
