package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"

	"lectern/features/chat"
	"lectern/internal/tool"
)

// Generator answers chat requests through the Gemini API, translating the
// neutral request and response shapes into genai contents and back.
type Generator struct {
	client *genai.Client
	model  string
}

func NewGenerator(client *genai.Client, model string) *Generator {
	return &Generator{client: client, model: model}
}

func (g *Generator) Generate(ctx context.Context, req *chat.Request) (*chat.Response, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("request without messages")
	}

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if len(req.Tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: declarations(req.Tools)}}
	}

	cs := model.StartChat()
	for _, msg := range req.Messages[:len(req.Messages)-1] {
		cs.History = append(cs.History, toContent(msg))
	}

	last := req.Messages[len(req.Messages)-1]
	resp, err := cs.SendMessage(ctx, toContent(last).Parts...)
	if err != nil {
		slog.ErrorContext(ctx, "generation failed", "model", g.model, "error", err)
		return nil, err
	}
	return fromResponse(resp)
}

func declarations(schemas []tool.Schema) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(schemas))
	for _, s := range schemas {
		params := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema),
		}
		for _, p := range s.Params {
			params.Properties[p.Name] = &genai.Schema{
				Type:        schemaType(p.Type),
				Description: p.Description,
			}
			if p.Required {
				params.Required = append(params.Required, p.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  params,
		})
	}
	return decls
}

func schemaType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func toContent(msg chat.Message) *genai.Content {
	content := &genai.Content{Role: string(msg.Role)}
	if msg.Text != "" {
		content.Parts = append(content.Parts, genai.Text(msg.Text))
	}
	for _, call := range msg.ToolCalls {
		content.Parts = append(content.Parts, genai.FunctionCall{
			Name: call.Name,
			Args: call.Args,
		})
	}
	for _, result := range msg.ToolResults {
		content.Parts = append(content.Parts, genai.FunctionResponse{
			Name:     result.Name,
			Response: map[string]any{"result": result.Content},
		})
	}
	return content
}

func fromResponse(resp *genai.GenerateContentResponse) (*chat.Response, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no candidates in response")
	}

	out := &chat.Response{}
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			out.Text += string(p)
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, chat.ToolCall{Name: p.Name, Args: p.Args})
		}
	}
	return out, nil
}
