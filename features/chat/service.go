package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lectern/internal/session"
	"lectern/internal/tool"
)

var (
	ErrEmptyQuery         = errors.New("query must not be empty")
	ErrRoundLimitExceeded = errors.New("tool round limit exceeded")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type ToolCall struct {
	Name string
	Args map[string]any
}

type ToolResult struct {
	Name    string
	Content string
}

// Message is one entry in the running exchange sent to the provider. A user
// message carries Text or ToolResults; a model message carries Text or
// ToolCalls.
type Message struct {
	Role        Role
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

type Request struct {
	System   string
	Tools    []tool.Schema
	Messages []Message
}

// Response is the provider's fixed, enumerable answer shape: either
// terminal text or one or more requested tool invocations.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// Provider is the opaque language-model capability.
type Provider interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
}

type Registry interface {
	Schemas() []tool.Schema
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
	DrainSources() []tool.Source
}

type Sessions interface {
	GetOrCreate(id string) (string, []session.Exchange)
	Append(id string, ex session.Exchange)
	Clear(id string) error
}

type Answer struct {
	Text      string        `json:"answer"`
	Sources   []tool.Source `json:"sources"`
	SessionID string        `json:"session_id"`
}

const systemPrompt = `You are an assistant for questions about course materials, with search tools over the indexed courses.

Tool usage:
- Use get_course_outline for questions about a course's structure, lesson list, or links.
- Use search_course_content for questions about specific lesson or course content.
- Answer general-knowledge questions directly, without tools.
- If a tool returns no results, say so clearly; do not invent content.

Responses must be brief, accurate, and direct. Do not describe your search process or mention the tools by name.`

// Service runs the per-turn decision loop: submit the prompt, execute any
// requested capabilities, resubmit with their results, and finish on the
// model's terminal answer.
type Service struct {
	provider  Provider
	registry  Registry
	sessions  Sessions
	maxRounds int
}

func NewService(provider Provider, registry Registry, sessions Sessions, maxRounds int) *Service {
	return &Service{
		provider:  provider,
		registry:  registry,
		sessions:  sessions,
		maxRounds: maxRounds,
	}
}

// Answer resolves one user turn. On any failure the session is left
// unmodified and the provenance buffer is drained, so a retry with the same
// session id is safe and the next turn starts clean.
func (s *Service) Answer(ctx context.Context, query, sessionID string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	id, history := s.sessions.GetOrCreate(sessionID)

	messages := make([]Message, 0, len(history)*2+1)
	for _, ex := range history {
		messages = append(messages,
			Message{Role: RoleUser, Text: ex.UserMessage},
			Message{Role: RoleModel, Text: ex.AssistantMessage},
		)
	}
	messages = append(messages, Message{Role: RoleUser, Text: query})

	req := &Request{
		System:   systemPrompt,
		Tools:    s.registry.Schemas(),
		Messages: messages,
	}

	toolRounds := 0
	for {
		resp, err := s.provider.Generate(ctx, req)
		if err != nil {
			s.registry.DrainSources()
			return nil, fmt.Errorf("model provider: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			sources := s.registry.DrainSources()
			s.sessions.Append(id, session.Exchange{
				UserMessage:      query,
				AssistantMessage: resp.Text,
			})
			return &Answer{Text: resp.Text, Sources: sources, SessionID: id}, nil
		}

		if toolRounds >= s.maxRounds {
			s.registry.DrainSources()
			return nil, fmt.Errorf("%w after %d rounds", ErrRoundLimitExceeded, toolRounds)
		}
		toolRounds++

		results, err := s.executeCalls(ctx, resp.ToolCalls)
		if err != nil {
			s.registry.DrainSources()
			return nil, err
		}

		// Extend the running exchange rather than restarting it, so the
		// model keeps its own reasoning continuity across rounds.
		req.Messages = append(req.Messages,
			Message{Role: RoleModel, ToolCalls: resp.ToolCalls},
			Message{Role: RoleUser, ToolResults: results},
		)
	}
}

// executeCalls runs every invocation the model requested this round. A
// capability's own failure is reported back to the model as result text so
// it can recover or apologize; an unknown capability name is fatal.
func (s *Service) executeCalls(ctx context.Context, calls []ToolCall) ([]ToolResult, error) {
	results := make([]ToolResult, 0, len(calls))
	for _, call := range calls {
		text, err := s.registry.Execute(ctx, call.Name, call.Args)
		if errors.Is(err, tool.ErrUnknownTool) {
			return nil, err
		}
		if err != nil {
			slog.WarnContext(ctx, "tool execution failed", "tool", call.Name, "error", err)
			text = fmt.Sprintf("Tool execution failed: %v", err)
		}
		results = append(results, ToolResult{Name: call.Name, Content: text})
	}
	return results, nil
}

// ClearSession discards a session's history, keeping the id usable.
func (s *Service) ClearSession(sessionID string) error {
	return s.sessions.Clear(sessionID)
}
