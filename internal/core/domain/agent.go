package domain

import (
	"strings"
	"time"
)

// AgentRequest is a natural-language prompt with optional caller context.
type AgentRequest struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// AgentReply is the answer to an AgentRequest.
type AgentReply struct {
	TurnID    string           `json:"turn_id"`
	Message   string           `json:"message"`
	Response  string           `json:"response"`
	ToolCalls []ToolInvocation `json:"tool_calls,omitempty"`
	Cached    bool             `json:"cached"`
}

// ToolInvocation records one tool call made while answering a turn.
type ToolInvocation struct {
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Result map[string]any `json:"result"`
}

// AgentTurn is the event published after every completed turn.
type AgentTurn struct {
	TurnID     string    `json:"turn_id"`
	Message    string    `json:"message"`
	Response   string    `json:"response"`
	Tools      []string  `json:"tools,omitempty"`
	Rounds     int       `json:"rounds"`
	Cached     bool      `json:"cached"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Chat roles understood by the language model.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ModelRequest is a provider-neutral generation request.
type ModelRequest struct {
	SystemInstruction string
	Contents          []ChatContent
	Tools             []ToolDeclaration
	Generation        GenerationConfig
}

// GenerationConfig holds sampling parameters.
type GenerationConfig struct {
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

// ChatContent is one message in a conversation.
type ChatContent struct {
	Role  string
	Parts []ChatPart
}

// ChatPart holds exactly one of Text, FunctionCall or FunctionResponse.
type ChatPart struct {
	Text             string
	FunctionCall     *FunctionCall
	FunctionResponse *FunctionResponse
}

type FunctionCall struct {
	Name string
	Args map[string]any
}

type FunctionResponse struct {
	Name     string
	Response map[string]any
}

// ToolDeclaration describes a callable tool to the model.
type ToolDeclaration struct {
	Name        string
	Description string
	Parameters  *Schema
}

// Schema is the subset of OpenAPI schema used for tool parameters.
type Schema struct {
	Type        string
	Description string
	Properties  map[string]*Schema
	Items       *Schema
	Required    []string
}

// ModelResponse is the first candidate returned by the model.
type ModelResponse struct {
	Content      ChatContent
	FinishReason string
}

// Text joins the text parts of the response.
func (r *ModelResponse) Text() string {
	if r == nil {
		return ""
	}
	var texts []string
	for _, p := range r.Content.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}

// FunctionCalls returns the function calls requested by the response.
func (r *ModelResponse) FunctionCalls() []FunctionCall {
	if r == nil {
		return nil
	}
	var calls []FunctionCall
	for _, p := range r.Content.Parts {
		if p.FunctionCall != nil {
			calls = append(calls, *p.FunctionCall)
		}
	}
	return calls
}
