// Package llm is the language-model collaborator used by the bot to write
// recommendation blurbs and term explanations.
//
// Steps depend on the Client interface only; the command-line backend and
// the static client are interchangeable.
package llm

import (
	"context"
	"time"
)

// Client completes prompts.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Role identifies the message sender.
type Role string

// Standard message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request configures a completion call.
type Request struct {
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// Prompt returns a request with a system message and a single user message.
func Prompt(system, user string) Request {
	return Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: user}},
	}
}

// Response is the output of a completion call.
type Response struct {
	Content      string        `json:"content"`
	Model        string        `json:"model,omitempty"`
	FinishReason string        `json:"finish_reason"`
	Duration     time.Duration `json:"duration"`
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (*Response, error)

// Complete implements Client.
func (f ClientFunc) Complete(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Static answers every request with the same content, or fails with err.
type Static struct {
	Content string
	Err     error
}

// Complete implements Client.
func (s Static) Complete(ctx context.Context, _ Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return &Response{Content: s.Content, FinishReason: "stop"}, nil
}
