package llm

import (
	"context"
	"io"
)

const (
	ProviderOpenAI     = "openai"
	ProviderAzure      = "azure"
	ProviderAnthropic  = "anthropic"
	ProviderTogether   = "together"
	ProviderDeepSeek   = "deepseek"
	ProviderPerplexity = "perplexity"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// ModelDescriptor names a provider and the provider's model identifier.
type ModelDescriptor struct {
	Provider string `json:"provider" validate:"required"`
	Model    string `json:"model" validate:"required"`
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature *float64
	MaxTokens   int
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = &temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

type Request struct {
	Messages []Message
	Model    ModelDescriptor
	Options  Options
}

func NewRequest(model ModelDescriptor, messages []Message, opts ...Option) Request {
	req := Request{Messages: messages, Model: model}
	for _, opt := range opts {
		opt(&req.Options)
	}
	return req
}

// Provider is one upstream chat-completions API.
type Provider interface {
	// Complete returns the full response text.
	Complete(ctx context.Context, req Request) (string, error)
	// Stream sends the request and returns once the upstream accepted it.
	// Nothing has been written anywhere yet at that point.
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Stream is an accepted upstream response waiting to be relayed.
type Stream interface {
	// Pipe writes content chunks to w as they arrive and ends with exactly one
	// terminator on a clean stop. A failure mid-stream returns an error and
	// writes no terminator.
	Pipe(w io.Writer) (*Usage, error)
	Close() error
}

// DemoteSystem returns a copy of messages whose first message, when it is a
// system message, is turned into a user message. Used for models that reject
// the system role.
func DemoteSystem(messages []Message) []Message {
	out := make([]Message, len(messages))
	copy(out, messages)
	if len(out) > 0 && out[0].Role == RoleSystem {
		out[0].Role = RoleUser
	}
	return out
}
