package llm

import (
	"context"
	"io"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Resolver returns the provider registered under a name.
type Resolver interface {
	Provider(name string) (Provider, error)
}

// Client dispatches by provider name, retries opening a request on transient
// failures and traces every call. Nothing is retried once a stream has been
// handed to the caller.
type Client struct {
	resolver      Resolver
	maxRetries    int
	retryInterval time.Duration
	tracer        trace.Tracer
}

func NewClient(resolver Resolver, maxRetries int) *Client {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		resolver:      resolver,
		maxRetries:    maxRetries,
		retryInterval: 500 * time.Millisecond,
		tracer:        otel.Tracer("ai-dms-be/llm"),
	}
}

// WithRetryInterval sets the first backoff delay.
func (c *Client) WithRetryInterval(d time.Duration) *Client {
	c.retryInterval = d
	return c
}

func (c *Client) retryOptions() []backoff.RetryOption {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.retryInterval,
		RandomizationFactor: 0.2,
		Multiplier:          2,
		MaxInterval:         10 * c.retryInterval,
	}
	return []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.maxRetries + 1)),
		backoff.WithMaxElapsedTime(0),
	}
}

func retryable(err error) error {
	if Retryable(err) {
		return err
	}
	return backoff.Permanent(err)
}

func (c *Client) startSpan(ctx context.Context, name string, model ModelDescriptor, messages int) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("llm.provider", model.Provider),
		attribute.String("llm.model", model.Model),
		attribute.Int("llm.messages", messages),
	))
}

func (c *Client) Complete(ctx context.Context, model ModelDescriptor, messages []Message, opts ...Option) (string, error) {
	ctx, span := c.startSpan(ctx, "llm.complete", model, len(messages))
	defer span.End()

	provider, err := c.resolver.Provider(model.Provider)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	req := NewRequest(model, messages, opts...)
	text, err := backoff.Retry(ctx, func() (string, error) {
		text, err := provider.Complete(ctx, req)
		if err != nil {
			return "", retryable(err)
		}
		return text, nil
	}, c.retryOptions()...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return text, nil
}

// Stream opens the upstream stream. The returned stream ends its span on Close.
func (c *Client) Stream(ctx context.Context, model ModelDescriptor, messages []Message, opts ...Option) (Stream, error) {
	ctx, span := c.startSpan(ctx, "llm.stream", model, len(messages))

	provider, err := c.resolver.Provider(model.Provider)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}

	req := NewRequest(model, messages, opts...)
	attempts := 0
	stream, err := backoff.Retry(ctx, func() (Stream, error) {
		attempts++
		s, err := provider.Stream(ctx, req)
		if err != nil {
			return nil, retryable(err)
		}
		return s, nil
	}, c.retryOptions()...)
	span.SetAttributes(attribute.Int("llm.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}
	return &tracedStream{Stream: stream, span: span}, nil
}

type tracedStream struct {
	Stream
	span trace.Span
}

func (s *tracedStream) Pipe(w io.Writer) (*Usage, error) {
	usage, err := s.Stream.Pipe(w)
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
		return usage, err
	}
	if usage != nil {
		s.span.SetAttributes(
			attribute.Int64("llm.prompt_tokens", usage.PromptTokens),
			attribute.Int64("llm.completion_tokens", usage.CompletionTokens),
		)
	}
	return usage, nil
}

func (s *tracedStream) Close() error {
	defer s.span.End()
	return s.Stream.Close()
}
