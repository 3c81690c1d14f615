// Package anthropic implements the Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-dms-be/pkg/llm"
)

const (
	DefaultBaseURL   = "https://api.anthropic.com/v1"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 1000
)

type Provider struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

var _ llm.Provider = (*Provider)(nil)

func NewProvider(baseURL, apiKey string, timeout time.Duration) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{},
	}
}

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type usagePayload struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage usagePayload `json:"usage"`
}

// event covers every streamed event type; unused fields stay zero.
type event struct {
	Type    string `json:"type"`
	Message struct {
		Usage usagePayload `json:"usage"`
	} `json:"message"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Usage usagePayload `json:"usage"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// splitSystem lifts a leading system message into the system parameter.
func splitSystem(messages []llm.Message) (string, []llm.Message) {
	if len(messages) > 0 && messages[0].Role == llm.RoleSystem {
		return messages[0].Content, messages[1:]
	}
	return "", messages
}

func (p *Provider) do(ctx context.Context, req llm.Request, stream bool) (*http.Response, error) {
	system, messages := splitSystem(req.Messages)
	payload := messagesRequest{
		Model:     req.Model.Model,
		System:    system,
		Messages:  messages,
		MaxTokens: defaultMaxTokens,
		Stream:    stream,
	}
	if req.Options.MaxTokens > 0 {
		payload.MaxTokens = req.Options.MaxTokens
	}
	if req.Options.Temperature != nil {
		payload.Temperature = *req.Options.Temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &llm.StatusError{Provider: llm.ProviderAnthropic, StatusCode: resp.StatusCode, Body: string(b)}
	}
	return resp, nil
}

func (p *Provider) Complete(ctx context.Context, req llm.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.do(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	for _, block := range out.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", nil
}

func (p *Provider) Stream(ctx context.Context, req llm.Request) (llm.Stream, error) {
	resp, err := p.do(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return &eventStream{body: resp.Body}, nil
}

type eventStream struct {
	body io.ReadCloser
}

func (s *eventStream) Pipe(w io.Writer) (*llm.Usage, error) {
	out := llm.NewStreamWriter(w)
	var usage llm.Usage
	stopped := false

	err := llm.ScanData(s.body, func(data string) (bool, error) {
		var ev event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return false, nil
		}
		switch ev.Type {
		case "message_start":
			usage.PromptTokens = ev.Message.Usage.InputTokens
		case "content_block_delta":
			if err := out.WriteChunk(ev.Delta.Text); err != nil {
				return true, err
			}
		case "message_delta":
			usage.CompletionTokens = ev.Usage.OutputTokens
		case "message_stop":
			stopped = true
			return true, nil
		case "error":
			return true, fmt.Errorf("anthropic stream error: %s: %s", ev.Error.Type, ev.Error.Message)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if !stopped {
		return nil, llm.ErrIncompleteStream
	}

	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	if err := out.Finish(&usage); err != nil {
		return &usage, err
	}
	return &usage, nil
}

func (s *eventStream) Close() error {
	return s.body.Close()
}
