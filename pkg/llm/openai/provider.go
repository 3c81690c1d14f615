// Package openai talks to OpenAI-compatible chat-completions endpoints:
// OpenAI itself, Azure OpenAI, Together, DeepSeek and Perplexity.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ai-dms-be/pkg/llm"
)

type Config struct {
	Name    string
	BaseURL string
	APIKey  string
	// IncludeUsage asks for a trailing usage chunk on streams.
	IncludeUsage bool

	// Azure endpoints are addressed by deployment and api-version and
	// authenticate with an api-key header.
	Azure           bool
	AzureAPIVersion string
	AzureDeployment string

	Timeout time.Duration
}

type Provider struct {
	cfg    Config
	client *http.Client
}

// Ensure Provider implements llm.Provider
var _ llm.Provider = (*Provider)(nil)

func NewProvider(cfg Config) *Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Provider{
		cfg: cfg,
		// no client timeout: streams are bounded by the request context
		client: &http.Client{},
	}
}

// --- Request/Response structs (Internal to this package) ---

type chatRequest struct {
	Model         string         `json:"model,omitempty"`
	Messages      []llm.Message  `json:"messages"`
	Stream        bool           `json:"stream"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type usagePayload struct {
	PromptTokens            int64                        `json:"prompt_tokens"`
	CompletionTokens        int64                        `json:"completion_tokens"`
	TotalTokens             int64                        `json:"total_tokens"`
	CompletionTokensDetails *llm.CompletionTokensDetails `json:"completion_tokens_details,omitempty"`
}

func (u *usagePayload) toUsage() *llm.Usage {
	return &llm.Usage{
		PromptTokens:            u.PromptTokens,
		CompletionTokens:        u.CompletionTokens,
		TotalTokens:             u.TotalTokens,
		CompletionTokensDetails: u.CompletionTokensDetails,
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		ContentFilterResults json.RawMessage `json:"content_filter_results,omitempty"`
	} `json:"choices"`
	Usage *usagePayload `json:"usage"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage     *usagePayload `json:"usage"`
	Citations []string      `json:"citations"`
}

// IsReasoningModel reports models that reject the system role and are not
// streamed incrementally.
func IsReasoningModel(model string) bool {
	return strings.HasPrefix(model, "o1-")
}

func (p *Provider) endpoint(model string) string {
	if p.cfg.Azure {
		deployment := model
		if deployment == "" {
			deployment = p.cfg.AzureDeployment
		}
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			strings.TrimRight(p.cfg.BaseURL, "/"),
			url.PathEscape(deployment),
			url.QueryEscape(p.cfg.AzureAPIVersion),
		)
	}
	return strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
}

func (p *Provider) do(ctx context.Context, req llm.Request, stream bool) (*http.Response, error) {
	payload := chatRequest{
		Model:       req.Model.Model,
		Messages:    req.Messages,
		Stream:      stream,
		Temperature: req.Options.Temperature,
		MaxTokens:   req.Options.MaxTokens,
	}
	if stream && p.cfg.IncludeUsage {
		payload.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(req.Model.Model), bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.Azure {
		httpReq.Header.Set("api-key", p.cfg.APIKey)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.cfg.Name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &llm.StatusError{Provider: p.cfg.Name, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}

func (p *Provider) completion(ctx context.Context, req llm.Request) (*chatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	resp, err := p.do(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", p.cfg.Name)
	}
	return &out, nil
}

func (p *Provider) Complete(ctx context.Context, req llm.Request) (string, error) {
	if IsReasoningModel(req.Model.Model) {
		req.Messages = llm.DemoteSystem(req.Messages)
	}
	out, err := p.completion(ctx, req)
	if err != nil {
		return "", err
	}
	return out.Choices[0].Message.Content, nil
}

func (p *Provider) Stream(ctx context.Context, req llm.Request) (llm.Stream, error) {
	if IsReasoningModel(req.Model.Model) {
		req.Messages = llm.DemoteSystem(req.Messages)
		out, err := p.completion(ctx, req)
		if err != nil {
			return nil, err
		}
		return &singleShotStream{resp: out}, nil
	}

	resp, err := p.do(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return &chunkStream{body: resp.Body}, nil
}
