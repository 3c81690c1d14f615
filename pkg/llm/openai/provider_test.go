package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-dms-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, inspect func(r *http.Request, body chatRequest), lines ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		if inspect != nil {
			inspect(r, body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, l := range lines {
			fmt.Fprintf(w, "data: %s\n\n", l)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func pipe(t *testing.T, p *Provider, model string, messages []llm.Message) (string, *llm.Usage, error) {
	t.Helper()
	stream, err := p.Stream(context.Background(), llm.NewRequest(llm.ModelDescriptor{Provider: "openai", Model: model}, messages))
	require.NoError(t, err)
	defer stream.Close()

	var buf bytes.Buffer
	usage, err := stream.Pipe(&buf)
	return buf.String(), usage, err
}

var userHi = []llm.Message{{Role: llm.RoleUser, Content: "hi"}}

func TestStreamRelaysChunksAndUsage(t *testing.T) {
	var got chatRequest
	srv := sseServer(t, func(r *http.Request, body chatRequest) {
		got = body
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "/chat/completions", r.URL.Path)
	},
		`{"choices":[{"delta":{"content":"A"}}]}`,
		`{"choices":[{"delta":{"content":"B"}}]}`,
		`not json`,
		`{"choices":[{"delta":{"content":"C"}}]}`,
		`{"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		`{"choices":[],"usage":{"prompt_tokens":5,"completion_tokens":3,"total_tokens":8}}`,
		`[DONE]`,
	)

	p := NewProvider(Config{Name: "openai", BaseURL: srv.URL, APIKey: "sk-test", IncludeUsage: true})
	out, usage, err := pipe(t, p, "gpt-4o", userHi)
	require.NoError(t, err)

	assert.Equal(t, `ABC ###STOP###{"prompt_tokens":5,"completion_tokens":3,"total_tokens":8}`, out)
	assert.Equal(t, int64(8), usage.TotalTokens)
	assert.True(t, got.Stream)
	require.NotNil(t, got.StreamOptions)
	assert.True(t, got.StreamOptions.IncludeUsage)
}

func TestStreamWithoutUsageEndsWithNull(t *testing.T) {
	var got chatRequest
	srv := sseServer(t, func(_ *http.Request, body chatRequest) { got = body },
		`{"choices":[{"delta":{"content":"hey"},"finish_reason":"stop"}]}`,
	)

	p := NewProvider(Config{Name: "perplexity", BaseURL: srv.URL})
	out, usage, err := pipe(t, p, "sonar", userHi)
	require.NoError(t, err)
	assert.Nil(t, usage)
	assert.Equal(t, "hey ###STOP###null", out)
	assert.Nil(t, got.StreamOptions)
}

func TestStreamCarriesCitations(t *testing.T) {
	srv := sseServer(t, nil,
		`{"citations":["https://a.example","https://b.example"],"choices":[{"delta":{"content":"cited"}}]}`,
		`{"citations":["https://a.example","https://b.example"],"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`,
		`[DONE]`,
	)

	p := NewProvider(Config{Name: "perplexity", BaseURL: srv.URL})
	out, usage, err := pipe(t, p, "sonar", userHi)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, usage.Citations)
	assert.Contains(t, out, `"citations":["https://a.example","https://b.example"]`)
}

func TestStreamEndingEarlyWritesNoTerminator(t *testing.T) {
	srv := sseServer(t, nil,
		`{"choices":[{"delta":{"content":"partial"}}]}`,
	)

	p := NewProvider(Config{Name: "openai", BaseURL: srv.URL})
	out, _, err := pipe(t, p, "gpt-4o", userHi)
	assert.ErrorIs(t, err, llm.ErrIncompleteStream)
	assert.Equal(t, "partial", out)
	assert.NotContains(t, out, llm.StopMarker)
}

func TestReasoningModelIsSentOnceWithDemotedSystem(t *testing.T) {
	var got chatRequest
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"thought it through"},"content_filter_results":{"hate":{"filtered":false}}}],
			"usage":{"prompt_tokens":4,"completion_tokens":9,"total_tokens":13,"completion_tokens_details":{"reasoning_tokens":6}}}`)
	}))
	defer srv.Close()

	p := NewProvider(Config{Name: "openai", BaseURL: srv.URL, IncludeUsage: true})
	out, usage, err := pipe(t, p, "o1-preview", []llm.Message{
		{Role: llm.RoleSystem, Content: "be careful"},
		{Role: llm.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.False(t, got.Stream)
	assert.Equal(t, llm.RoleUser, got.Messages[0].Role)
	assert.True(t, strings.HasPrefix(out, "thought it through "+llm.StopMarker))
	assert.Equal(t, int64(6), usage.CompletionTokensDetails.ReasoningTokens)
	assert.JSONEq(t, `{"hate":{"filtered":false}}`, string(usage.ContentFilterResults))
}

func TestNon2xxIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewProvider(Config{Name: "together", BaseURL: srv.URL})
	_, err := p.Stream(context.Background(), llm.NewRequest(llm.ModelDescriptor{Model: "m"}, userHi))

	var se *llm.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.True(t, llm.Retryable(err))
}

func TestAzureAddressing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-4o-prod/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-08-01-preview", r.URL.Query().Get("api-version"))
		assert.Equal(t, "azure-key", r.Header.Get("api-key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"choices":[{"message":{"content":"hello from azure"}}]}`)
	}))
	defer srv.Close()

	p := NewProvider(Config{
		Name:            "azure",
		BaseURL:         srv.URL + "/",
		APIKey:          "azure-key",
		Azure:           true,
		AzureAPIVersion: "2024-08-01-preview",
	})
	text, err := p.Complete(context.Background(), llm.NewRequest(llm.ModelDescriptor{Provider: "azure", Model: "gpt-4o-prod"}, userHi))
	require.NoError(t, err)
	assert.Equal(t, "hello from azure", text)
}
