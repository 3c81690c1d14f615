package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-dms-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var conversation = []llm.Message{
	{Role: llm.RoleSystem, Content: "You are terse."},
	{Role: llm.RoleUser, Content: "hi"},
}

func TestStreamTranslatesEvents(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		events := []string{
			`{"type":"message_start","message":{"usage":{"input_tokens":12}}}`,
			`{"type":"content_block_start","index":0}`,
			`{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hel"}}`,
			`{"type":"ping"}`,
			`{"type":"content_block_delta","delta":{"type":"text_delta","text":"lo"}}`,
			`{"type":"message_delta","usage":{"output_tokens":2}}`,
			`{"type":"message_stop"}`,
		}
		for _, e := range events {
			fmt.Fprintf(w, "event: x\ndata: %s\n\n", e)
		}
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "key", 0)
	stream, err := p.Stream(context.Background(), llm.NewRequest(llm.ModelDescriptor{Provider: "anthropic", Model: "claude-3-5-sonnet"}, conversation))
	require.NoError(t, err)
	defer stream.Close()

	var buf bytes.Buffer
	usage, err := stream.Pipe(&buf)
	require.NoError(t, err)

	assert.Equal(t, `Hello ###STOP###{"prompt_tokens":12,"completion_tokens":2,"total_tokens":14}`, buf.String())
	assert.Equal(t, int64(14), usage.TotalTokens)

	assert.Equal(t, "You are terse.", got.System)
	assert.Len(t, got.Messages, 1)
	assert.Equal(t, 1000, got.MaxTokens)
	assert.Zero(t, got.Temperature)
	assert.True(t, got.Stream)
}

func TestStreamErrorEventFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\"par\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n")
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "key", 0)
	stream, err := p.Stream(context.Background(), llm.NewRequest(llm.ModelDescriptor{Model: "claude"}, conversation))
	require.NoError(t, err)
	defer stream.Close()

	var buf bytes.Buffer
	_, err = stream.Pipe(&buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded_error")
	assert.Equal(t, "par", buf.String())
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got messagesRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.False(t, got.Stream)
		assert.Equal(t, 30, got.MaxTokens)
		fmt.Fprint(w, `{"content":[{"type":"thinking","text":"hmm"},{"type":"text","text":"Short title"},{"type":"text","text":" and more"}],"usage":{"input_tokens":3,"output_tokens":2}}`)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "key", 0)
	text, err := p.Complete(context.Background(), llm.NewRequest(llm.ModelDescriptor{Model: "claude"}, conversation, llm.WithMaxTokens(30)))
	require.NoError(t, err)
	assert.Equal(t, "Short title", text)
}
