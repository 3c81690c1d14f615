package llm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flushRecorder struct {
	bytes.Buffer
	flushes int
}

func (f *flushRecorder) Flush() error {
	f.flushes++
	return nil
}

func TestStreamWriter(t *testing.T) {
	tt := []struct {
		name   string
		chunks []string
		usage  *Usage
		want   string
	}{
		{
			name:   "content then usage",
			chunks: []string{"A", "B", "C"},
			usage:  &Usage{PromptTokens: 5, CompletionTokens: 3, TotalTokens: 8},
			want:   `ABC ###STOP###{"prompt_tokens":5,"completion_tokens":3,"total_tokens":8}`,
		},
		{
			name:   "empty chunks are dropped",
			chunks: []string{"", "x", ""},
			want:   "x ###STOP###null",
		},
		{
			name: "no content has no separator",
			want: "###STOP###null",
		},
		{
			name:   "citations travel with usage",
			chunks: []string{"y"},
			usage:  &Usage{Citations: []string{"https://a.example"}},
			want:   `y ###STOP###{"prompt_tokens":0,"completion_tokens":0,"total_tokens":0,"citations":["https://a.example"]}`,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			var buf flushRecorder
			w := NewStreamWriter(&buf)
			for _, c := range tc.chunks {
				require.NoError(t, w.WriteChunk(c))
			}
			require.NoError(t, w.Finish(tc.usage))
			require.NoError(t, w.Finish(tc.usage))

			assert.Equal(t, tc.want, buf.String())
			assert.True(t, w.Finished())
			assert.Positive(t, buf.flushes)
		})
	}
}

func TestStreamWriterRejectsChunkAfterFinish(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(&buf)
	require.NoError(t, w.Finish(nil))
	assert.Error(t, w.WriteChunk("late"))
}

func TestScanData(t *testing.T) {
	body := "event: ping\n\ndata: one\n\n: comment\ndata:two\n\ndata: [DONE]\n\ndata: after\n"

	var got []string
	err := ScanData(bytes.NewBufferString(body), func(data string) (bool, error) {
		if data == "[DONE]" {
			return true, nil
		}
		got = append(got, data)
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestDemoteSystem(t *testing.T) {
	in := []Message{{Role: RoleSystem, Content: "be brief"}, {Role: RoleUser, Content: "hi"}}
	out := DemoteSystem(in)

	assert.Equal(t, RoleUser, out[0].Role)
	assert.Equal(t, RoleSystem, in[0].Role, "input is not modified")
	assert.Empty(t, DemoteSystem(nil))
}
