package openai

import (
	"encoding/json"
	"io"

	"ai-dms-be/pkg/llm"
)

func isFinish(reason *string) bool {
	if reason == nil {
		return false
	}
	switch *reason {
	case "stop", "eos", "length":
		return true
	}
	return false
}

// chunkStream relays a chat-completions SSE body.
type chunkStream struct {
	body io.ReadCloser
}

func (s *chunkStream) Pipe(w io.Writer) (*llm.Usage, error) {
	out := llm.NewStreamWriter(w)
	var usage *llm.Usage
	var citations []string
	finished := false

	err := llm.ScanData(s.body, func(data string) (bool, error) {
		if data == "[DONE]" {
			finished = true
			return true, nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// unparseable chunks are skipped
			return false, nil
		}
		if len(chunk.Citations) > 0 {
			citations = chunk.Citations
		}
		if chunk.Usage != nil {
			usage = chunk.Usage.toUsage()
		}
		if len(chunk.Choices) == 0 {
			return false, nil
		}

		choice := chunk.Choices[0]
		if err := out.WriteChunk(choice.Delta.Content); err != nil {
			return true, err
		}
		if isFinish(choice.FinishReason) {
			finished = true
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if !finished {
		return nil, llm.ErrIncompleteStream
	}

	if len(citations) > 0 {
		if usage == nil {
			usage = &llm.Usage{}
		}
		usage.Citations = citations
	}
	if err := out.Finish(usage); err != nil {
		return usage, err
	}
	return usage, nil
}

func (s *chunkStream) Close() error {
	return s.body.Close()
}

// singleShotStream replays a non-streamed completion as one chunk.
type singleShotStream struct {
	resp *chatResponse
}

func (s *singleShotStream) Pipe(w io.Writer) (*llm.Usage, error) {
	out := llm.NewStreamWriter(w)
	choice := s.resp.Choices[0]
	if err := out.WriteChunk(choice.Message.Content); err != nil {
		return nil, err
	}

	var usage *llm.Usage
	if s.resp.Usage != nil {
		usage = s.resp.Usage.toUsage()
		if usage.CompletionTokensDetails == nil {
			usage.CompletionTokensDetails = &llm.CompletionTokensDetails{}
		}
		if len(choice.ContentFilterResults) > 0 {
			usage.ContentFilterResults = choice.ContentFilterResults
		}
	}
	if err := out.Finish(usage); err != nil {
		return usage, err
	}
	return usage, nil
}

func (s *singleShotStream) Close() error {
	return nil
}
