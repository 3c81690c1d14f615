package llm

import "encoding/json"

type CompletionTokensDetails struct {
	ReasoningTokens int64 `json:"reasoning_tokens"`
}

// Usage is the payload of the stream terminator.
type Usage struct {
	PromptTokens            int64                    `json:"prompt_tokens"`
	CompletionTokens        int64                    `json:"completion_tokens"`
	TotalTokens             int64                    `json:"total_tokens"`
	CompletionTokensDetails *CompletionTokensDetails `json:"completion_tokens_details,omitempty"`
	Citations               []string                 `json:"citations,omitempty"`
	ContentFilterResults    json.RawMessage          `json:"content_filter_results,omitempty"`
}
