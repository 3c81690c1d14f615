package dto

import (
	"encoding/json"
	"time"

	"ai-dms-be/pkg/llm"
)

// UsageRecordedMessage is the payload of a usage.recorded event.
type UsageRecordedMessage struct {
	UserId    string     `json:"user_id"`
	StartedAt int64      `json:"started_at,omitempty"`
	Provider  string     `json:"provider"`
	Model     string     `json:"model"`
	Usage     *llm.Usage `json:"usage"`
	At        time.Time  `json:"at"`
}

type UsageTotalResponse struct {
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	Requests         int64  `json:"requests"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
}

type UsageRecordResponse struct {
	Id               string          `json:"id"`
	UserId           string          `json:"user_id"`
	Provider         string          `json:"provider"`
	Model            string          `json:"model"`
	PromptTokens     int64           `json:"prompt_tokens"`
	CompletionTokens int64           `json:"completion_tokens"`
	TotalTokens      int64           `json:"total_tokens"`
	Details          json.RawMessage `json:"details,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

type UsageSummaryResponse struct {
	Totals []UsageTotalResponse  `json:"totals"`
	Recent []UsageRecordResponse `json:"recent"`
}
