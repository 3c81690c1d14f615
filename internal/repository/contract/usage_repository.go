package contract

import (
	"context"

	"ai-dms-be/internal/model"
)

type UsageTotals struct {
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	Requests         int64  `json:"requests"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
}

type UsageRepository interface {
	Create(ctx context.Context, record *model.UsageRecord) error
	// Totals groups by provider and model; an empty userID aggregates everyone.
	Totals(ctx context.Context, userID string) ([]UsageTotals, error)
	FindRecent(ctx context.Context, userID string, limit int) ([]*model.UsageRecord, error)
}
