package mapper

import (
	"encoding/json"

	"ai-dms-be/internal/dto"
	"ai-dms-be/internal/model"
	"ai-dms-be/internal/repository/contract"

	"gorm.io/datatypes"
)

type UsageMapper struct{}

func NewUsageMapper() *UsageMapper {
	return &UsageMapper{}
}

// ToModel flattens the token counts and keeps the full terminator payload in
// Details.
func (m *UsageMapper) ToModel(msg dto.UsageRecordedMessage) (*model.UsageRecord, error) {
	record := &model.UsageRecord{
		UserID:           msg.UserId,
		HistoryStartedAt: msg.StartedAt,
		Provider:         msg.Provider,
		Model:            msg.Model,
		CreatedAt:        msg.At,
	}
	if msg.Usage == nil {
		return record, nil
	}

	record.PromptTokens = msg.Usage.PromptTokens
	record.CompletionTokens = msg.Usage.CompletionTokens
	record.TotalTokens = msg.Usage.TotalTokens
	if record.TotalTokens == 0 {
		record.TotalTokens = record.PromptTokens + record.CompletionTokens
	}

	details, err := json.Marshal(msg.Usage)
	if err != nil {
		return nil, err
	}
	record.Details = datatypes.JSON(details)
	return record, nil
}

func (m *UsageMapper) ToRecordResponse(r *model.UsageRecord) dto.UsageRecordResponse {
	return dto.UsageRecordResponse{
		Id:               r.ID.String(),
		UserId:           r.UserID,
		Provider:         r.Provider,
		Model:            r.Model,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
		TotalTokens:      r.TotalTokens,
		Details:          json.RawMessage(r.Details),
		CreatedAt:        r.CreatedAt,
	}
}

func (m *UsageMapper) ToTotalResponse(t contract.UsageTotals) dto.UsageTotalResponse {
	return dto.UsageTotalResponse{
		Provider:         t.Provider,
		Model:            t.Model,
		Requests:         t.Requests,
		PromptTokens:     t.PromptTokens,
		CompletionTokens: t.CompletionTokens,
		TotalTokens:      t.TotalTokens,
	}
}
