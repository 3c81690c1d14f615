package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UsageRecord is one completed LLM call as reported by the stream terminator.
type UsageRecord struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string         `gorm:"type:varchar(64);not null;index" json:"user_id"`
	HistoryStartedAt int64          `gorm:"index" json:"history_started_at,omitempty"`
	Provider         string         `gorm:"type:varchar(32);not null" json:"provider"`
	Model            string         `gorm:"type:varchar(128);not null" json:"model"`
	PromptTokens     int64          `gorm:"not null;default:0" json:"prompt_tokens"`
	CompletionTokens int64          `gorm:"not null;default:0" json:"completion_tokens"`
	TotalTokens      int64          `gorm:"not null;default:0" json:"total_tokens"`
	Details          datatypes.JSON `json:"details,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;index" json:"created_at"`
}

func (UsageRecord) TableName() string {
	return "usage_records"
}

func (r *UsageRecord) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
