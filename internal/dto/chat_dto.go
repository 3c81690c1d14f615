package dto

import (
	"ai-dms-be/internal/entity"
	"ai-dms-be/pkg/llm"
)

type ModelOption struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type HistoryItem struct {
	Id           string `json:"id"`
	FirstMessage string `json:"first_message"`
	StartedAt    int64  `json:"started_at"`
}

type PromptItem struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// ChatConfig is everything the chat screen needs to start or resume a session.
type ChatConfig struct {
	SystemMessage     string               `json:"system_message"`
	WelcomeMessage    string               `json:"welcome_message"`
	Messages          []entity.ChatMessage `json:"messages"`
	Models            []ModelOption        `json:"models"`
	StartedAt         int64                `json:"started_at"`
	UsePromptTemplate bool                 `json:"use_prompt_template"`
	LatestHistories   []HistoryItem        `json:"latest_histories,omitempty"`
	LatestPrompts     []PromptItem         `json:"latest_prompts,omitempty"`

	// Set when the session comes from a prompt template.
	PromptId     string   `json:"prompt_id,omitempty"`
	UsingContext bool     `json:"using_context"`
	ContextFiles []string `json:"context_files,omitempty"`
	FileIds      []string `json:"file_ids,omitempty"`

	// Set when the session is resumed from a saved history.
	HistoryId string `json:"history_id,omitempty"`
}

type StreamRequest struct {
	Messages []entity.ChatMessage `json:"messages" validate:"required,min=1,dive"`
	// ModelId names a stored Model document. Provider and Model are used
	// when it is empty.
	ModelId  string `json:"model_id"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	// StartedAt ties usage records to a chat session.
	StartedAt int64 `json:"started_at"`
}

type CompleteRequest struct {
	StreamRequest
	Temperature *float64 `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
}

type CompleteResponse struct {
	Content string              `json:"content"`
	Model   llm.ModelDescriptor `json:"model"`
}

type SaveChatRequest struct {
	StartedAt int64                `json:"started_at" validate:"required"`
	Messages  []entity.ChatMessage `json:"messages" validate:"required,dive"`
}

type SaveChatResponse struct {
	Id           string `json:"id"`
	Created      bool   `json:"created"`
	FirstMessage string `json:"first_message"`
}

type DeleteAllResult struct {
	Deleted        int `json:"deleted"`
	PreservedFiles int `json:"preserved_files"`
	DeletedFiles   int `json:"deleted_files"`
	SkippedFiles   int `json:"skipped_files"`
	FailedFiles    int `json:"failed_files"`
}

type NavItems struct {
	Histories []HistoryItem `json:"histories"`
	Prompts   []PromptItem  `json:"prompts"`
}

// AttachmentUpload is the reply to a chat attachment upload: the attachment
// to put on the system message plus what was read out of the file.
type AttachmentUpload struct {
	Attachment entity.Attachment `json:"attachment"`
	File       *FileRecord       `json:"file"`
}
