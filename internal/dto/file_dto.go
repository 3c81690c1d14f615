package dto

import (
	"io"
)

// UploadInput is one incoming file, independent of the transport.
type UploadInput struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

type FileRecord struct {
	Id         string `json:"id"`
	Name       string `json:"name"`
	FileType   string `json:"file_type"`
	Path       string `json:"path"`
	Category   string `json:"category,omitempty"`
	OwnerId    string `json:"owner_id"`
	DocumentId string `json:"document_id,omitempty"`
	ElementId  string `json:"element_id,omitempty"`

	// Set for pdf/txt/md uploads.
	Content      string `json:"content,omitempty"`
	CharCount    int    `json:"char_count,omitempty"`
	ExtractError string `json:"extract_error,omitempty"`

	// Set for images.
	Base64      string `json:"base64,omitempty"`
	Base64Error string `json:"base64_error,omitempty"`
}

type UploadFailure struct {
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

type UploadResult struct {
	Files  []*FileRecord   `json:"files"`
	Failed []UploadFailure `json:"failed,omitempty"`
}

const (
	ContextStatusOK    = "ok"
	ContextStatusError = "error"
)

type ContextResult struct {
	Status    string `json:"status"`
	Text      string `json:"text"`
	CharCount int    `json:"char_count"`
	Message   string `json:"message,omitempty"`
	// Files lists the names that contributed text, in input order.
	Files []string `json:"files,omitempty"`
}

func (r *ContextResult) OK() bool {
	return r.Status == ContextStatusOK
}
