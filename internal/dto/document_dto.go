package dto

import (
	"ai-dms-be/internal/schema"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	ListModeDefault = ""
	// ListModeGrouped sorts by the entity's group field.
	ListModeGrouped = "grouped"

	DefaultPageLimit = 50
)

// ListRequest is what the list endpoint reads from the query string.
type ListRequest struct {
	Start  int64  `query:"start"`
	Limit  int64  `query:"limit"`
	Search string `query:"search"`
	Filter string `query:"filter"`
	Mode   string `query:"mode"`
}

// SearchRequest is a fully resolved listing query for one collection.
type SearchRequest struct {
	Collection   string
	Schema       schema.Schema
	SearchFields []string
	Start        int64
	Limit        int64
	Text         string

	// Conditions is a pre-built filter; FilterID names a stored Filter
	// document. Both may be set and are ANDed.
	Conditions []bson.M
	FilterID   string

	Grouped    bool
	GroupField string

	// Scope narrows to one owner when OwnerField is set.
	OwnerField string
	Owner      string
}

type PageResult struct {
	Entity         string                   `json:"entity,omitempty"`
	Items          []map[string]interface{} `json:"items"`
	TotalCount     int64                    `json:"total_count"`
	Start          int64                    `json:"start"`
	Limit          int64                    `json:"limit"`
	PrevOffset     int64                    `json:"prev_offset"`
	NextOffset     *int64                   `json:"next_offset"`
	LastPageOffset *int64                   `json:"last_page_offset"`
	DisplayStart   int64                    `json:"display_start"`
	DisplayEnd     int64                    `json:"display_end"`
	Search         string                   `json:"search,omitempty"`
	Filter         string                   `json:"filter,omitempty"`
	Mode           string                   `json:"mode,omitempty"`
}

// DocumentResult is the saved or loaded document as a value map, plus the
// files attached to it grouped by form element.
type DocumentResult struct {
	Entity   string                   `json:"entity"`
	Id       string                   `json:"id"`
	Document map[string]interface{}   `json:"document"`
	Files    map[string][]*FileRecord `json:"files,omitempty"`

	// UploadFailures lists files submitted with the form that were rejected.
	UploadFailures []UploadFailure `json:"upload_failures,omitempty"`
}

type SkippedFile struct {
	Id     string `json:"id"`
	Reason string `json:"reason"`
}

type DeleteResult struct {
	Entity       string        `json:"entity"`
	Id           string        `json:"id"`
	Message      string        `json:"message"`
	DeletedFiles []string      `json:"deleted_files"`
	SkippedFiles []SkippedFile `json:"skipped_files"`
}
