package dto

import "ai-dms-be/internal/schema"

// RegistryEntryResponse is the routing and form metadata of one entity type.
type RegistryEntryResponse struct {
	Name          string         `json:"name"`
	Plural        string         `json:"plural"`
	Title         string         `json:"title"`
	DocumentURL   string         `json:"document_url"`
	CollectionURL string         `json:"collection_url"`
	Menu          string         `json:"menu"`
	Dynamic       bool           `json:"dynamic,omitempty"`
	Schema        *schema.Schema `json:"schema,omitempty"`
}
