package dto

// LogListResponse is one line of the active log file. Id is a content hash.
type LogListResponse struct {
	Id        string                 `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Module    string                 `json:"module"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// AdminStatsResponse counts stored documents per entity type.
type AdminStatsResponse struct {
	Documents map[string]int64 `json:"documents"`
}
