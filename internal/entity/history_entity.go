package entity

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Attachment struct {
	Type      string `bson:"type" json:"type"`
	Id        string `bson:"id" json:"id"`
	Name      string `bson:"name" json:"name"`
	FileType  string `bson:"file_type,omitempty" json:"file_type,omitempty"`
	Timestamp int64  `bson:"timestamp,omitempty" json:"timestamp,omitempty"`
}

type ChatMessage struct {
	Role        string       `bson:"role" json:"role" validate:"required,oneof=system user assistant"`
	Content     string       `bson:"content" json:"content"`
	Attachments []Attachment `bson:"attachments,omitempty" json:"attachments,omitempty"`
}

// History is one chat session, unique per (OwnerId, StartedAt).
type History struct {
	Base         `bson:",inline"`
	OwnerId      string        `bson:"owner_id" json:"owner_id"`
	StartedAt    int64         `bson:"started_at" json:"started_at"`
	Messages     []ChatMessage `bson:"messages" json:"messages"`
	FirstMessage string        `bson:"first_message" json:"first_message"`
	FileIds      []string      `bson:"file_ids,omitempty" json:"file_ids,omitempty"`
}
