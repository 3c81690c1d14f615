package registry

import (
	"ai-dms-be/internal/entity"
	"ai-dms-be/internal/schema"
)

const (
	User    = "user"
	File    = "file"
	History = "history"
	Prompt  = "prompt"
	Model   = "model"
	Filter  = "filter"
	Setting = "setting"
	Record  = "record"
)

// Defaults registers every built-in entity type.
func Defaults() *Registry {
	return New(Prompt,
		&Descriptor{
			Name: User, Plural: "users", Title: "Users", Collection: "user",
			OwnerField: OwnerById,
			New:        func() interface{} { return &entity.User{Role: entity.UserRoleUser} },
			Schema: schema.Schema{
				Fields: []schema.Field{
					{Name: "email", Label: "Email", Type: schema.SingleLine, Required: true, FullWidth: true},
					{Name: "salutation", Label: "Salutation", Type: schema.SimpleList, Options: []string{"", "Mr", "Ms"}},
					{Name: "firstname", Label: "First name", Type: schema.SingleLine},
					{Name: "name", Label: "Last name", Type: schema.SingleLine},
					{Name: "role", Label: "Role", Type: schema.SimpleList, Options: []string{"admin", "user"}},
					{Name: "password", Label: "Password", Type: schema.Password},
				},
				Search: []string{"email", "firstname", "name"},
				List:   []string{"firstname", "name", "email"},
			},
		},
		&Descriptor{
			Name: File, Plural: "files", Title: "Files", Collection: "file",
			OwnerField: "owner_id",
			New:        func() interface{} { return &entity.File{} },
			Schema: schema.Schema{
				Fields: []schema.Field{
					{Name: "name", Label: "Name", Type: schema.SingleLine, Required: true},
					{Name: "category", Label: "Category", Type: schema.SingleLine, Class: "hidden-xs"},
					{Name: "document_id", Label: "Document", Type: schema.SingleLine, Class: "hidden-xs", FullWidth: true},
				},
				Search: []string{"name"},
				List:   []string{"name"},
			},
		},
		&Descriptor{
			Name: History, Plural: "histories", Title: "Chat history", Collection: "history",
			OwnerField: "owner_id",
			New:        func() interface{} { return &entity.History{} },
			Schema: schema.Schema{
				Fields: []schema.Field{
					{Name: "first_message", Label: "First Message", Type: schema.SingleLine, FullWidth: true},
					{Name: "started_at", Label: "Started", Type: schema.Int},
					{Name: "link", Label: "Chat", Type: schema.Button},
				},
				Search: []string{"messages.content", "first_message"},
				List:   []string{"first_message", "started_at", "link"},
			},
			DocumentURL: "/api/chat/history/:id",
			Menu:        "chat",
		},
		&Descriptor{
			Name: Prompt, Plural: "prompts", Title: "Prompts", Collection: "prompt",
			New: func() interface{} { return &entity.Prompt{} },
			Schema: schema.Schema{
				Fields: []schema.Field{
					{Name: "name", Label: "Name", Type: schema.SingleLine, Required: true, FullWidth: true},
					{Name: "welcome_message", Label: "Welcome Message", Type: schema.MultiLine, Required: true, FullWidth: true},
					{Name: "system_message", Label: "System Message", Type: schema.MultiLine, Required: true, FullWidth: true},
					{Name: "prompt", Label: "Prompt", Type: schema.MultiLine, Required: true, FullWidth: true},
					{Name: "files", Label: "Files", Type: schema.FileField, Class: "hidden-xs", FullWidth: true},
					{Name: "link", Label: "Use Prompt", Type: schema.Button},
				},
				Search: []string{"name", "system_message", "prompt"},
				List:   []string{"name", "welcome_message", "system_message", "prompt", "link"},
			},
		},
		&Descriptor{
			Name: Model, Plural: "models", Title: "Models", Collection: "model",
			New: func() interface{} { return &entity.Model{} },
			Schema: schema.Schema{
				Fields: []schema.Field{
					{Name: "name", Label: "Name", Type: schema.SingleLine, Required: true, FullWidth: true},
					{Name: "provider", Label: "Provider", Type: schema.SimpleList, Required: true, FullWidth: true,
						Options: []string{"openai", "azure", "anthropic", "together", "deepseek", "perplexity"}},
					{Name: "model", Label: "Model", Type: schema.SingleLine, Required: true, FullWidth: true},
				},
				Search: []string{"provider", "model", "name"},
				List:   []string{"name", "provider", "model"},
			},
		},
		&Descriptor{
			Name: Filter, Plural: "filters", Title: "Filters", Collection: "filter",
			New: func() interface{} { return &entity.Filter{} },
			Schema: schema.Schema{
				Fields: []schema.Field{
					{Name: "name", Label: "Name", Type: schema.SingleLine, Required: true},
					{Name: "category", Label: "Category", Type: schema.SingleLine},
					{Name: "filter", Label: "Conditions", Type: schema.Rules, FullWidth: true},
				},
				Search: []string{"name"},
				List:   []string{"name", "category"},
			},
		},
		&Descriptor{
			Name: Setting, Plural: "settings", Title: "Settings", Collection: "setting",
			New: func() interface{} { return &entity.Setting{} },
			Schema: schema.Schema{
				Fields: []schema.Field{
					{Name: "name", Label: "Name", Type: schema.SingleLine, Required: true},
					{Name: "type", Label: "Type", Type: schema.SingleLine},
					{Name: "value", Label: "Value", Type: schema.Int},
				},
				Search: []string{"name"},
				List:   []string{"name", "type", "value"},
			},
		},
		&Descriptor{
			Name: Record, Plural: "records", Title: "Records", Collection: "record",
			OwnerField:   OwnerByCreator,
			CounterField: "record_number",
			CounterName:  "record_number",
			GroupField:   "user_id",
			Dynamic:      true,
			New:          func() interface{} { return &entity.Record{} },
			Schema: schema.Schema{
				Fields: []schema.Field{
					{Name: "record_number", Label: "No.", Type: schema.Counter},
					{Name: "name", Label: "Name", Type: schema.SingleLine, Required: true},
					{Name: "comment", Label: "Comment", Type: schema.MultiLine, FullWidth: true},
					{Name: "event_date", Label: "Event date", Type: schema.Date, Class: "hidden-xs"},
					{Name: "age_int", Label: "Age", Type: schema.Int, Class: "hidden-xs"},
					{Name: "salary_float", Label: "Salary", Type: schema.Float, Class: "hidden-xs"},
					{Name: "active", Label: "Active", Type: schema.CheckBox},
					{Name: "user", Label: "User", Type: schema.Reference, Module: User, DocumentField: "email"},
					{Name: "files", Label: "Files", Type: schema.FileField, Class: "hidden-xs", FullWidth: true},
				},
				Search: []string{"name", "comment", "user"},
				List:   []string{"record_number", "name", "event_date", "active"},
			},
		},
	)
}
