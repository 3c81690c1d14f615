package entity

const ContextPlaceholder = "{context}"

type Prompt struct {
	Base           `bson:",inline"`
	Name           string `bson:"name" json:"name"`
	WelcomeMessage string `bson:"welcome_message,omitempty" json:"welcome_message,omitempty"`
	SystemMessage  string `bson:"system_message,omitempty" json:"system_message,omitempty"`
	Prompt         string `bson:"prompt,omitempty" json:"prompt,omitempty"`
}
