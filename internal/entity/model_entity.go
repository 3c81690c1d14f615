package entity

// Model is an LLM endpoint descriptor.
type Model struct {
	Base     `bson:",inline"`
	Provider string `bson:"provider" json:"provider"`
	Model    string `bson:"model" json:"model"`
	Name     string `bson:"name" json:"name"`
}
