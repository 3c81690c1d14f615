package entity

type FilterRule struct {
	Field    string `bson:"field" json:"field"`
	Operator string `bson:"operator" json:"operator"`
	Value    string `bson:"value" json:"value"`
	Nr       int    `bson:"nr" json:"nr"`
}

// Filter is a saved, ordered list of conditions for one collection.
type Filter struct {
	Base     `bson:",inline"`
	Name     string       `bson:"name" json:"name"`
	Category string       `bson:"category" json:"category"`
	Rules    []FilterRule `bson:"filter" json:"filter"`
}
