package entity

const (
	SettingTypeCounter    = "Counter"
	SettingTypeSimpleList = "SimpleListField"
)

// Setting holds named counters and option lists.
type Setting struct {
	Base   `bson:",inline"`
	Name   string   `bson:"name" json:"name"`
	Type   string   `bson:"type,omitempty" json:"type,omitempty"`
	Value  int64    `bson:"value" json:"value"`
	Values []string `bson:"values,omitempty" json:"values,omitempty"`
}
