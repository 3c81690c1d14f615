package entity

import "time"

// Record is the dynamic collection: declared fields plus an Extra side-table.
type Record struct {
	Base         `bson:",inline"`
	RecordNumber int64             `bson:"record_number,omitempty" json:"record_number,omitempty"`
	Name         string            `bson:"name" json:"name"`
	Comment      string            `bson:"comment,omitempty" json:"comment,omitempty"`
	EventDate    *time.Time        `bson:"event_date,omitempty" json:"event_date,omitempty"`
	AgeInt       int64             `bson:"age_int,omitempty" json:"age_int,omitempty"`
	SalaryFloat  float64           `bson:"salary_float,omitempty" json:"salary_float,omitempty"`
	Active       string            `bson:"active,omitempty" json:"active,omitempty"`
	User         string            `bson:"user,omitempty" json:"user,omitempty"`
	UserId       string            `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Extra        map[string]string `bson:"extra,omitempty" json:"extra,omitempty"`
}
