package specification

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// ContainsFold is a case-insensitive substring condition.
func ContainsFold(text string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(text), "$options": "i"}
}

// Prefix is a case-sensitive prefix condition.
func Prefix(text string) bson.M {
	return bson.M{"$regex": "^" + regexp.QuoteMeta(text)}
}

// TextSearch OR-matches Text against every field.
type TextSearch struct {
	Fields []string
	Text   string
}

func (s TextSearch) Apply(q *Query) {
	text := strings.TrimSpace(s.Text)
	if text == "" || len(s.Fields) == 0 {
		return
	}
	or := make(bson.A, 0, len(s.Fields))
	for _, f := range s.Fields {
		or = append(or, bson.M{f: ContainsFold(text)})
	}
	q.And = append(q.And, bson.M{"$or": or})
}
