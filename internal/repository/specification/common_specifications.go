package specification

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDValue returns the ObjectID form of id when it parses, else the raw string.
func IDValue(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// ByID filters by document id in its primary (ObjectID) form.
type ByID struct {
	ID string
}

func (s ByID) Apply(q *Query) {
	q.Filter["_id"] = IDValue(s.ID)
}

// ByIDs matches any of the ids in either encoding.
type ByIDs struct {
	IDs []string
}

func (s ByIDs) Apply(q *Query) {
	values := make(bson.A, 0, len(s.IDs)*2)
	for _, id := range s.IDs {
		values = append(values, id)
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			values = append(values, oid)
		}
	}
	q.And = append(q.And, bson.M{"_id": bson.M{"$in": values}})
}

// FilterBy is an equality match on one field.
type FilterBy struct {
	Field string
	Value interface{}
}

func (s FilterBy) Apply(q *Query) {
	q.Filter[s.Field] = s.Value
}

func Filter(field string, value interface{}) Specification {
	return FilterBy{Field: field, Value: value}
}

// OwnedBy narrows to documents owned by Owner. Field "_id" means the
// document is the owner itself (users).
type OwnedBy struct {
	Field string
	Owner string
}

func (s OwnedBy) Apply(q *Query) {
	if s.Field == "_id" {
		ByID{ID: s.Owner}.Apply(q)
		return
	}
	q.Filter[s.Field] = s.Owner
}

// Conditions ANDs pre-built condition maps into the query.
type Conditions struct {
	List []bson.M
}

func (s Conditions) Apply(q *Query) {
	for _, c := range s.List {
		if len(c) > 0 {
			q.And = append(q.And, c)
		}
	}
}

type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(q *Query) {
	direction := 1
	if s.Desc {
		direction = -1
	}
	q.Sort = append(q.Sort, bson.E{Key: s.Field, Value: direction})
}

type Pagination struct {
	Limit  int64
	Offset int64
}

func (s Pagination) Apply(q *Query) {
	q.Skip = s.Offset
	q.Limit = s.Limit
}
