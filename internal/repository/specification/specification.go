package specification

import "go.mongodb.org/mongo-driver/bson"

// Specification contributes one clause to a document query.
type Specification interface {
	Apply(q *Query)
}

// Query is the store-neutral form of a find: a MongoDB-style condition tree
// plus ordering and a skip/limit window.
type Query struct {
	Filter bson.M
	And    []bson.M
	Sort   bson.D
	Skip   int64
	Limit  int64
}

func NewQuery(specs ...Specification) *Query {
	q := &Query{Filter: bson.M{}}
	for _, s := range specs {
		if s != nil {
			s.Apply(q)
		}
	}
	return q
}

// Condition merges Filter and the And clauses into one condition tree.
func (q *Query) Condition() bson.M {
	if len(q.And) == 0 {
		return q.Filter
	}
	clauses := make(bson.A, 0, len(q.And)+1)
	if len(q.Filter) > 0 {
		clauses = append(clauses, q.Filter)
	}
	for _, c := range q.And {
		clauses = append(clauses, c)
	}
	return bson.M{"$and": clauses}
}
