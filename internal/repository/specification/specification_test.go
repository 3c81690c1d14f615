package specification

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewQuery(t *testing.T) {
	oid := primitive.NewObjectID()

	tt := []struct {
		name  string
		specs []Specification
		want  bson.M
		sort  bson.D
	}{
		{
			name:  "empty",
			specs: nil,
			want:  bson.M{},
		},
		{
			name:  "object id",
			specs: []Specification{ByID{ID: oid.Hex()}},
			want:  bson.M{"_id": oid},
		},
		{
			name:  "raw id falls back to string",
			specs: []Specification{ByID{ID: "legacy-id"}},
			want:  bson.M{"_id": "legacy-id"},
		},
		{
			name: "search and filter are ANDed",
			specs: []Specification{
				TextSearch{Fields: []string{"name", "email"}, Text: "a.b"},
				Conditions{List: []bson.M{{"category": "x"}}},
				OrderBy{Field: "category_id"},
			},
			want: bson.M{"$and": bson.A{
				bson.M{"$or": bson.A{
					bson.M{"name": bson.M{"$regex": `a\.b`, "$options": "i"}},
					bson.M{"email": bson.M{"$regex": `a\.b`, "$options": "i"}},
				}},
				bson.M{"category": "x"},
			}},
			sort: bson.D{{Key: "category_id", Value: 1}},
		},
		{
			name:  "blank search adds nothing",
			specs: []Specification{TextSearch{Fields: []string{"name"}, Text: "  "}, Filter("owner_id", "u1")},
			want:  bson.M{"owner_id": "u1"},
		},
		{
			name:  "owner is the document itself",
			specs: []Specification{OwnedBy{Field: "_id", Owner: oid.Hex()}},
			want:  bson.M{"_id": oid},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			q := NewQuery(tc.specs...)
			if diff := cmp.Diff(tc.want, q.Condition()); diff != "" {
				t.Errorf("condition mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.sort, q.Sort); diff != "" {
				t.Errorf("sort mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
