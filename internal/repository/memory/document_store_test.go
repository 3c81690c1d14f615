package memory

import (
	"context"
	"testing"
	"time"

	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/internal/repository/specification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func seed(t *testing.T, s *DocumentStore, docs ...bson.M) []string {
	t.Helper()
	var ids []string
	for _, d := range docs {
		id, err := s.Insert(context.Background(), "people", d)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestFindByIDFallsBackToRawID(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()

	ids := seed(t, s, bson.M{"name": "object id"})
	_, err := s.Insert(ctx, "people", bson.M{"_id": "legacy-42", "name": "raw id"})
	require.NoError(t, err)

	doc, err := s.FindByID(ctx, "people", ids[0])
	require.NoError(t, err)
	assert.Equal(t, "object id", doc["name"])

	doc, err = s.FindByID(ctx, "people", "legacy-42")
	require.NoError(t, err)
	assert.Equal(t, "raw id", doc["name"])

	_, err = s.FindByID(ctx, "people", "65a000000000000000000000")
	assert.ErrorIs(t, err, contract.ErrNotFound)
}

func TestFindConditionTree(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()
	seed(t, s,
		bson.M{"name": "Alice", "city": "Berlin", "age": 31, "joined_date": time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)},
		bson.M{"name": "bob", "city": "Hamburg", "age": int64(25), "joined_date": time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)},
		bson.M{"name": "Carol", "city": "berlin", "age": 47.0, "tags": bson.A{"vip", "beta"}},
		bson.M{"name": "Dave", "messages": bson.A{bson.M{"content": "Hello there"}, bson.M{"content": "bye"}}},
	)

	tt := []struct {
		name  string
		cond  bson.M
		names []string
	}{
		{"case-insensitive regex", bson.M{"city": specification.ContainsFold("BERL")}, []string{"Alice", "Carol"}},
		{"prefix regex", bson.M{"name": specification.Prefix("b")}, []string{"bob"}},
		{"prefix regex is case-sensitive", bson.M{"name": specification.Prefix("B")}, nil},
		{"prefix regex quotes metacharacters", bson.M{"name": specification.Prefix("C.")}, nil},
		{"not equal includes missing", bson.M{"city": bson.M{"$ne": "Hamburg"}}, []string{"Alice", "Carol", "Dave"}},
		{"numeric range mixes int widths", bson.M{"age": bson.M{"$gte": 30, "$lt": int64(47)}}, []string{"Alice"}},
		{"date range", bson.M{"joined_date": bson.M{
			"$gte": time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			"$lt":  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		}}, []string{"Alice"}},
		{"or", bson.M{"$or": bson.A{bson.M{"name": "bob"}, bson.M{"name": "Dave"}}}, []string{"bob", "Dave"}},
		{"and", bson.M{"$and": bson.A{bson.M{"city": specification.ContainsFold("berlin")}, bson.M{"age": bson.M{"$gt": 40}}}}, []string{"Carol"}},
		{"array element equality", bson.M{"tags": "vip"}, []string{"Carol"}},
		{"dotted path into array", bson.M{"messages.content": specification.ContainsFold("hello")}, []string{"Dave"}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			docs, err := s.Find(ctx, "people", specification.Conditions{List: []bson.M{tc.cond}})
			require.NoError(t, err)

			var names []string
			for _, d := range docs {
				names = append(names, d["name"].(string))
			}
			assert.Equal(t, tc.names, names)
		})
	}
}

func TestFindSortSkipLimitAndCount(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()
	seed(t, s,
		bson.M{"name": "c", "n": 3},
		bson.M{"name": "a", "n": 1},
		bson.M{"name": "d", "n": 4},
		bson.M{"name": "b", "n": 2},
	)

	docs, err := s.Find(ctx, "people",
		specification.OrderBy{Field: "n", Desc: true},
		specification.Pagination{Offset: 1, Limit: 2},
	)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "c", docs[0]["name"])
	assert.Equal(t, "b", docs[1]["name"])

	n, err := s.Count(ctx, "people", specification.Pagination{Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n, "count ignores the window")

	docs, err = s.Find(ctx, "people", specification.Pagination{Offset: 10, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestReplaceDeleteAndUnique(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()
	require.NoError(t, s.EnsureUnique(ctx, "people", "email"))

	ids := seed(t, s, bson.M{"email": "a@x.io"}, bson.M{"email": "b@x.io"})

	_, err := s.Insert(ctx, "people", bson.M{"email": "a@x.io"})
	assert.ErrorIs(t, err, contract.ErrDuplicate)

	err = s.Replace(ctx, "people", ids[1], bson.M{"email": "a@x.io"})
	assert.ErrorIs(t, err, contract.ErrDuplicate)

	require.NoError(t, s.Replace(ctx, "people", ids[1], bson.M{"email": "c@x.io", "extra": "y"}))
	doc, err := s.FindByID(ctx, "people", ids[1])
	require.NoError(t, err)
	assert.Equal(t, "c@x.io", doc["email"])

	require.NoError(t, s.Delete(ctx, "people", ids[0]))
	assert.ErrorIs(t, s.Delete(ctx, "people", ids[0]), contract.ErrNotFound)

	n, err := s.DeleteMany(ctx, "people", specification.Filter("extra", "y"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()
	ids := seed(t, s, bson.M{"name": "original"})

	doc, err := s.FindByID(ctx, "people", ids[0])
	require.NoError(t, err)
	doc["name"] = "mutated"

	again, err := s.FindByID(ctx, "people", ids[0])
	require.NoError(t, err)
	assert.Equal(t, "original", again["name"])
}
