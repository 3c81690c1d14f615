package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/internal/repository/specification"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DocumentStore keeps collections in process memory. Documents round-trip
// through BSON on every read and write so callers see the same value types
// the mongo driver produces.
type DocumentStore struct {
	mu          sync.RWMutex
	collections map[string][]bson.M
	unique      map[string][]string
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		collections: map[string][]bson.M{},
		unique:      map[string][]string{},
	}
}

func clone(doc bson.M) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrInvalidDocument, err)
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DocumentStore) EnsureUnique(_ context.Context, collection, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unique[collection] = append(s.unique[collection], field)
	return nil
}

func (s *DocumentStore) violatesUnique(collection string, doc bson.M, skip int) bool {
	for _, field := range s.unique[collection] {
		v, ok := doc[field]
		if !ok {
			continue
		}
		for i, other := range s.collections[collection] {
			if i != skip && equal(other[field], v) {
				return true
			}
		}
	}
	return false
}

func (s *DocumentStore) Insert(_ context.Context, collection string, doc bson.M) (string, error) {
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	stored, err := clone(doc)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(collection, idHex(stored["_id"])) >= 0 || s.violatesUnique(collection, stored, -1) {
		return "", contract.ErrDuplicate
	}
	s.collections[collection] = append(s.collections[collection], stored)
	return idHex(stored["_id"]), nil
}

func idHex(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	}
	return fmt.Sprint(v)
}

// indexOf matches the ObjectID form first, then the raw string form.
func (s *DocumentStore) indexOf(collection, id string) int {
	docs := s.collections[collection]
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		for i, d := range docs {
			if d["_id"] == oid {
				return i
			}
		}
	}
	for i, d := range docs {
		if raw, ok := d["_id"].(string); ok && raw == id {
			return i
		}
	}
	return -1
}

func (s *DocumentStore) Replace(_ context.Context, collection, id string, doc bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(collection, id)
	if i < 0 {
		return contract.ErrNotFound
	}
	doc["_id"] = s.collections[collection][i]["_id"]
	stored, err := clone(doc)
	if err != nil {
		return err
	}
	if s.violatesUnique(collection, stored, i) {
		return contract.ErrDuplicate
	}
	s.collections[collection][i] = stored
	return nil
}

func (s *DocumentStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(collection, id)
	if i < 0 {
		return contract.ErrNotFound
	}
	docs := s.collections[collection]
	s.collections[collection] = append(docs[:i:i], docs[i+1:]...)
	return nil
}

func (s *DocumentStore) DeleteMany(ctx context.Context, collection string, specs ...specification.Specification) (int64, error) {
	q := specification.NewQuery(specs...)

	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []bson.M
	var removed int64
	for _, d := range s.collections[collection] {
		ok, err := Match(d, q.Condition())
		if err != nil {
			return 0, err
		}
		if ok {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	s.collections[collection] = kept
	return removed, nil
}

func (s *DocumentStore) FindByID(_ context.Context, collection, id string) (bson.M, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(collection, id)
	if i < 0 {
		return nil, contract.ErrNotFound
	}
	return clone(s.collections[collection][i])
}

func (s *DocumentStore) FindOne(ctx context.Context, collection string, specs ...specification.Specification) (bson.M, error) {
	specs = append(specs, specification.Pagination{Limit: 1})
	docs, err := s.Find(ctx, collection, specs...)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, contract.ErrNotFound
	}
	return docs[0], nil
}

func (s *DocumentStore) filter(collection string, q *specification.Query) ([]bson.M, error) {
	var out []bson.M
	for _, d := range s.collections[collection] {
		ok, err := Match(d, q.Condition())
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *DocumentStore) Find(_ context.Context, collection string, specs ...specification.Specification) ([]bson.M, error) {
	q := specification.NewQuery(specs...)

	s.mu.RLock()
	matched, err := s.filter(collection, q)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if len(q.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, key := range q.Sort {
				a, b := lookup(matched[i], key.Key), lookup(matched[j], key.Key)
				c := compareFirst(a, b)
				if c == 0 {
					continue
				}
				if dir, _ := key.Value.(int); dir < 0 {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	start := q.Skip
	if start > int64(len(matched)) {
		start = int64(len(matched))
	}
	end := int64(len(matched))
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	out := make([]bson.M, 0, end-start)
	for _, d := range matched[start:end] {
		c, err := clone(d)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// compareFirst orders missing values before present ones, as mongo does.
func compareFirst(a, b []interface{}) int {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 0
	case len(a) == 0:
		return -1
	case len(b) == 0:
		return 1
	}
	c, _ := compare(a[0], b[0])
	return c
}

func (s *DocumentStore) Count(_ context.Context, collection string, specs ...specification.Specification) (int64, error) {
	q := specification.NewQuery(specs...)

	s.mu.RLock()
	defer s.mu.RUnlock()
	matched, err := s.filter(collection, q)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

var _ contract.DocumentStore = (*DocumentStore)(nil)
