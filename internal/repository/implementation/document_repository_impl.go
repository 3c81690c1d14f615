package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/internal/repository/specification"

	"go.mongodb.org/mongo-driver/bson"
)

type stamper interface {
	Stamp(now time.Time)
}

// DocumentRepository is the typed view of one collection. Values travel
// through BSON so bson struct tags decide the stored shape.
type DocumentRepository[T any] struct {
	store      contract.DocumentStore
	collection string
}

func NewDocumentRepository[T any](store contract.DocumentStore, collection string) *DocumentRepository[T] {
	return &DocumentRepository[T]{store: store, collection: collection}
}

func toDocument(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrInvalidDocument, err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDocument[T any](doc bson.M) (*T, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := bson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

func stamp(v interface{}) {
	if s, ok := v.(stamper); ok {
		s.Stamp(time.Now().UTC())
	}
}

func (r *DocumentRepository[T]) Create(ctx context.Context, entity *T) error {
	stamp(entity)
	doc, err := toDocument(entity)
	if err != nil {
		return err
	}
	if _, err := r.store.Insert(ctx, r.collection, doc); err != nil {
		return err
	}
	saved, err := fromDocument[T](doc)
	if err != nil {
		return err
	}
	*entity = *saved
	return nil
}

// Save replaces the stored document with the same id; last writer wins.
func (r *DocumentRepository[T]) Save(ctx context.Context, entity *T) error {
	stamp(entity)
	doc, err := toDocument(entity)
	if err != nil {
		return err
	}
	id := idString(doc["_id"])
	if id == "" {
		return fmt.Errorf("%w: save without id", contract.ErrInvalidDocument)
	}
	return r.store.Replace(ctx, r.collection, id, doc)
}

func (r *DocumentRepository[T]) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.collection, id)
}

func (r *DocumentRepository[T]) FindByID(ctx context.Context, id string) (*T, error) {
	doc, err := r.store.FindByID(ctx, r.collection, id)
	if err != nil {
		if errors.Is(err, contract.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return fromDocument[T](doc)
}

func (r *DocumentRepository[T]) FindOne(ctx context.Context, specs ...specification.Specification) (*T, error) {
	doc, err := r.store.FindOne(ctx, r.collection, specs...)
	if err != nil {
		if errors.Is(err, contract.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return fromDocument[T](doc)
}

func (r *DocumentRepository[T]) FindAll(ctx context.Context, specs ...specification.Specification) ([]*T, error) {
	docs, err := r.store.Find(ctx, r.collection, specs...)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		v, err := fromDocument[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *DocumentRepository[T]) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return r.store.Count(ctx, r.collection, specs...)
}
