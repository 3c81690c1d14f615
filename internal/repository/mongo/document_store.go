package mongo

import (
	"context"
	"errors"
	"fmt"

	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/internal/repository/specification"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// documentValidationFailure is the server code for a $jsonSchema rejection.
const documentValidationFailure = 121

type DocumentStore struct {
	db *mongo.Database
}

func NewDocumentStore(db *mongo.Database) contract.DocumentStore {
	return &DocumentStore{db: db}
}

// mapError folds driver errors onto the contract sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return contract.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", contract.ErrDuplicate, err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(documentValidationFailure) {
		return fmt.Errorf("%w: %v", contract.ErrInvalidDocument, err)
	}
	return err
}

// idFilters lists the _id encodings to try, ObjectID first.
func idFilters(id string) []bson.M {
	var filters []bson.M
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		filters = append(filters, bson.M{"_id": oid})
	}
	return append(filters, bson.M{"_id": id})
}

func (s *DocumentStore) Insert(ctx context.Context, collection string, doc bson.M) (string, error) {
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	res, err := s.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return "", mapError(err)
	}
	switch id := res.InsertedID.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	case string:
		return id, nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

func (s *DocumentStore) Replace(ctx context.Context, collection, id string, doc bson.M) error {
	replacement := bson.M{}
	for k, v := range doc {
		if k != "_id" {
			replacement[k] = v
		}
	}
	for _, filter := range idFilters(id) {
		res, err := s.db.Collection(collection).ReplaceOne(ctx, filter, replacement)
		if err != nil {
			return mapError(err)
		}
		if res.MatchedCount > 0 {
			return nil
		}
	}
	return contract.ErrNotFound
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	for _, filter := range idFilters(id) {
		res, err := s.db.Collection(collection).DeleteOne(ctx, filter)
		if err != nil {
			return mapError(err)
		}
		if res.DeletedCount > 0 {
			return nil
		}
	}
	return contract.ErrNotFound
}

func (s *DocumentStore) DeleteMany(ctx context.Context, collection string, specs ...specification.Specification) (int64, error) {
	q := specification.NewQuery(specs...)
	res, err := s.db.Collection(collection).DeleteMany(ctx, q.Condition())
	if err != nil {
		return 0, mapError(err)
	}
	return res.DeletedCount, nil
}

func (s *DocumentStore) FindByID(ctx context.Context, collection, id string) (bson.M, error) {
	for _, filter := range idFilters(id) {
		var doc bson.M
		err := s.db.Collection(collection).FindOne(ctx, filter).Decode(&doc)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mapError(err)
		}
	}
	return nil, contract.ErrNotFound
}

func (s *DocumentStore) FindOne(ctx context.Context, collection string, specs ...specification.Specification) (bson.M, error) {
	q := specification.NewQuery(specs...)
	opts := options.FindOne()
	if len(q.Sort) > 0 {
		opts.SetSort(q.Sort)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}

	var doc bson.M
	if err := s.db.Collection(collection).FindOne(ctx, q.Condition(), opts).Decode(&doc); err != nil {
		return nil, mapError(err)
	}
	return doc, nil
}

func (s *DocumentStore) Find(ctx context.Context, collection string, specs ...specification.Specification) ([]bson.M, error) {
	q := specification.NewQuery(specs...)
	opts := options.Find()
	if len(q.Sort) > 0 {
		opts.SetSort(q.Sort)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := s.db.Collection(collection).Find(ctx, q.Condition(), opts)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	docs := []bson.M{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapError(err)
	}
	return docs, nil
}

func (s *DocumentStore) Count(ctx context.Context, collection string, specs ...specification.Specification) (int64, error) {
	q := specification.NewQuery(specs...)
	n, err := s.db.Collection(collection).CountDocuments(ctx, q.Condition())
	if err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func (s *DocumentStore) EnsureUnique(ctx context.Context, collection, field string) error {
	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true).SetName(field + "_unique"),
	})
	return mapError(err)
}
