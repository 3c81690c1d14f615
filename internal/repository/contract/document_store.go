package contract

import (
	"context"
	"errors"

	"ai-dms-be/internal/repository/specification"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrInvalidDocument is a store-side validation rejection, not an I/O failure.
	ErrInvalidDocument = errors.New("document rejected by store validation")
	ErrDuplicate       = errors.New("duplicate key")
)

// DocumentStore is the collection store every repository sits on.
type DocumentStore interface {
	// Insert assigns an ObjectID when doc has no _id and returns its hex form.
	Insert(ctx context.Context, collection string, doc bson.M) (string, error)
	// Replace overwrites the whole document; last writer wins.
	Replace(ctx context.Context, collection, id string, doc bson.M) error
	Delete(ctx context.Context, collection, id string) error
	DeleteMany(ctx context.Context, collection string, specs ...specification.Specification) (int64, error)
	// FindByID tries the ObjectID encoding first, then the raw string id.
	FindByID(ctx context.Context, collection, id string) (bson.M, error)
	FindOne(ctx context.Context, collection string, specs ...specification.Specification) (bson.M, error)
	Find(ctx context.Context, collection string, specs ...specification.Specification) ([]bson.M, error)
	// Count ignores any skip/limit window.
	Count(ctx context.Context, collection string, specs ...specification.Specification) (int64, error)
	EnsureUnique(ctx context.Context, collection, field string) error
}

// ContextCache stores text extracted from a file, keyed by file id.
type ContextCache interface {
	Get(ctx context.Context, fileID string) (string, bool)
	Set(ctx context.Context, fileID, text string)
	Delete(ctx context.Context, fileID string)
}
