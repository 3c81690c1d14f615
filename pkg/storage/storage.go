// Package storage keeps uploaded file blobs. Keys are slash-separated paths
// relative to the storage root, e.g. "documents/prompts/<id>.pdf".
package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path"
	"strings"
)

var (
	ErrNotExist   = fs.ErrNotExist
	ErrInvalidKey = errors.New("invalid storage key")
)

type Storage interface {
	Save(ctx context.Context, key string, r io.Reader) error
	// Open returns ErrNotExist when the blob is missing.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete returns ErrNotExist when there was nothing to delete.
	Delete(ctx context.Context, key string) error
}

func cleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
