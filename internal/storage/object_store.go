package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by GetObject when no object exists at the key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore holds light-curve documents keyed by relative path. The bucket
// or base directory is fixed at construction so callers only deal in keys.
type ObjectStore interface {
	GetObject(ctx context.Context, key string) ([]byte, error)

	PutObject(ctx context.Context, key string, data io.Reader) error

	ListObjects(ctx context.Context, prefix string) ([]string, error)
}
