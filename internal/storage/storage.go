// Package storage keeps uploaded media objects, in MinIO or on local disk.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/kartikbazzad/bunbase/bunpress/internal/config"
)

// ErrNotFound is returned when an object key does not exist.
var ErrNotFound = errors.New("object not found")

// Store is an object store addressed by slash-separated keys.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	// Check reports whether the store is reachable and writable.
	Check(ctx context.Context) error
}

// Object holds the reader and metadata for a downloaded object.
type Object struct {
	Reader       io.ReadCloser
	ContentType  string
	Size         int64
	LastModified time.Time
}

// New picks the MinIO store when an endpoint is configured, local disk otherwise.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	if cfg.Endpoint == "" {
		return NewLocal(cfg.LocalDir)
	}
	return NewMinio(ctx, cfg)
}

// DeleteAll removes every key, returning the first error after trying all.
func DeleteAll(ctx context.Context, s Store, keys ...string) error {
	var first error
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil && !errors.Is(err, ErrNotFound) && first == nil {
			first = err
		}
	}
	return first
}
