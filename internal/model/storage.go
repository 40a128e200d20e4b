package model

import (
	"context"
	"io"
)

// Storage is an object store for exported roster documents.
type Storage interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}
