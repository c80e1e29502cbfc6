package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by KV.Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// KV is a durable blob store keyed by name.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Blob keys
const (
	KeyStats      = "ugc-user-stats"
	KeyHistory    = "ugc-job-history"
	KeyCredential = "ugc-password"
)
