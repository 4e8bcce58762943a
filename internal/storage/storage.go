// Package storage is the append-blob capability the appender writes through.
// Backends: Azure append blobs, Akave O3 (S3-compatible append) and memory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	BackendAzure  = "azure"
	BackendO3     = "o3"
	BackendMemory = "memory"
)

var (
	ErrBlobNotFound      = errors.New("storage: blob not found")
	ErrContainerNotFound = errors.New("storage: container not found")
	ErrUnknownBackend    = errors.New("storage: unknown backend")
)

// AppendStore is the minimal capability the appender needs. Every call is
// blocking network I/O; implementations must be safe for concurrent use.
type AppendStore interface {
	// EnsureContainer creates the container if it does not exist.
	EnsureContainer(ctx context.Context, container string) error
	Exists(ctx context.Context, container, blob string) (bool, error)
	// CreateEmpty creates an empty append blob. An existing blob is left as is.
	CreateEmpty(ctx context.Context, container, blob string) error
	// AppendBlock atomically appends data as one block to an existing blob.
	AppendBlock(ctx context.Context, container, blob string, data []byte) error
}

// BlobInfo describes a stored blob (for list responses).
type BlobInfo struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Lister is implemented by stores that can enumerate blobs under a prefix.
type Lister interface {
	ListBlobs(ctx context.Context, container, prefix string) ([]BlobInfo, error)
}

// Reader is implemented by stores that can download a blob.
type Reader interface {
	ReadBlob(ctx context.Context, container, blob string) ([]byte, error)
}

// Open builds the store for backend from its connection string.
func Open(backend, connectionString string) (AppendStore, error) {
	switch backend {
	case BackendAzure, "":
		return NewAzure(connectionString)
	case BackendO3:
		opts, err := ParseO3ConnectionString(connectionString)
		if err != nil {
			return nil, err
		}
		return NewO3(opts)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
