package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrConflict means a blob for the given id already exists. The store
	// never overwrites; with random 128-bit ids this indicates a collision
	// or a caller bug.
	ErrConflict = errors.New("artifact already exists for this id")
	// ErrTooLarge means the source exceeded the configured size ceiling
	// mid-stream and the write was aborted.
	ErrTooLarge = errors.New("artifact exceeds maximum allowed size")
	// ErrNotFound means no blob exists at the given location.
	ErrNotFound = errors.New("artifact not found")
)

// WriteReceipt reports a completed blob write. It is only produced after the
// underlying storage confirms the bytes are flushed and closed.
type WriteReceipt struct {
	Location     string
	BytesWritten int64
}

// BlobStore streams artifact bytes to durable storage. Implementations must
// guarantee that a failed or cancelled Write leaves no partial artifact
// retrievable at the target location.
type BlobStore interface {
	Write(ctx context.Context, id string, declaredName string, source io.Reader) (*WriteReceipt, error)
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	Delete(ctx context.Context, location string) error
}
