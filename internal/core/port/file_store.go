package port

import (
	"context"
	"io"
)

// FileStore holds raw file content keyed by file id. Implementations must
// treat deletion of an absent object as a no-op so cleanup consumers stay
// idempotent under at-least-once delivery.
type FileStore interface {
	Put(ctx context.Context, fileID string, content io.Reader, size int64) error
	Get(ctx context.Context, fileID string) (io.ReadCloser, error)
	Delete(ctx context.Context, fileID string) error
}
