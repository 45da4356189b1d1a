// Package remote defines the object store abstraction used by the pipeline
// and the error classification shared by its adapters.
package remote

import (
	"context"
	"io"
)

// ObjectInfo is the metadata returned by a probe or a download.
type ObjectInfo struct {
	Key  string
	Size int64 // -1 when unknown
	ETag string
}

// ObjectStore reads immutable objects from one bucket.
//
// Errors returned by implementations are classified: errors.Is matches one of
// ErrNotFound, ErrForbidden or ErrTransient, or none of them for a
// permanent failure of another kind.
type ObjectStore interface {
	Bucket() string
	// Ping checks that the bucket is reachable with the configured credentials.
	Ping(ctx context.Context) error
	// Stat issues a metadata-only request for key.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Get opens a stream over the object content. The caller closes it.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
}
