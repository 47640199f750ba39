// Package blob defines the contract for the external blob storage that holds
// uploaded images: path-addressed writes with progress reporting, durable URL
// resolution after upload, and deletion by resolved URL.
package blob

import (
	"context"
	"io"
)

// ProgressFunc receives upload progress as a percentage in [0,100]. Values
// are monotonically non-decreasing; consumers may render them directly.
type ProgressFunc func(percent int)

// Handle tracks one in-flight upload.
type Handle interface {
	// Done is closed when the upload reaches a terminal state.
	Done() <-chan struct{}

	// Err reports the upload failure, nil on success. Valid after Done.
	Err() error
}

// Store is the external blob storage.
type Store interface {
	// Upload starts writing size bytes from r to the given path. onProgress
	// may be nil. The returned handle reports completion; cancelling ctx
	// aborts the upload.
	Upload(ctx context.Context, path string, r io.Reader, size int64, onProgress ProgressFunc) Handle

	// ResolveURL returns the durable URL of an uploaded blob.
	ResolveURL(ctx context.Context, path string) (string, error)

	// DeleteByURL removes the blob a previously resolved URL points at.
	DeleteByURL(ctx context.Context, url string) error
}
