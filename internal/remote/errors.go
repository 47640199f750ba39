package remote

import "errors"

var (
	// ErrNotFound — the referenced document or collection does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied — the store rejected the operation. The client
	// cannot distinguish an auth failure from a policy rejection; both map
	// here.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnavailable — transport-level failure (network loss, timeout,
	// backend down). Terminal for the in-flight operation; no automatic retry.
	ErrUnavailable = errors.New("store unavailable")

	// ErrValidation — the request was rejected locally before any remote
	// call was attempted.
	ErrValidation = errors.New("validation error")

	// ErrClosed — the handle or connection was already closed.
	ErrClosed = errors.New("closed")
)
