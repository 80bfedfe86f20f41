// Package driven defines secondary port interfaces for external adapters.
package driven

import "errors"

// Sentinel errors shared by every remote and storage adapter. Adapters wrap
// them with context; callers match with errors.Is.
var (
	// ErrUnauthorized indicates rejected credentials or an expired/invalid token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTransport indicates a network failure, timeout, or unexpected server response.
	ErrTransport = errors.New("transport error")

	// ErrDecode indicates a payload that could not be decoded.
	ErrDecode = errors.New("malformed payload")
)
