package driven

import (
	"context"
	"errors"
)

// ErrEncryptionKeyNotSet is returned by SecretStore operations when
// DXKIT_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set DXKIT_SECRET_KEY")

// SecretStore defines the driven port for encrypted blob persistence keyed by
// string. The adapter is responsible for encryption; values cross this
// boundary in plaintext.
type SecretStore interface {
	// Get returns the stored blob for key, or (nil, nil) if none exists.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores or replaces the blob for key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the blob for key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
