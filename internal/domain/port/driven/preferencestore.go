package driven

import "context"

// PreferenceStore defines the driven port for small unencrypted settings such
// as the device identifier and the last uploaded notification token.
// Get returns ("", nil) when the key is absent.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
