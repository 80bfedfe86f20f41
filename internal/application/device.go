package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fduhole/dxkit/internal/domain/port/driven"
)

const deviceIDKey = "device-id"

// LoadDeviceID returns the installation's device identifier, generating and
// persisting a random UUID the first time.
func LoadDeviceID(ctx context.Context, prefs driven.PreferenceStore) (string, error) {
	id, err := prefs.Get(ctx, deviceIDKey)
	if err != nil {
		return "", fmt.Errorf("read device id: %w", err)
	}
	if id != "" {
		return id, nil
	}

	id = uuid.NewString()
	if err := prefs.Set(ctx, deviceIDKey, id); err != nil {
		return "", fmt.Errorf("store device id: %w", err)
	}
	return id, nil
}
