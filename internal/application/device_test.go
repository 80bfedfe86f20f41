package application_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fduhole/dxkit/internal/application"
)

func TestLoadDeviceID_GeneratesOnceAndPersists(t *testing.T) {
	prefs := newMemoryPreferenceStore()
	ctx := context.Background()

	first, err := application.LoadDeviceID(ctx, prefs)
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	second, err := application.LoadDeviceID(ctx, prefs)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadDeviceID_KeepsExisting(t *testing.T) {
	prefs := newMemoryPreferenceStore()
	prefs.values["device-id"] = "preset"

	id, err := application.LoadDeviceID(context.Background(), prefs)

	require.NoError(t, err)
	assert.Equal(t, "preset", id)
}
