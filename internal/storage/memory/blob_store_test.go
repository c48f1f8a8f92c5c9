package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStorePutAndExists(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()

	loc, ok, err := store.Exists(ctx, "gpx/a.gpx")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "memory://gpx/a.gpx", loc)

	payload := []byte("content")
	loc, err = store.PutObject(ctx, "gpx/a.gpx", "application/gpx+xml", bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "memory://gpx/a.gpx", loc)

	_, ok, err = store.Exists(ctx, "gpx/a.gpx")
	require.NoError(t, err)
	assert.True(t, ok)

	got, ok := store.Get("gpx/a.gpx")
	require.True(t, ok)
	got[0] = 'C'
	again, _ := store.Get("gpx/a.gpx")
	assert.Equal(t, "content", string(again))
	assert.Equal(t, 1, store.Puts())
}
