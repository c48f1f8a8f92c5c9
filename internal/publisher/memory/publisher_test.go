package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "records", map[string]any{"url": "https://x/a", "complete": true})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "records", map[string]any{"url": "https://x/b"})
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	var body struct {
		URL      string `json:"url"`
		Complete bool   `json:"complete"`
	}
	require.NoError(t, msgs[0].Decode(&body))
	assert.Equal(t, "https://x/a", body.URL)
	assert.True(t, body.Complete)

	msgs[0].Topic = "modified"
	assert.Equal(t, "records", pub.Messages()[0].Topic, "Messages returns a copy")
}

func TestPublisherFailures(t *testing.T) {
	t.Parallel()

	pub := New()
	_, err := pub.Publish(context.Background(), "records", func() {})
	require.Error(t, err)

	boom := errors.New("unavailable")
	pub.FailWith(boom)
	_, err = pub.Publish(context.Background(), "records", "x")
	require.ErrorIs(t, err, boom)

	pub.FailWith(nil)
	_, err = pub.Publish(context.Background(), "records", "x")
	require.NoError(t, err)
	assert.Len(t, pub.Messages(), 1)
}
