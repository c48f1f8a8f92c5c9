package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// newTestStore points a BlobStore at a fake GCS JSON API.
func newTestStore(t *testing.T, handler http.Handler) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, Config{Bucket: "test-bucket", Prefix: "/gpx/"})
	require.NoError(t, err)
	return store
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = New(client, Config{})
	require.Error(t, err)
}

func TestPutObjectUploads(t *testing.T) {
	t.Parallel()

	data := []byte("<gpx>track</gpx>")
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/b/test-bucket/o")
		assert.Equal(t, "gpx/bennevis.gpx", r.URL.Query().Get("name"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), string(data))

		fmt.Fprintln(w, `{"name": "gpx/bennevis.gpx", "bucket": "test-bucket"}`)
	})
	store := newTestStore(t, handler)

	uri, err := store.PutObject(context.Background(), "bennevis.gpx", "application/gpx+xml", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "gs://test-bucket/gpx/bennevis.gpx", uri)

	_, err = store.PutObject(context.Background(), " ", "", bytes.NewReader(data))
	assert.Error(t, err)
}

func TestExists(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if strings.Contains(r.URL.Path, "missing.gpx") {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"error": {"code": 404, "message": "Not Found"}}`)
			return
		}
		fmt.Fprintln(w, `{"name": "gpx/present.gpx", "bucket": "test-bucket", "size": "10"}`)
	})
	store := newTestStore(t, handler)

	uri, ok, err := store.Exists(context.Background(), "present.gpx")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "gs://test-bucket/gpx/present.gpx", uri)

	_, ok, err = store.Exists(context.Background(), "missing.gpx")
	require.NoError(t, err)
	assert.False(t, ok)
}
