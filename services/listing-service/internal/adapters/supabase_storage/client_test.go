package supabase_storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{ProjectURL: srv.URL, ServiceKey: "service-key", Bucket: "listing-images"})
	require.NoError(t, err)
	return c
}

func TestCreateSignedUploadURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/storage/v1/object/upload/sign/listing-images/listings/abc/1.jpg", r.URL.Path)
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"url": "/object/upload/sign/listing-images/listings/abc/1.jpg?token=tok-123",
		})
	})

	upload, err := c.CreateSignedUploadURL(context.Background(), "listings/abc/1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "listings/abc/1.jpg", upload.Path)
	assert.Equal(t, "tok-123", upload.Token)
	assert.Contains(t, upload.SignedURL, "/storage/v1/object/upload/sign/listing-images/listings/abc/1.jpg?token=tok-123")
}

func TestDeleteObjectSendsPrefixes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/storage/v1/object/listing-images", r.URL.Path)
		var body struct {
			Prefixes []string `json:"prefixes"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"listings/abc/1.jpg"}, body.Prefixes)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("[]"))
	})

	assert.NoError(t, c.DeleteObject(context.Background(), "listings/abc/1.jpg"))
}

func TestStorageErrorIsParsed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"statusCode":"403","error":"Unauthorized","message":"invalid signature"}`))
	})

	_, err := c.CreateSignedUploadURL(context.Background(), "listings/abc/1.jpg")
	var storageErr *Error
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, http.StatusForbidden, storageErr.StatusCode)
	assert.Equal(t, "invalid signature", storageErr.Message)
}

func TestPublicURL(t *testing.T) {
	c, err := NewClient(Config{ProjectURL: "https://proj.supabase.co/", ServiceKey: "k", Bucket: "b"})
	require.NoError(t, err)
	assert.Equal(t, "https://proj.supabase.co/storage/v1/object/public/b/listings/x/a%20b.png", c.PublicURL("listings/x/a b.png"))
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(Config{ServiceKey: "k", Bucket: "b"})
	assert.Error(t, err)
	_, err = NewClient(Config{ProjectURL: "https://x", Bucket: "b"})
	assert.Error(t, err)
}
