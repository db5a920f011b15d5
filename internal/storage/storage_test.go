package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// 1x1 transparent PNG.
var pngPixel, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

func TestDetectImage(t *testing.T) {
	ct, ext, err := DetectImage(pngPixel)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, ".png", ext)

	_, _, err = DetectImage([]byte("plain text, not an image"))
	assert.True(t, errors.Is(err, ErrNotImage))

	_, _, err = DetectImage(nil)
	assert.True(t, errors.Is(err, ErrNotImage))
}

func TestFolderName(t *testing.T) {
	assert.Equal(t, "home-garden", FolderName("Home & Garden"))
	assert.Equal(t, "electronics", FolderName("  Electronics "))
	assert.Equal(t, "uncategorized", FolderName("!!!"))
	assert.Equal(t, "a-b", FolderName("a/../b"))
}

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "electronics", "abc.png", "image/png", pngPixel)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/electronics/abc.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "electronics", "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, pngPixel, data)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocal(t.TempDir(), "http://x")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "..", "x.png", "image/png", pngPixel)
	require.Error(t, err)
	_, err = store.Put(context.Background(), "ok", "../x.png", "image/png", pngPixel)
	require.Error(t, err)
}

func TestGCSStorePut(t *testing.T) {
	var (
		mu       sync.Mutex
		gotPath  string
		gotQuery string
		gotBody  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotBody = string(body)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"electronics/abc.png","bucket":"test-bucket"}`)
	}))
	defer srv.Close()

	store, err := NewGCS(context.Background(), "test-bucket", "",
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "electronics", "abc.png", "image/png", pngPixel)
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/test-bucket/electronics/abc.png", url)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, strings.HasSuffix(gotPath, "/b/test-bucket/o"), "unexpected path %s", gotPath)
	assert.Contains(t, gotQuery, "uploadType=multipart")
	assert.Contains(t, gotBody, "electronics/abc.png")
}

func TestNewGCSRequiresBucket(t *testing.T) {
	_, err := NewGCS(context.Background(), "", "")
	require.Error(t, err)
}
