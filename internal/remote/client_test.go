package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","message":"up","version":"2.0.0","features":{"image_compression":true}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil)
	report, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", report.Status)
	assert.Equal(t, "2.0.0", report.Version)
	assert.True(t, report.Features["image_compression"])
}

func TestHealthUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil)
	_, err := client.Health(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPingDownServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, time.Second, nil)
	assert.ErrorIs(t, client.Ping(context.Background()), ErrUnavailable)
}

func TestCompressImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/compress-image", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "75", r.FormValue("quality"))
		assert.Equal(t, "webp", r.FormValue("format"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "cat.png", header.Filename)

		w.Header().Set("X-Original-Size", "1000")
		w.Header().Set("X-Compressed-Size", "400")
		w.Write([]byte("compressed-bytes"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil)
	out, stats, err := client.CompressImage(context.Background(), "cat.png", []byte("raw"), 75, "webp")
	require.NoError(t, err)
	assert.Equal(t, []byte("compressed-bytes"), out)
	assert.Equal(t, int64(1000), stats.OriginalSize)
	assert.Equal(t, int64(400), stats.CompressedSize)
}

func TestCompressImageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad image", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil)
	_, _, err := client.CompressImage(context.Background(), "cat.png", []byte("raw"), 75, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}
