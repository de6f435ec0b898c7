package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openspatial/spatial-cli/internal/resilience"
)

func TestParseFTPURL(t *testing.T) {
	host, path, err := parseFTPURL("ftp://ftp2.census.gov/geo/tiger/points.zip")
	require.NoError(t, err)
	assert.Equal(t, "ftp2.census.gov:21", host)
	assert.Equal(t, "/geo/tiger/points.zip", path)

	host, _, err = parseFTPURL("ftp://example.com:2121/data.csv")
	require.NoError(t, err)
	assert.Equal(t, "example.com:2121", host)

	_, _, err = parseFTPURL("https://example.com/data.csv")
	assert.Error(t, err)

	_, _, err = parseFTPURL("ftp://example.com")
	assert.Error(t, err)
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestExtractZIP(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "data.zip")
	writeZip(t, zipPath, map[string]string{
		"points.csv": "lon,lat\n1,2\n",
		"readme.txt": "notes",
	})

	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(out, 0o755))

	paths, err := ExtractZIP(zipPath, out)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	csvPath, err := FindByExt(paths, ".csv")
	require.NoError(t, err)
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "lon,lat\n1,2\n", string(data))

	_, err = FindByExt(paths, ".shp")
	assert.Error(t, err)
}

func TestExtractZIPRejectsSlip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{"../escape.txt": "nope"})

	_, err := ExtractZIP(zipPath, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal archive path")
}

func TestHTTPFetcherDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "spatial-cli/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{})
	body, err := f.Download(context.Background(), srv.URL+"/data.csv")
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestHTTPFetcherRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		Retry: resilience.Config{Attempts: 3, BaseDelay: time.Millisecond},
	})
	body, err := f.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPFetcherNoRetryOn404(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		Retry: resilience.Config{Attempts: 3, BaseDelay: time.Millisecond},
	})
	_, err := f.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetrievePlainFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("lon,lat\n0,0\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, err := Retrieve(context.Background(), srv.URL+"/pts.csv", dir, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pts.csv"), path)
}

func TestRetrieveZip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "src.zip")
	writeZip(t, zipPath, map[string]string{
		"readme.txt": "notes",
		"pts.csv":    "lon,lat\n0,0\n",
	})
	payload, err := os.ReadFile(zipPath)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	out := t.TempDir()
	path, err := Retrieve(context.Background(), srv.URL+"/pts.zip", out, ".csv")
	require.NoError(t, err)
	assert.Equal(t, ".csv", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "lon,lat\n0,0\n", string(data))
}

func TestForURL(t *testing.T) {
	f, err := ForURL("https://example.com/x.csv")
	require.NoError(t, err)
	assert.IsType(t, &HTTPFetcher{}, f)

	f, err = ForURL("ftp://example.com/x.csv")
	require.NoError(t, err)
	assert.IsType(t, &FTPFetcher{}, f)

	_, err = ForURL("s3://bucket/x.csv")
	assert.Error(t, err)
}
