package blobfetch

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPFetcherFetchesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("binary-data"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher()
	body, mime, err := f.Fetch(t.Context(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "binary-data", string(body))
	require.Equal(t, "image/png", mime)
}

func TestHTTPFetcherErrorsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher()
	_, _, err := f.Fetch(t.Context(), srv.URL)
	require.Error(t, err)
}

func TestRouterRoutesPrivateURLsToS3(t *testing.T) {
	s3, err := NewS3Fetcher("", "", "", "", "", "https://private.internal/")
	require.NoError(t, err)
	require.True(t, s3.IsPrivateURL("https://private.internal/foo.png"))
	require.False(t, s3.IsPrivateURL("https://cdn.example.com/foo.png"))

	router := NewRouter(NewHTTPFetcher(), s3)
	_, _, err = router.Fetch(t.Context(), "https://private.internal/foo.png")
	require.ErrorContains(t, err, "s3 fetcher is not configured")
}
