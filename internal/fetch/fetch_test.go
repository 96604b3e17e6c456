package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-go/internal/fetch"
	"github.com/mlld-lang/mlld-go/internal/iface"
)

func TestFetchURLCachesResponses(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("module content"))
	}))
	defer srv.Close()

	c := fetch.New()
	res, err := c.FetchURL(context.Background(), srv.URL, iface.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "module content", res.Content)

	_, err = c.FetchURL(context.Background(), srv.URL, iface.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "second fetch should be served from cache")
}

func TestFetchURLBypassCacheRefetches(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("module content"))
	}))
	defer srv.Close()

	c := fetch.New()
	_, err := c.FetchURL(context.Background(), srv.URL, iface.FetchOptions{})
	require.NoError(t, err)
	_, err = c.FetchURL(context.Background(), srv.URL, iface.FetchOptions{BypassCache: true})
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func TestFetchURLErrorOnUnreachable(t *testing.T) {
	c := fetch.New()
	_, err := c.FetchURL(context.Background(), "http://127.0.0.1:0", iface.FetchOptions{})
	assert.Error(t, err)
}
