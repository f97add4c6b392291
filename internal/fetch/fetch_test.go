package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/pagegrade/internal/config"
)

func testConfig() config.FetchConfig {
	return config.FetchConfig{
		Timeout:      2 * time.Second,
		UserAgent:    config.DefaultUserAgent,
		MaxBodyBytes: 1 << 20,
	}
}

func TestFetch_success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><title>T</title><body>hello</body></html>"))
	}))
	defer srv.Close()

	res, err := New(testConfig()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.HTML, "hello")
	assert.Equal(t, config.DefaultUserAgent, gotUA)
}

func TestFetch_errorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(testConfig()).Fetch(context.Background(), srv.URL+"/blocked")
	require.Error(t, err)
	fe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, fe.StatusCode)
	assert.Equal(t, srv.URL+"/blocked", fe.URL)
	assert.Contains(t, err.Error(), "403")
}

func TestFetch_invalidURL(t *testing.T) {
	f := New(testConfig())
	for _, u := range []string{"", "ftp://example.com", "not a url", "/relative"} {
		_, err := f.Fetch(context.Background(), u)
		fe, ok := AsError(err)
		if assert.True(t, ok, "url %q", u) {
			assert.Equal(t, 0, fe.StatusCode)
		}
	}
}

func TestFetch_connectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := New(testConfig()).Fetch(context.Background(), addr)
	fe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, 0, fe.StatusCode)
	assert.NotNil(t, fe.Unwrap())
}

func TestFetch_cancelledContext(t *testing.T) {
	cfg := testConfig()
	cfg.RequestsPerSec = 0.001
	f := New(cfg)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, srv.URL)
	assert.Error(t, err, "second fetch should be paced beyond the deadline")
}

func TestFetch_decodesLatin1(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<body>r\xe9sum\xe9</body>"))
	}))
	defer srv.Close()

	res, err := New(testConfig()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, res.HTML, "résumé")
}

func TestDecode_utf8Passthrough(t *testing.T) {
	assert.Equal(t, "<p>naïve</p>", Decode([]byte("<p>naïve</p>"), ""))
}
