package httpcap

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandhost/capahost/internal/capability"
)

func TestFetchGetMethod(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	resp, err := New().Fetch(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(resp.Body))
}

func TestFetchPostWithBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "payload", string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	resp, err := New().Fetch(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   []byte("payload"),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestFetchCustomHeadersForwarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hello", r.Header.Get("X-Custom"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := New().Fetch(context.Background(), Request{
		Method:  http.MethodGet,
		URL:     srv.URL,
		Headers: map[string][]string{"X-Custom": {"hello"}},
	})
	require.NoError(t, err)
}

func TestFetchForbiddenResponseHeadersStripped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Transfer-Encoding", "chunked")
		w.Header().Set("Upgrade", "websocket")
		w.Header().Set("X-Safe-Header", "kept")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := New().Fetch(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	_, hasConnection := resp.Headers["Connection"]
	_, hasUpgrade := resp.Headers["Upgrade"]
	assert.False(t, hasConnection)
	assert.False(t, hasUpgrade)
	assert.Contains(t, resp.Headers["X-Safe-Header"], "kept")
}

func TestFetchInvalidURI(t *testing.T) {
	_, err := New().Fetch(context.Background(), Request{Method: http.MethodGet, URL: "://not-a-url"})
	require.Error(t, err)
	capErr, ok := err.(*capability.Error)
	require.True(t, ok)
	assert.Equal(t, capability.KindHTTPRequestURIInvalid, capErr.Kind)
}

func TestFetchConnectionRefused(t *testing.T) {
	_, err := New().Fetch(context.Background(), Request{Method: http.MethodGet, URL: "http://127.0.0.1:1"})
	require.Error(t, err)
	capErr, ok := err.(*capability.Error)
	require.True(t, ok)
	assert.Equal(t, capability.KindConnectionRefused, capErr.Kind)
}

func TestFetchInvalidClientCertBase64(t *testing.T) {
	_, err := New().Fetch(context.Background(), Request{
		Method:  http.MethodGet,
		URL:     "http://example.invalid",
		Headers: map[string][]string{"Client-Cert": {"not-base64!!"}},
	})
	require.Error(t, err)
	capErr, ok := err.(*capability.Error)
	require.True(t, ok)
	assert.Equal(t, capability.KindInternalError, capErr.Kind)
}

func TestFetchInvalidClientCertPEM(t *testing.T) {
	_, err := New().Fetch(context.Background(), Request{
		Method:  http.MethodGet,
		URL:     "http://example.invalid",
		Headers: map[string][]string{"Client-Cert": {"bm90LWEtcGVt"}}, // base64("not-a-pem")
	})
	require.Error(t, err)
	capErr, ok := err.(*capability.Error)
	require.True(t, ok)
	assert.Equal(t, capability.KindInternalError, capErr.Kind)
}
