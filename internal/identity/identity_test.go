package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandhost/capahost/internal/config"
)

func TestNewRequiresAzureIdentity(t *testing.T) {
	_, err := New(config.Config{OAuth2: config.OAuth2Config{TokenURL: "http://example.invalid"}})
	require.Error(t, err)
}

func TestAccessTokenFetchesAndCaches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	p, err := New(config.Config{
		AzureIdentity: "svc-a",
		OAuth2: config.OAuth2Config{
			TokenURL:     srv.URL,
			ClientID:     "id",
			ClientSecret: "secret",
		},
	})
	require.NoError(t, err)

	tok, err := p.AccessToken(context.Background(), "svc-a")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok.Value)

	tok2, err := p.AccessToken(context.Background(), "svc-a")
	require.NoError(t, err)
	assert.Equal(t, tok.Value, tok2.Value)
	assert.Equal(t, 1, calls, "second call should reuse the cached token")
}

func TestAccessTokenUnknownIdentity(t *testing.T) {
	p := &Provider{identityID: "svc-a"}
	_, err := p.AccessToken(context.Background(), "svc-b")
	require.Error(t, err)
}
