package identity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRequestRoundTrip(t *testing.T) {
	data, err := json.Marshal(accessTokenRequest{IdentityID: "svc-orders"})
	require.NoError(t, err)

	var decoded accessTokenRequest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "svc-orders", decoded.IdentityID)
}
