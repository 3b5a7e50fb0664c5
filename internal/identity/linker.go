package identity

import (
	"context"
	"encoding/json"

	"github.com/tetratelabs/wazero"

	"github.com/sandhost/capahost/internal/capability"
)

// Linker exports the identity capability as a single host function,
// identity_access_token, bound to provider.
func Linker(provider *Provider) capability.Linker {
	return func(_ context.Context, _ wazero.Runtime, builder wazero.HostModuleBuilder, view *capability.View) error {
		capability.ExportJSON(builder, "identity_access_token", view, func(ctx context.Context, _ *capability.View, req json.RawMessage) (json.RawMessage, error) {
			var in accessTokenRequest
			if err := json.Unmarshal(req, &in); err != nil {
				return nil, capability.InternalError(err)
			}
			token, err := provider.AccessToken(ctx, in.IdentityID)
			if err != nil {
				return nil, err
			}
			return json.Marshal(accessTokenResponse{Value: token.Value, ExpiresAt: token.ExpiresAt.UTC().Format(rfc3339)})
		})
		return nil
	}
}

const rfc3339 = "2006-01-02T15:04:05Z07:00"

type accessTokenRequest struct {
	IdentityID string `json:"identity_id"`
}

type accessTokenResponse struct {
	Value     string `json:"value"`
	ExpiresAt string `json:"expires_at"`
}
