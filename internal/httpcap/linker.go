package httpcap

import (
	"context"
	"encoding/json"

	"github.com/tetratelabs/wazero"

	"github.com/sandhost/capahost/internal/capability"
)

// Linker exports the outbound HTTP capability as a single host function,
// http_fetch, bound to client.
func Linker(client *Client) capability.Linker {
	return func(_ context.Context, _ wazero.Runtime, builder wazero.HostModuleBuilder, view *capability.View) error {
		capability.ExportJSON(builder, "http_fetch", view, func(ctx context.Context, _ *capability.View, req json.RawMessage) (json.RawMessage, error) {
			var in Request
			if err := json.Unmarshal(req, &in); err != nil {
				return nil, capability.InternalError(err)
			}
			resp, err := client.Fetch(ctx, in)
			if err != nil {
				return nil, err
			}
			return json.Marshal(resp)
		})
		return nil
	}
}
