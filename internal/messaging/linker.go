package messaging

import (
	"context"
	"encoding/json"

	"github.com/tetratelabs/wazero"

	"github.com/sandhost/capahost/internal/capability"
)

// Linker exports the messaging capability as a single host function,
// messaging_publish, bound to publisher.
func Linker(publisher *Publisher) capability.Linker {
	return func(_ context.Context, _ wazero.Runtime, builder wazero.HostModuleBuilder, view *capability.View) error {
		capability.ExportJSON(builder, "messaging_publish", view, func(_ context.Context, _ *capability.View, req json.RawMessage) (json.RawMessage, error) {
			var in PublishedMessage
			if err := json.Unmarshal(req, &in); err != nil {
				return nil, capability.InternalError(err)
			}
			if err := publisher.Publish(in); err != nil {
				return nil, err
			}
			return json.Marshal(struct{}{})
		})
		return nil
	}
}
