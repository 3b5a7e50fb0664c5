package capability

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// PackPtrLen packs a guest memory offset and a byte length into a single
// i64, the wire convention every host function uses to hand a buffer
// across the sandbox boundary.
func PackPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

// UnpackPtrLen reverses PackPtrLen.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	return uint32(packed >> 32), uint32(packed)
}

// Linker installs one capability's host functions into builder, binding
// them to view's per-store resource table. Each capability package
// implements exactly one of these.
type Linker func(ctx context.Context, runtime wazero.Runtime, builder wazero.HostModuleBuilder, view *View) error

// JSONFunc is a capability operation expressed as JSON request/response,
// independent of the WASM ABI; ExportJSON adapts it into a host function.
type JSONFunc func(ctx context.Context, view *View, request json.RawMessage) (json.RawMessage, error)

// ExportJSON registers fn as a host function named name on builder. The
// guest calls it with a packed (ptr, len) pointing at a JSON request in its
// own memory; the host reads it, invokes fn, writes the JSON response (or a
// JSON-encoded Error on failure) into a guest buffer obtained by calling
// the guest's exported `allocate`, and returns its packed (ptr, len).
func ExportJSON(builder wazero.HostModuleBuilder, name string, view *View, fn JSONFunc) {
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, reqPacked uint64) uint64 {
		ptr, length := UnpackPtrLen(reqPacked)
		data, ok := mod.Memory().Read(ptr, length)
		if !ok {
			return writeJSONResponse(ctx, mod, nil, InternalError(fmt.Errorf("read request buffer at %d/%d out of range", ptr, length)))
		}

		resp, err := fn(ctx, view, data)
		return writeJSONResponse(ctx, mod, resp, err)
	}).Export(name)
}

func writeJSONResponse(ctx context.Context, mod api.Module, resp json.RawMessage, callErr error) uint64 {
	var payload []byte
	if callErr != nil {
		payload, _ = json.Marshal(envelope{Error: toCapabilityError(callErr)})
	} else {
		payload, _ = json.Marshal(envelope{Result: resp})
	}

	allocate := mod.ExportedFunction("allocate")
	if allocate == nil {
		return 0
	}
	results, err := allocate.Call(ctx, uint64(len(payload)))
	if err != nil {
		return 0
	}
	ptr := uint32(results[0])
	if !mod.Memory().Write(ptr, payload) {
		return 0
	}
	return PackPtrLen(ptr, uint32(len(payload)))
}

type envelope struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

func toCapabilityError(err error) *Error {
	if capErr, ok := err.(*Error); ok {
		return capErr
	}
	return InternalError(err)
}
