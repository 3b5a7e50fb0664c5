// Package dispatcher runs one guest component instance per inbound event.
// A module is compiled once at startup; each event gets a fresh store, a
// fresh resource table, and a fresh instantiation from the compiled module,
// so a guest can never observe state left behind by a previous event.
// Teardown after the call releases every resource the event's handler
// acquired.
//
// The host/guest wire protocol packs a pointer and a length into the high
// and low 32 bits of a single i64, the same ABI convention used by the
// reglet host-functions bridge this package borrows its memory-handoff
// code from.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/sandhost/capahost/internal/capability"
	"github.com/sandhost/capahost/internal/logger"
	"github.com/sandhost/capahost/internal/resource"
)

// Dispatcher compiles a guest module once and instantiates it fresh for
// every dispatched event.
type Dispatcher struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	linkers  []capability.Linker
	handler  string
}

// New compiles the guest module at modulePath and prepares a Dispatcher
// that invokes its exported handler function (handlerFuncName) once per
// event, wiring the given capability linkers into every instantiation.
func New(ctx context.Context, modulePath string, handlerFuncName string, linkers ...capability.Linker) (*Dispatcher, error) {
	runtime := wazero.NewRuntime(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		runtime.Close(ctx)
		return nil, capability.InternalError(fmt.Errorf("instantiate wasi: %w", err))
	}

	wasmBytes, err := readModuleFile(modulePath)
	if err != nil {
		runtime.Close(ctx)
		return nil, capability.Wrap(capability.KindMissingConfig, "read guest module", err)
	}

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		runtime.Close(ctx)
		return nil, capability.InternalError(fmt.Errorf("compile guest module: %w", err))
	}

	return &Dispatcher{runtime: runtime, compiled: compiled, linkers: linkers, handler: handlerFuncName}, nil
}

// Close tears down the runtime and releases the compiled module.
func (d *Dispatcher) Close(ctx context.Context) error {
	return d.runtime.Close(ctx)
}

// Dispatch runs one event through a fresh guest instance: a new resource
// table and capability view are created, every capability linker is
// installed into a fresh host module, the module is instantiated, the
// event payload is written into guest memory, the handler export is
// called, and the response is read back out. The resource table is
// cleared on return regardless of outcome, releasing anything the handler
// acquired.
func (d *Dispatcher) Dispatch(ctx context.Context, event any) (json.RawMessage, error) {
	table := resource.NewTable()
	view := &capability.View{Table: table}
	defer table.Clear()

	builder := d.runtime.NewHostModuleBuilder("env")
	for _, link := range d.linkers {
		if err := link(ctx, d.runtime, builder, view); err != nil {
			return nil, capability.InternalError(fmt.Errorf("install capability linker: %w", err))
		}
	}
	hostMod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, capability.InternalError(fmt.Errorf("instantiate host module: %w", err))
	}
	defer hostMod.Close(ctx)

	moduleConfig := wazero.NewModuleConfig().WithStartFunctions("_start")
	mod, err := d.runtime.InstantiateModule(ctx, d.compiled, moduleConfig)
	if err != nil {
		return nil, capability.InternalError(fmt.Errorf("instantiate guest module: %w", err))
	}
	defer mod.Close(ctx)

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, capability.InternalError(fmt.Errorf("marshal event: %w", err))
	}

	argPacked, err := writeToGuestMemory(ctx, mod, payload)
	if err != nil {
		return nil, err
	}

	handlerFn := mod.ExportedFunction(d.handler)
	if handlerFn == nil {
		return nil, capability.InternalError(fmt.Errorf("guest module does not export %q", d.handler))
	}

	results, err := handlerFn.Call(ctx, argPacked)
	if err != nil {
		logger.Dispatcher().Warn().Err(err).Msg("guest handler trapped")
		return nil, capability.ResourceTableMisuse(err.Error())
	}
	if len(results) != 1 {
		return nil, capability.InternalError(fmt.Errorf("guest handler returned %d results, want 1", len(results)))
	}

	return readFromGuestMemory(mod, results[0])
}

func writeToGuestMemory(ctx context.Context, mod api.Module, data []byte) (uint64, error) {
	allocate := mod.ExportedFunction("allocate")
	if allocate == nil {
		return 0, capability.InternalError(fmt.Errorf("guest module does not export allocate"))
	}
	results, err := allocate.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, capability.InternalError(fmt.Errorf("call guest allocate: %w", err))
	}
	ptr := uint32(results[0])
	if !mod.Memory().Write(ptr, data) {
		return 0, capability.InternalError(fmt.Errorf("write %d bytes at guest offset %d out of range", len(data), ptr))
	}
	return capability.PackPtrLen(ptr, uint32(len(data))), nil
}

func readFromGuestMemory(mod api.Module, packed uint64) (json.RawMessage, error) {
	ptr, length := capability.UnpackPtrLen(packed)
	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return nil, capability.InternalError(fmt.Errorf("read %d bytes at guest offset %d out of range", length, ptr))
	}
	out := make(json.RawMessage, len(data))
	copy(out, data)
	return out, nil
}
