package capability

import (
	"context"

	"github.com/sandhost/capahost/internal/resource"
)

// View is the per-store window a capability gets into its own context and
// the store's resource table. A capability never holds mutable per-call
// state itself; everything short-lived lives in the Table owned by the
// calling store.
type View struct {
	Table *resource.Table
}

// Backend mirrors the Rust original's `Backend` trait: a typed set of
// connect options loaded from the environment, and an async constructor.
// The capability packages in this repository do not implement it; each
// builds its host-side context with its own New function.
type Backend[O any] interface {
	Connect(ctx context.Context, opts O) error
}

// FromEnv mirrors the Rust original's `FromEnv` trait for a capability
// backend's connect-options type. No type in this repository implements it;
// options are read by internal/config.
type FromEnv interface {
	FromEnv() error
}

// Host names a capability's host-side context. No capability in this
// repository implements it; the dispatcher links capabilities into a fresh
// guest instance through their Linker functions.
type Host interface {
	// Name identifies the capability for linker registration and logging.
	Name() string
}

// TranslateResourceError converts a resource.Table lookup failure into the
// taxonomy's ResourceTableMisuse, which traps the guest. Capability host
// functions call this at the one place they touch the resource table by
// handle so a host-internal invariant violation never reaches the guest as
// a plain error.
func TranslateResourceError(err error) error {
	if err == nil {
		return nil
	}
	return ResourceTableMisuse(err.Error())
}
