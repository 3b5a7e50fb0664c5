// Package resource implements the per-store resource table: the handle
// registry that backs cross-boundary references handed to a guest.
package resource

import (
	"errors"
	"sync"
)

// ErrUnknownHandle is returned by Get when a guest references a handle the
// table does not hold. Callers at the capability layer translate this into
// a capability.ResourceTableMisuse error, which traps the guest.
var ErrUnknownHandle = errors.New("resource table: unknown handle")

// Handle is an opaque integer reference a guest holds to a host-owned object.
type Handle uint32

// Table is a per-store mapping from Handle to a type-erased, host-owned
// object. A resource is inserted when the host hands it to the guest and
// removed when the guest explicitly drops it or the store is torn down.
//
// A Table is never shared across stores; it is created fresh per guest
// invocation by the dispatcher and discarded (dropping all live entries)
// when that invocation completes.
type Table struct {
	mu      sync.Mutex
	next    Handle
	objects map[Handle]any
}

// NewTable creates an empty resource table.
func NewTable() *Table {
	return &Table{objects: make(map[Handle]any)}
}

// Push inserts an object and returns the handle the guest will use to refer
// to it.
func (t *Table) Push(obj any) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	h := t.next
	t.objects[h] = obj
	return h
}

// Get retrieves the object behind a handle. Returns ErrUnknownHandle if the
// handle is unknown; the capability layer translates that into
// ResourceTableMisuse, which traps the guest.
func (t *Table) Get(h Handle) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	obj, ok := t.objects[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return obj, nil
}

// Drop removes a handle from the table. Dropping an unknown handle is a
// no-op (the guest may race a drop against store teardown).
func (t *Table) Drop(h Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.objects, h)
}

// Len reports the number of live resources. Used by tests to assert that
// store teardown releases every handle handed out during a call.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.objects)
}

// Clear drops every resource in the table, mirroring store teardown.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.objects = make(map[Handle]any)
}
