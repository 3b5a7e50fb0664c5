package state

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tetratelabs/wazero"

	"github.com/sandhost/capahost/internal/capability"
	"github.com/sandhost/capahost/internal/resource"
)

// Linker exports the state-store capability's operations as host functions
// bound to backend: state_open, state_get, state_set, state_delete,
// state_exists, state_keys. state_open hands the guest a resource handle to
// the bucket it named; every other operation takes that handle.
func Linker(backend Backend) capability.Linker {
	return func(_ context.Context, _ wazero.Runtime, builder wazero.HostModuleBuilder, view *capability.View) error {
		capability.ExportJSON(builder, "state_open", view, func(ctx context.Context, view *capability.View, req json.RawMessage) (json.RawMessage, error) {
			var in openRequest
			if err := json.Unmarshal(req, &in); err != nil {
				return nil, capability.InternalError(err)
			}
			bucket, err := backend.Open(ctx, in.Bucket)
			if err != nil {
				return nil, err
			}
			handle := view.Table.Push(bucket)
			return json.Marshal(openResponse{Handle: uint32(handle)})
		})

		capability.ExportJSON(builder, "state_get", view, func(ctx context.Context, view *capability.View, req json.RawMessage) (json.RawMessage, error) {
			var in keyRequest
			if err := json.Unmarshal(req, &in); err != nil {
				return nil, capability.InternalError(err)
			}
			bucket, err := lookupBucket(view, in.Handle)
			if err != nil {
				return nil, err
			}
			value, found, err := bucket.Get(ctx, in.Key)
			if err != nil {
				return nil, err
			}
			return json.Marshal(getResponse{Value: value, Found: found})
		})

		capability.ExportJSON(builder, "state_set", view, func(ctx context.Context, view *capability.View, req json.RawMessage) (json.RawMessage, error) {
			var in setRequest
			if err := json.Unmarshal(req, &in); err != nil {
				return nil, capability.InternalError(err)
			}
			bucket, err := lookupBucket(view, in.Handle)
			if err != nil {
				return nil, err
			}
			ttl := time.Duration(in.TTLMillis) * time.Millisecond
			if err := bucket.Set(ctx, in.Key, in.Value, ttl); err != nil {
				return nil, err
			}
			return json.Marshal(struct{}{})
		})

		capability.ExportJSON(builder, "state_delete", view, func(ctx context.Context, view *capability.View, req json.RawMessage) (json.RawMessage, error) {
			var in keyRequest
			if err := json.Unmarshal(req, &in); err != nil {
				return nil, capability.InternalError(err)
			}
			bucket, err := lookupBucket(view, in.Handle)
			if err != nil {
				return nil, err
			}
			if err := bucket.Delete(ctx, in.Key); err != nil {
				return nil, err
			}
			return json.Marshal(struct{}{})
		})

		capability.ExportJSON(builder, "state_exists", view, func(ctx context.Context, view *capability.View, req json.RawMessage) (json.RawMessage, error) {
			var in keyRequest
			if err := json.Unmarshal(req, &in); err != nil {
				return nil, capability.InternalError(err)
			}
			bucket, err := lookupBucket(view, in.Handle)
			if err != nil {
				return nil, err
			}
			exists, err := bucket.Exists(ctx, in.Key)
			if err != nil {
				return nil, err
			}
			return json.Marshal(existsResponse{Exists: exists})
		})

		capability.ExportJSON(builder, "state_keys", view, func(ctx context.Context, view *capability.View, req json.RawMessage) (json.RawMessage, error) {
			var in handleRequest
			if err := json.Unmarshal(req, &in); err != nil {
				return nil, capability.InternalError(err)
			}
			bucket, err := lookupBucket(view, in.Handle)
			if err != nil {
				return nil, err
			}
			keys, err := bucket.Keys(ctx)
			if err != nil {
				return nil, err
			}
			return json.Marshal(keysResponse{Keys: keys})
		})

		return nil
	}
}

func lookupBucket(view *capability.View, handle uint32) (Bucket, error) {
	obj, err := view.Table.Get(resource.Handle(handle))
	if err != nil {
		return nil, capability.TranslateResourceError(err)
	}
	bucket, ok := obj.(Bucket)
	if !ok {
		return nil, capability.ResourceTableMisuse("handle does not reference a state bucket")
	}
	return bucket, nil
}

type openRequest struct {
	Bucket string `json:"bucket"`
}

type openResponse struct {
	Handle uint32 `json:"handle"`
}

type handleRequest struct {
	Handle uint32 `json:"handle"`
}

type keyRequest struct {
	Handle uint32 `json:"handle"`
	Key    string `json:"key"`
}

type getResponse struct {
	Value []byte `json:"value,omitempty"`
	Found bool   `json:"found"`
}

type setRequest struct {
	Handle    uint32 `json:"handle"`
	Key       string `json:"key"`
	Value     []byte `json:"value"`
	TTLMillis int64  `json:"ttl_millis,omitempty"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

type keysResponse struct {
	Keys []string `json:"keys"`
}
