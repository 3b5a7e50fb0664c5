package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandhost/capahost/internal/capability"
	"github.com/sandhost/capahost/internal/resource"
)

func TestLookupBucketReturnsResourceTableMisuseForUnknownHandle(t *testing.T) {
	view := &capability.View{Table: resource.NewTable()}
	_, err := lookupBucket(view, 999)
	require.Error(t, err)
	capErr, ok := err.(*capability.Error)
	require.True(t, ok)
	assert.Equal(t, capability.KindResourceTableMisuse, capErr.Kind)
	assert.True(t, capErr.Traps)
}

func TestLookupBucketReturnsResourceTableMisuseForWrongType(t *testing.T) {
	table := resource.NewTable()
	handle := table.Push("not a bucket")
	view := &capability.View{Table: table}

	_, err := lookupBucket(view, uint32(handle))
	require.Error(t, err)
	capErr, ok := err.(*capability.Error)
	require.True(t, ok)
	assert.Equal(t, capability.KindResourceTableMisuse, capErr.Kind)
}

func TestLookupBucketResolvesPushedBucket(t *testing.T) {
	backend := NewInMemoryBackend()
	bucket, err := backend.Open(context.Background(), "orders")
	require.NoError(t, err)

	table := resource.NewTable()
	handle := table.Push(bucket)
	view := &capability.View{Table: table}

	resolved, err := lookupBucket(view, uint32(handle))
	require.NoError(t, err)
	assert.NoError(t, resolved.Set(context.Background(), "k", []byte("v"), 0))
	v, found, err := bucket.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), v)
}
