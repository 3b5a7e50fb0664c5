package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sandhost/capahost/internal/capability"
)

func TestPackPtrLenRoundTrip(t *testing.T) {
	packed := capability.PackPtrLen(1024, 256)
	ptr, length := capability.UnpackPtrLen(packed)
	assert.Equal(t, uint32(1024), ptr)
	assert.Equal(t, uint32(256), length)
}

func TestPackPtrLenZeroLength(t *testing.T) {
	packed := capability.PackPtrLen(4096, 0)
	ptr, length := capability.UnpackPtrLen(packed)
	assert.Equal(t, uint32(4096), ptr)
	assert.Equal(t, uint32(0), length)
}
