package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectNamespacesByEnvironment(t *testing.T) {
	p := &Publisher{env: "staging"}
	assert.Equal(t, "staging-orders.created", p.Subject("orders.created"))
}
