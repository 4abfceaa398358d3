package keybuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyShapes(t *testing.T) {
	assert.Equal(t, "idempotency:k1", Idempotency("k1"))
	assert.Equal(t, "circuit:fcm:state", CircuitState("fcm"))
	assert.Equal(t, "circuit:fcm:failures", CircuitFailures("fcm"))
	assert.Equal(t, "circuit:fcm:successes", CircuitSuccesses("fcm"))
	assert.Equal(t, "circuit:fcm:opened_at", CircuitOpenedAt("fcm"))
}
