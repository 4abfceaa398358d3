package procerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ErrorAndUnwrap(t *testing.T) {
	wrapped := errors.New("boom")
	err := New(KindPushFailed, wrapped)

	assert.Equal(t, "push_failed: boom", err.Error())
	assert.ErrorIs(t, err, wrapped)
}

func TestError_ErrorWithNilWrapped(t *testing.T) {
	err := New(KindMissingToken, nil)
	assert.Equal(t, "missing_token", err.Error())
}

func TestKind_DLQEligible(t *testing.T) {
	assert.False(t, KindMalformedMessage.DLQEligible())

	eligible := []Kind{KindMissingToken, KindInvalidToken, KindTemplateFetch, KindTemplateRender, KindPushFailed, KindCircuitOpen}
	for _, k := range eligible {
		assert.True(t, k.DLQEligible(), "expected %s to be dlq eligible", k)
	}
}
