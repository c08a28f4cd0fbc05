package herrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNilCauseReturnsNil(t *testing.T) {
	require.Nil(t, Wrap(KindInternal, "no cause here", nil))
}

func TestKindOfUnwrapsTypedErrors(t *testing.T) {
	base := errors.New("connection refused")
	wrapped := Wrap(KindUnreachable, "model endpoint", base)

	assert.Equal(t, KindUnreachable, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindUnreachable))
	assert.False(t, Is(wrapped, KindDead))
}

func TestKindOfDefaultsToInternalForPlainErrors(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestTypedErrorMessageIncludesCause(t *testing.T) {
	base := errors.New("timeout")
	err := New(KindRateLimited, "provider refused request")
	assert.Contains(t, err.Error(), "RATE_LIMITED")

	wrapped := Wrap(KindUnreachable, "dial failed", base)
	assert.Contains(t, wrapped.Error(), "timeout")
}
