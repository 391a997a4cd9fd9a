package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_WrappedChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("list cycles: %w", Wrap(NetworkError, 0, "could not reach API", cause))

	assert.Equal(t, NetworkError, KindOf(err))
	assert.True(t, Is(err, NetworkError))
	assert.False(t, Is(err, ServerError))
	assert.Equal(t, 0, StatusOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "connection refused", Detail(err))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, Unknown, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, Unknown))
}

func TestError_Message(t *testing.T) {
	e := New(RateLimited, 429, "Rate limited. Retry after 30s.")
	e.RetryAfter = 30
	assert.Equal(t, "Rate limited. Retry after 30s.", e.Error())
	assert.Equal(t, 429, StatusOf(e))

	onlyCause := &Error{Kind: ServerError, Err: errors.New("bad gateway")}
	assert.Equal(t, "bad gateway", onlyCause.Error())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "session_expired", SessionExpired.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}
