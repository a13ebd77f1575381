package resource

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := NewConfigurationError("collection", "must not be empty")
		assert.Contains(t, err.Error(), "field 'collection'")
		assert.True(t, IsConfigurationError(err))
		assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	})

	t.Run("without field", func(t *testing.T) {
		err := NewConfigurationError("", "collection or OnConnect required")
		assert.Equal(t, "invalid configuration: collection or OnConnect required", err.Error())
		assert.True(t, IsConfigurationError(err))
	})

	t.Run("does not match other sentinels", func(t *testing.T) {
		err := NewConfigurationError("port", "not a number")
		assert.False(t, IsConnectionError(err))
		assert.False(t, IsStoreError(err))
	})
}

func TestConnectionError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewConnectionError("127.0.0.1", 27017, "test", cause)

	assert.Contains(t, err.Error(), "127.0.0.1:27017/test")
	assert.True(t, IsConnectionError(err))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestAuthenticationError(t *testing.T) {
	cause := errors.New("auth error")
	err := NewAuthenticationError("admin", "127.0.0.1", cause)

	assert.Contains(t, err.Error(), "user 'admin'")
	assert.True(t, IsAuthenticationError(err))
	assert.False(t, IsConnectionError(err))
	assert.True(t, errors.Is(err, cause))
}

func TestInvalidIdentifierError(t *testing.T) {
	cause := errors.New("not a hex string")
	err := NewInvalidIdentifierError("zzz", cause)

	assert.Contains(t, err.Error(), "'zzz'")
	assert.True(t, IsInvalidIdentifier(err))
	assert.False(t, IsStoreError(err))
	assert.True(t, errors.Is(err, cause))
}

func TestWrapError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, WrapError("mongodb", "get", nil))
	})

	t.Run("wraps with binding and operation", func(t *testing.T) {
		cause := errors.New("cursor exhausted")
		err := WrapError("mongodb", "find", cause)

		var storeErr *StoreError
		require.True(t, errors.As(err, &storeErr))
		assert.Equal(t, "mongodb", storeErr.Store)
		assert.Equal(t, "find", storeErr.Operation)
		assert.True(t, IsStoreError(err))
		assert.True(t, errors.Is(err, cause))
		assert.Equal(t, "[mongodb] find: cursor exhausted", err.Error())
	})

	t.Run("does not double-wrap", func(t *testing.T) {
		inner := NewStoreError("mongodb", "save", errors.New("boom"))
		err := WrapError("mongodb", "outer", fmt.Errorf("retried: %w", inner))

		var storeErr *StoreError
		require.True(t, errors.As(err, &storeErr))
		assert.Equal(t, "save", storeErr.Operation)
	})
}
