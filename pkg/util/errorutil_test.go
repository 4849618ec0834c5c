package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
	})

	t.Run("domain error passes through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("load order: %w", NewForbidden("nope"))
		de := ToDomainError(wrapped)
		require.NotNil(t, de)
		assert.Equal(t, "FORBIDDEN", de.Code)
		assert.Equal(t, http.StatusForbidden, de.HTTPStatus)
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		de := ToDomainError(fmt.Errorf("query: %w", pgx.ErrNoRows))
		assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
		assert.True(t, IsNotFound(fmt.Errorf("x: %w", pgx.ErrNoRows)))
	})

	t.Run("anything else is internal", func(t *testing.T) {
		cause := errors.New("connection reset")
		de := ToDomainError(cause)
		assert.Equal(t, "INTERNAL_ERROR", de.Code)
		assert.ErrorIs(t, de, cause)
	})
}

func TestNewUnavailableKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewUnavailable("order storage unavailable", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusServiceUnavailable, ToDomainError(err).HTTPStatus)
}

func TestDeadlineMapsToTimeout(t *testing.T) {
	de := ToDomainError(fmt.Errorf("list orders: %w", context.DeadlineExceeded))
	assert.Equal(t, CodeTimeout, de.Code)
	assert.Equal(t, http.StatusGatewayTimeout, de.HTTPStatus)
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("place order: %w", NewValidationError("destination is required", nil))
	assert.True(t, HasCode(err, CodeValidation))
	assert.False(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(errors.New("plain"), CodeValidation))
}
