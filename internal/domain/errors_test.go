package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersistence_KeepsSentinels(t *testing.T) {
	assert.Nil(t, Persistence("op", nil))
	assert.Same(t, ErrNotFound, Persistence("op", ErrNotFound))

	wrapped := fmt.Errorf("get: %w", ErrConflict)
	assert.Equal(t, wrapped, Persistence("op", wrapped))
}

func TestPersistence_WrapsDriverErrors(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence("loyalty.get", cause)

	var pe *PersistenceError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "loyalty.get", pe.Op)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "loyalty.get: connection reset", err.Error())

	assert.Same(t, err, Persistence("outer", err))
}

func TestValidationError(t *testing.T) {
	err := Invalid("cardNumber", "must contain at least 13 digits")

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "cardNumber", ve.Field)
	assert.Contains(t, err.Error(), "cardNumber")
}
