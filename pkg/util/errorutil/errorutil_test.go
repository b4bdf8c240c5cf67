package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorKeepsDomainErrors(t *testing.T) {
	err := fmt.Errorf("claim: %w", NewIneligible("ticket already assigned", map[string]any{"ticket_id": "TKT-1"}))

	de := ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, CodeIneligible, de.Code)
	assert.Equal(t, http.StatusConflict, de.HTTPStatus)
	assert.Equal(t, "TKT-1", de.Details["ticket_id"])
}

func TestToDomainErrorWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("connection reset")

	de := ToDomainError(cause)
	require.NotNil(t, de)
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.ErrorIs(t, de, cause)
}

func TestToDomainErrorNil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
}

func TestCodeHelpers(t *testing.T) {
	assert.True(t, IsValidation(NewValidationError("title required", nil)))
	assert.True(t, IsNotFound(NewNotFound("ticket", nil)))
	assert.True(t, IsIneligible(fmt.Errorf("wrapped: %w", NewIneligible("nope", nil))))
	assert.False(t, IsIneligible(NewNotFound("ticket", nil)))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestNotFoundMessage(t *testing.T) {
	err := NewNotFound("user", map[string]any{"user_id": "u-1"})
	assert.Equal(t, "user not found", err.Error())
}
