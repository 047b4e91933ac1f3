package errors

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		category   ErrorCategory
		httpStatus int
		message    string
	}{
		{
			name:       "validation error",
			err:        NewValidationError("driver_id is required"),
			category:   CategoryValidation,
			httpStatus: http.StatusBadRequest,
			message:    "[VALIDATION_ERROR] driver_id is required",
		},
		{
			name:       "not found error",
			err:        NewNotFoundError("candidate", "c-42"),
			category:   CategoryNotFound,
			httpStatus: http.StatusNotFound,
			message:    "[NOT_FOUND] candidate not found",
		},
		{
			name:       "rate limit error",
			err:        NewRateLimitError("60s"),
			category:   CategoryRateLimit,
			httpStatus: http.StatusTooManyRequests,
			message:    "[RATE_LIMIT_EXCEEDED] Rate limit exceeded",
		},
		{
			name:       "internal error",
			err:        NewInternalError("query failed", fmt.Errorf("disk io")),
			category:   CategoryInternal,
			httpStatus: http.StatusInternalServerError,
			message:    "[INTERNAL_ERROR] Internal server error",
		},
		{
			name:       "configuration error",
			err:        NewConfigurationError("missing jwt secret", nil),
			category:   CategoryConfiguration,
			httpStatus: http.StatusInternalServerError,
			message:    "[CONFIGURATION_ERROR] Configuration error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
			assert.Equal(t, tt.message, tt.err.Error())
			assert.False(t, tt.err.Timestamp.IsZero())
		})
	}
}

func TestToAppError(t *testing.T) {
	t.Run("passes through AppError", func(t *testing.T) {
		orig := NewValidationError("bad input")
		assert.Same(t, orig, ToAppError(orig))
	})

	t.Run("maps sql.ErrNoRows to not found", func(t *testing.T) {
		appErr := ToAppError(sql.ErrNoRows)
		assert.Equal(t, CategoryNotFound, appErr.Category)
		assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	})

	t.Run("maps context cancellation to timeout", func(t *testing.T) {
		appErr := ToAppError(context.Canceled)
		assert.Equal(t, CategoryTimeout, appErr.Category)
	})

	t.Run("defaults to internal", func(t *testing.T) {
		appErr := ToAppError(fmt.Errorf("something odd"))
		assert.Equal(t, CategoryInternal, appErr.Category)
		assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToAppError(nil))
	})
}

func TestValidationErrorWithMap(t *testing.T) {
	appErr := NewValidationErrorWithMap(map[string]string{
		"row 3": "unknown event type",
		"row 7": "latitude out of range",
	})

	require.NotNil(t, appErr)
	assert.Equal(t, CategoryValidation, appErr.Category)
	assert.Len(t, appErr.Details.Errors, 2)
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "context"))

	base := fmt.Errorf("base failure")
	wrapped := WrapError(base, "importing batch %d", 3)
	require.Error(t, wrapped)
	assert.ErrorIs(t, wrapped, base)
	assert.Contains(t, wrapped.Error(), "importing batch 3")
}
