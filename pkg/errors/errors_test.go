package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  NewNotFoundError("drug not found"),
			want: "NOT_FOUND: drug not found",
		},
		{
			name: "with cause",
			err:  NewInternalError("query failed", errors.New("connection reset")),
			want: "INTERNAL: query failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := NewExternalError("openfda request failed", cause, true)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, err.Retryable)
}

func TestNewCircuitOpenError(t *testing.T) {
	err := NewCircuitOpenError("FDA_API", 1500*time.Millisecond)

	assert.Equal(t, ErrorTypeCircuitOpen, err.Type)
	assert.Equal(t, 1500*time.Millisecond, err.RetryAfter)
	assert.True(t, err.Retryable)
	assert.Contains(t, err.Message, "retry after 1500ms")
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("looking up label: %w", NewNotFoundError("no match"))

	assert.True(t, IsType(wrapped, ErrorTypeNotFound))
	assert.False(t, IsType(wrapped, ErrorTypeExternal))
	assert.False(t, IsType(errors.New("plain"), ErrorTypeNotFound))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrorTypeRateLimited, TypeOf(NewRateLimitedError("slow down", time.Second)))
	assert.Equal(t, ErrorTypeInternal, TypeOf(errors.New("plain")))
}
