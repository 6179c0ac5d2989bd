package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Chain(t *testing.T) {
	err := NewLLMError(CodeLLMExhausted, "analysis failed", context.DeadlineExceeded)
	wrapped := fmt.Errorf("failed to analyze: %w", err)

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindLLM, appErr.Kind)
	assert.True(t, errors.Is(wrapped, context.DeadlineExceeded))
	assert.True(t, IsKind(wrapped, KindLLM))
	assert.False(t, IsKind(wrapped, KindValidation))
	assert.Contains(t, err.Error(), "deadline exceeded")
}

func TestAppError_Constructors(t *testing.T) {
	v := NewValidationError(CodeFileTooLarge, "too large", map[string]any{"max_bytes": 10})
	assert.Equal(t, KindValidation, v.Kind)
	assert.Equal(t, "file_too_large: too large", v.Error())

	r := NewRateLimitedError(30 * time.Second)
	assert.Equal(t, KindRateLimited, r.Kind)
	assert.Equal(t, 30*time.Second, r.RetryAfter)

	_, ok := AsAppError(errors.New("plain"))
	assert.False(t, ok)
}
