package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorFormats(t *testing.T) {
	err := ConflictError("call was modified concurrently")
	assert.Equal(t, "CONFLICT: call was modified concurrently", err.Error())
	assert.Equal(t, http.StatusConflict, err.StatusCode)

	wrapped := Wrap(ErrCodeDatabase, "insert failed", fmt.Errorf("connection reset"))
	assert.Contains(t, wrapped.Error(), "caused by: connection reset")
}

func TestIsCodeUnwrapsChains(t *testing.T) {
	inner := InvalidTransitionError("call already terminal")
	outer := fmt.Errorf("update call: %w", inner)

	assert.True(t, IsCode(outer, ErrCodeInvalidTransition))
	assert.False(t, IsCode(outer, ErrCodeConflict))
	assert.True(t, IsAppError(outer))
}

func TestGetAppErrorWrapsUnknown(t *testing.T) {
	appErr := GetAppError(fmt.Errorf("boom"))
	assert.Equal(t, ErrCodeInternal, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)

	known := UserError("no recording file available")
	assert.Same(t, known, GetAppError(fmt.Errorf("download: %w", known)))
}
