package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError(t *testing.T) {
	err := NewDomainError("FOLDER_NAME_EMPTY", "Folder name cannot be empty")
	assert.Equal(t, "Folder name cannot be empty", err.Error())
	assert.Equal(t, "FOLDER_NAME_EMPTY", err.Code)
}

func TestDomainError_WrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("failed to create folder: %w", ErrAlreadyExists)

	assert.True(t, errors.Is(wrapped, ErrAlreadyExists))
	assert.False(t, errors.Is(wrapped, ErrNotFound))

	var de *DomainError
	assert.True(t, errors.As(wrapped, &de))
	assert.Equal(t, "ALREADY_EXISTS", de.Code)
}
