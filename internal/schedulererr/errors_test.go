package schedulererr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors_SupportErrorsIs(t *testing.T) {
	wrapped := fmt.Errorf("registering batch: %w", ErrBadInput)
	assert.True(t, errors.Is(wrapped, ErrBadInput))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
}
