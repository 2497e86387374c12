package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConflict, KindOf(Conflict("duplicate booking")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("load: %w", NotFound("event not found"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
	assert.True(t, Is(Validation("title is required"), KindValidation))
}

func TestMessage_HidesInternalDetails(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Internal("insert ticket", cause)

	assert.Equal(t, "internal server error", Message(err))
	assert.Equal(t, "internal server error", Message(cause))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMessage_Classified(t *testing.T) {
	assert.Equal(t, "admin access required", Message(Forbidden("admin access required")))
}
