package helper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	t.Run("Wrap error with operation", func(t *testing.T) {
		err := NewError("insert signal", errors.New("boom"))
		assert.EqualError(t, err, "insert signal: boom")
	})

	t.Run("Nil error stays nil", func(t *testing.T) {
		assert.NoError(t, NewError("noop", nil))
	})

	t.Run("Wrapped sentinel is detectable", func(t *testing.T) {
		err := NewError("outer", NewError("inner", ErrNotFound))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
