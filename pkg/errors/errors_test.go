package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsComparesCode(t *testing.T) {
	err := ErrTimeout.WithMessage("call get_msg timeout")
	assert.True(t, Is(err, ErrTimeout))
	assert.False(t, Is(err, ErrStatus))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, Is(wrapped, ErrTimeout))
}

func TestWithErrorKeepsOriginal(t *testing.T) {
	io := stderrors.New("broken pipe")
	err := ErrTransport.WithError(io)

	assert.True(t, Is(err, io))
	assert.Nil(t, ErrTransport.Err, "predefined error must not be modified")
	assert.Equal(t, "传输异常: broken pipe", err.Error())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, 2004, CodeOf(fmt.Errorf("x: %w", ErrResponseShape)))
	assert.Equal(t, 0, CodeOf(stderrors.New("plain")))
}
