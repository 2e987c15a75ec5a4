package debug

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicDecoderWrapper(t *testing.T) {
	wrapped := PanicDecoderWrapper(func(msg interface{}) error {
		panic(errors.New("index out of range"))
	})

	err := wrapped("payload")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPanic))

	var panicErr *PanicErrorMessage
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, "index out of range", panicErr.Error())
	assert.Equal(t, "payload", panicErr.Msg)
	assert.NotEmpty(t, panicErr.Stacktrace)
}

func TestPanicDecoderWrapperPassthrough(t *testing.T) {
	sentinel := errors.New("decode failed")
	wrapped := PanicDecoderWrapper(func(msg interface{}) error {
		return sentinel
	})
	assert.Equal(t, sentinel, wrapped(nil))
}
