package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExhaustedIsDistinguishable(t *testing.T) {
	wrapped := Wrapf(ErrExhausted, "after %d topologies", 4)
	assert.True(t, IsExhausted(wrapped))
	assert.False(t, IsRegistrationError(wrapped))

	for _, sentinel := range []error{
		ErrMalformedSpec,
		ErrUnknownComponent,
		ErrDuplicateComponent,
		ErrMalformedTimeline,
		ErrUnknownSnippetReference,
	} {
		err := Wrap(sentinel, "register")
		assert.False(t, IsExhausted(err), "sentinel %v", sentinel)
		assert.True(t, IsRegistrationError(err), "sentinel %v", sentinel)
	}
}

func TestWrapKeepsMessage(t *testing.T) {
	err := Wrapf(ErrUnknownComponent, "target %q", "X")
	assert.Equal(t, `target "X": unknown component`, err.Error())
	assert.True(t, Is(err, ErrUnknownComponent))
}
