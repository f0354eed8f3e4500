package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSample = New(KindConflict, "already subscribed")

func TestIs_MatchesWrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("storage.Create: %w", errSample.With(errors.New("duplicate key")))

	assert.ErrorIs(t, wrapped, errSample)
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, "already subscribed", Message(wrapped))
}

func TestIs_DifferentMessage(t *testing.T) {
	other := New(KindConflict, "user exists")

	assert.NotErrorIs(t, other, errSample)
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "internal error", Message(errors.New("boom")))
}

func TestMessage_HidesCause(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"internal", Wrap(KindInternal, "db exploded at host 10.0.0.1", nil), "internal error"},
		{"upstream", Wrap(KindUpstream, "provider 502", errors.New("x")), "payment provider unavailable"},
		{"validation", New(KindValidation, "plan is required"), "plan is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.err))
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	err := Wrap(KindNotFound, "subscription not found", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "not_found")
	assert.Contains(t, err.Error(), "cause")
}
