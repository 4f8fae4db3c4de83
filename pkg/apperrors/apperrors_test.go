package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMapsSentinelsToUserFacingCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want UserFacing
	}{
		{"not found", ErrNotFound, NotFound},
		{"insufficient funds", ErrInsufficientFunds, InsufficientPoints},
		{"refusal", ErrRefusal, ModelRefusal},
		{"transport", ErrTransport, TemporaryFailure},
		{"timeout", ErrTimeout, TemporaryFailure},
		{"output shape", ErrOutputShape, Internal},
		{"invalid prompt shape", ErrInvalidPromptShape, Internal},
		{"unclassified", errors.New("boom"), Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestClassifyUnwrapsWrappedSentinels(t *testing.T) {
	wrapped := fmt.Errorf("store: lookup character: %w", ErrNotFound)
	assert.Equal(t, NotFound, Classify(wrapped))
}
