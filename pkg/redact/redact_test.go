package redact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactEmail(t *testing.T) {
	s := NewService()
	out := s.Redact("reach me at jane.doe@example.com for details")
	assert.Contains(t, out, "[REDACTED_EMAIL]")
	assert.NotContains(t, out, "jane.doe@example.com")
}

func TestRedactPhone(t *testing.T) {
	s := NewService()
	out := s.Redact("call 555-123-4567 anytime")
	assert.Contains(t, out, "[REDACTED_PHONE]")
}

func TestRedactAPIKey(t *testing.T) {
	s := NewService()
	out := s.Redact("token: sk-abcdefghijklmnopqrstuvwx")
	assert.Contains(t, out, "[REDACTED_KEY]")
}

func TestRedactEmptyContent(t *testing.T) {
	s := NewService()
	assert.Equal(t, "", s.Redact(""))
}

func TestRedactLeavesUnrelatedTextAlone(t *testing.T) {
	s := NewService()
	in := "the character smiled and said hello"
	require.Equal(t, in, s.Redact(in))
}

func TestRedactAppliesEveryPattern(t *testing.T) {
	s := NewService()
	in := "email a@b.com or call 555-234-5678 with key sk-1234567890abcdef12"
	out := s.Redact(in)
	for _, want := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_KEY]"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %s, got %q", want, out)
		}
	}
}
