package roleplay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandTemplate_SubstitutesKnownKeywords(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	out, err := ExpandTemplate(
		"You are {{char}}, talking to {{user}} at {{request_time}}. Personality: {{char_personality}}.",
		TemplateVars{Char: "Aria", User: "alice", RequestTime: now, CharPersonality: "playful"},
	)
	require.NoError(t, err)
	assert.Equal(t, "You are Aria, talking to alice at 2026-07-31T12:00:00Z. Personality: playful.", out)
}

func TestExpandTemplate_UnknownKeywordIsFatal(t *testing.T) {
	_, err := ExpandTemplate("Hello {{char}}, {{made_up_keyword}}!", TemplateVars{Char: "Aria"})
	require.Error(t, err)
	var unknown *ErrUnknownTemplateKeyword
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "made_up_keyword", unknown.Keyword)
}

func TestExpandTemplate_NoPlaceholdersPassesThrough(t *testing.T) {
	out, err := ExpandTemplate("plain prompt with no substitutions", TemplateVars{})
	require.NoError(t, err)
	assert.Equal(t, "plain prompt with no substitutions", out)
}
