package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFragmentPayload struct {
	kind string
	text string
}

func (f testFragmentPayload) Variants() []PayloadVariant { return testFragmentVariants }
func (f testFragmentPayload) Tag() string                { return f.kind }
func (f testFragmentPayload) Content() string            { return f.text }

var testFragmentVariants = []PayloadVariant{
	{Tag: "Action", IncludePrefix: true},
	{Tag: "Chat", IncludePrefix: true, CatchAll: true},
}

func TestToTextStructuredVariant(t *testing.T) {
	v := testFragmentPayload{kind: "Action", text: "waves hello"}
	text, err := ToText(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Action","content":"waves hello"}`, text)
}

func TestFromTextRoundTripsStructuredVariant(t *testing.T) {
	v := testFragmentPayload{kind: "Action", text: "waves hello"}
	text, err := ToText(v)
	require.NoError(t, err)

	tag, content, err := FromText(testFragmentVariants, text)
	require.NoError(t, err)
	assert.Equal(t, v.Tag(), tag)
	assert.Equal(t, v.Content(), content)
}

func TestFromTextUnrecognizedBareStringFallsToCatchAll(t *testing.T) {
	tag, content, err := FromText(testFragmentVariants, "just some dialogue")
	require.NoError(t, err)
	assert.Equal(t, "Chat", tag)
	assert.Equal(t, "just some dialogue", content)
}

func TestFromTextExactTagMatchesWithEmptyContent(t *testing.T) {
	tag, content, err := FromText(testFragmentVariants, "Action")
	require.NoError(t, err)
	assert.Equal(t, "Action", tag)
	assert.Empty(t, content)
}

func TestFromTextUnknownStructuredTypeErrors(t *testing.T) {
	_, _, err := FromText(testFragmentVariants, `{"type":"Whisper","content":"psst"}`)
	require.Error(t, err)
}

func TestMarshalUnmarshalPayloadTextEnumJSONRoundTrip(t *testing.T) {
	v := testFragmentPayload{kind: "Chat", text: "hi there"}
	data, err := MarshalPayloadTextEnum(v)
	require.NoError(t, err)

	tag, content, err := UnmarshalPayloadTextEnumJSON(testFragmentVariants, data)
	require.NoError(t, err)
	assert.Equal(t, v.Tag(), tag)
	assert.Equal(t, v.Content(), content)
}

func TestPayloadTextEnumSchemaAllPayloadBecomesTypeContentObject(t *testing.T) {
	s := payloadTextEnumSchema(testFragmentVariants)
	assert.Equal(t, "object", s.Type)
	typeSchema, ok := s.Properties.Get("type")
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"Action", "Chat"}, typeSchema.Enum)
	contentSchema, ok := s.Properties.Get("content")
	require.True(t, ok)
	assert.Equal(t, "string", contentSchema.Type)
	assert.ElementsMatch(t, []string{"type", "content"}, s.Required)
}

func TestPayloadTextEnumSchemaAllUnitDegradesToStringEnum(t *testing.T) {
	unitVariants := []PayloadVariant{
		{Tag: "Draft"},
		{Tag: "Published"},
	}
	s := payloadTextEnumSchema(unitVariants)
	assert.Equal(t, "string", s.Type)
	assert.ElementsMatch(t, []any{"Draft", "Published"}, s.Enum)
}
