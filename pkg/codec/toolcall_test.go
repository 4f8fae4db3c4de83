package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testKind string

const (
	kindAction testKind = "Action"
	kindChat   testKind = "Chat"
)

func (testKind) Options() []string { return []string{string(kindAction), string(kindChat)} }

type testFragment struct {
	Kind testKind `json:"kind" desc:"fragment kind"`
	Text string   `json:"text" desc:"fragment text"`
}

type testOutput struct {
	Fragments []testFragment `json:"fragments" desc:"ordered fragments"`
	Options   []string       `json:"options" required:"false" desc:"optional replies"`
	Summary   string         `json:"summary" desc:"turn summary"`
}

func (*testOutput) ToolName() string        { return "test_tool" }
func (*testOutput) ToolDescription() string { return "a test tool" }

func TestSchemaRequiredFieldsExcludeOptional(t *testing.T) {
	s := Schema(&testOutput{})
	assert.ElementsMatch(t, []string{"fragments", "summary"}, s.Required)
}

func TestSchemaEnumFieldDegradesToStringEnum(t *testing.T) {
	s := Schema(&testOutput{})
	fragSchema, ok := s.Properties.Get("fragments")
	require.True(t, ok)
	require.Equal(t, "array", fragSchema.Items.Type)

	kindSchema, ok := fragSchema.Items.Properties.Get("kind")
	require.True(t, ok)
	assert.Equal(t, "string", kindSchema.Type)
	assert.ElementsMatch(t, []any{"Action", "Chat"}, kindSchema.Enum)
}

func TestToFunctionObject(t *testing.T) {
	fo := ToFunctionObject(&testOutput{})
	assert.Equal(t, "test_tool", fo.Name)
	assert.Equal(t, "a test tool", fo.Description)
	assert.True(t, fo.Strict)
	require.NotNil(t, fo.Parameters)
}

func TestTryFromToolCallRoundTrip(t *testing.T) {
	in := &testOutput{
		Fragments: []testFragment{{Kind: kindChat, Text: "hello"}},
		Summary:   "greeted the user",
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out testOutput
	err = TryFromToolCall(&testOutput{}, "test_tool", string(raw), &out)
	require.NoError(t, err)
	assert.Equal(t, in.Summary, out.Summary)
	assert.Equal(t, in.Fragments, out.Fragments)
}

func TestTryFromToolCallNameMismatch(t *testing.T) {
	var out testOutput
	err := TryFromToolCall(&testOutput{}, "wrong_tool", `{}`, &out)
	require.Error(t, err)
	var mismatch *ErrToolNameMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "test_tool", mismatch.Expected)
	assert.Equal(t, "wrong_tool", mismatch.Got)
}

func TestTryFromToolCallMissingRequiredField(t *testing.T) {
	var out testOutput
	err := TryFromToolCall(&testOutput{}, "test_tool", `{"options":["a"]}`, &out)
	require.Error(t, err)
	var missing *ErrMissingField
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "fragments", missing.Field)
}

func TestTryFromToolCallOptionalFieldMayBeAbsent(t *testing.T) {
	var out testOutput
	err := TryFromToolCall(&testOutput{}, "test_tool", `{"fragments":[{"kind":"Chat","text":"hi"}],"summary":"ok"}`, &out)
	require.NoError(t, err)
	assert.Empty(t, out.Options)
}

func TestIntoToolCall(t *testing.T) {
	in := &testOutput{Summary: "done", Fragments: []testFragment{{Kind: kindAction, Text: "waves"}}}
	name, argsJSON, err := IntoToolCall(in)
	require.NoError(t, err)
	assert.Equal(t, "test_tool", name)
	assert.Contains(t, argsJSON, "waves")
}
