package roleplay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roleplay/memoryruntime/pkg/codec"
)

func TestMessageFragmentMarshalsAsTypeContentObject(t *testing.T) {
	f := MessageFragment{Kind: FragmentAction, Text: "waves hello"}
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Action","content":"waves hello"}`, string(data))
}

func TestMessageFragmentUnmarshalRoundTrip(t *testing.T) {
	in := MessageFragment{Kind: FragmentInnerThoughts, Text: "something feels off"}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out MessageFragment
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMessageFragmentUnmarshalAcceptsBareChatString(t *testing.T) {
	var out MessageFragment
	require.NoError(t, json.Unmarshal([]byte(`"just talking"`), &out))
	assert.Equal(t, FragmentChat, out.Kind)
	assert.Equal(t, "just talking", out.Text)
}

func TestSendMessageOutputSchemaSpecializesFragmentsToTypeContent(t *testing.T) {
	s := codec.Schema(&SendMessageOutput{})
	fragSchema, ok := s.Properties.Get("fragments")
	require.True(t, ok)
	require.Equal(t, "array", fragSchema.Type)
	assert.Equal(t, "object", fragSchema.Items.Type)

	typeSchema, ok := fragSchema.Items.Properties.Get("type")
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"Action", "Scenario", "InnerThoughts", "Chat"}, typeSchema.Enum)
}

func TestSendMessageOutputToolCallRoundTrip(t *testing.T) {
	in := &SendMessageOutput{
		Fragments: []MessageFragment{
			{Kind: FragmentAction, Text: "sits down"},
			{Kind: FragmentChat, Text: "hello there"},
		},
		Summary: "greeted the user and sat down",
	}
	name, argsJSON, err := codec.IntoToolCall(in)
	require.NoError(t, err)
	assert.Equal(t, "send_message", name)

	var out SendMessageOutput
	require.NoError(t, codec.TryFromToolCall(&SendMessageOutput{}, name, argsJSON, &out))
	assert.Equal(t, in.Fragments, out.Fragments)
	assert.Equal(t, in.Summary, out.Summary)
}
