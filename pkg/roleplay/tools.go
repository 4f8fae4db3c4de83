package roleplay

import (
	"github.com/roleplay/memoryruntime/pkg/codec"
)

// FragmentKind tags one chunk of a character's reply (spec §4.6). It is the
// system's one real instance of the text-tagged enum's payload form (spec
// §4.1): every kind carries the fragment's text as its payload, so
// MessageFragment itself implements codec.PayloadTextEnum rather than
// degrading Kind to a bare string enum next to a separate Text field.
type FragmentKind string

const (
	FragmentAction        FragmentKind = "Action"
	FragmentScenario      FragmentKind = "Scenario"
	FragmentInnerThoughts FragmentKind = "InnerThoughts"
	FragmentChat          FragmentKind = "Chat"
)

// fragmentVariants declares MessageFragment's closed variant set. Chat is
// the catch-all: a reply fragment with no recognized kind prefix parses as
// plain dialogue rather than failing.
var fragmentVariants = []codec.PayloadVariant{
	{Tag: string(FragmentAction), IncludePrefix: true},
	{Tag: string(FragmentScenario), IncludePrefix: true},
	{Tag: string(FragmentInnerThoughts), IncludePrefix: true},
	{Tag: string(FragmentChat), IncludePrefix: true, CatchAll: true},
}

// MessageFragment is one typed chunk of the character's reply. Its JSON
// shape comes entirely from MarshalJSON/UnmarshalJSON below, so its struct
// tags (unlike every other tool-call record's) carry no schema meaning.
type MessageFragment struct {
	Kind FragmentKind // Action (stage direction), Scenario (scene-setting), InnerThoughts (private thoughts), or Chat (spoken dialogue)
	Text string
}

// NewMessageFragment reconstructs a fragment from the (tag, content) pair
// codec.FromText returns.
func NewMessageFragment(tag, content string) MessageFragment {
	return MessageFragment{Kind: FragmentKind(tag), Text: content}
}

func (f MessageFragment) Variants() []codec.PayloadVariant { return fragmentVariants }
func (f MessageFragment) Tag() string                      { return string(f.Kind) }
func (f MessageFragment) Content() string                  { return f.Text }

// MarshalJSON renders the fragment as to_text does: the structured
// {type,content} object, since every declared fragment kind carries a
// payload (spec §4.1).
func (f MessageFragment) MarshalJSON() ([]byte, error) {
	return codec.MarshalPayloadTextEnum(f)
}

// UnmarshalJSON accepts the structured {type,content} object produced by
// MarshalJSON, or a bare string (parsed as a Chat fragment via the
// catch-all variant), via codec.FromText.
func (f *MessageFragment) UnmarshalJSON(data []byte) error {
	tag, content, err := codec.UnmarshalPayloadTextEnumJSON(fragmentVariants, data)
	if err != nil {
		return err
	}
	f.Kind = FragmentKind(tag)
	f.Text = content
	return nil
}

// SendMessageOutput is the Roleplay agent's tool-call payload (spec §4.6):
// an ordered sequence of typed fragments, optional suggested replies, and a
// required narrative summary used to seed the memory pipeline's audit trail.
type SendMessageOutput struct {
	Fragments []MessageFragment `json:"fragments" desc:"Ordered sequence of typed reply fragments forming the character's in-character response."`
	Options   []string          `json:"options" required:"false" desc:"Optional suggested replies the user might send next."`
	Summary   string            `json:"summary" desc:"Required narrative summary of this turn, for the memory pipeline and session history."`
}

func (*SendMessageOutput) ToolName() string { return "send_message" }
func (*SendMessageOutput) ToolDescription() string {
	return "Send the character's in-character reply to the user as a sequence of typed fragments, plus a narrative summary of the turn."
}

// Text joins every fragment's text (whatever its type), space-separated,
// into the plain-text content stored on Message.Content and fed to the
// memory pipeline.
func (o *SendMessageOutput) Text() string {
	out := ""
	for _, f := range o.Fragments {
		if out != "" {
			out += " "
		}
		out += f.Text
	}
	return out
}
