package codec

import (
	"encoding/json"
	"fmt"
)

// TextEnum is implemented by string types whose legal values form a closed
// set with no payload (spec §4.1 "Unit" variant). When the tool-call schema
// generator (toolcall.go) encounters a field of a TextEnum type it degrades
// the field to a plain JSON string schema carrying an `enum` list of
// Options(), rather than trying to model it as a nested object — the
// "degrade to string enum" rule of spec §4.1.
type TextEnum interface {
	Options() []string
}

// PayloadVariant describes one declared variant of a text-tagged enum whose
// members may carry a string payload (spec §4.1's String-payload, VecString,
// and Uuid-payload forms). A type implementing PayloadTextEnum owns a fixed
// []PayloadVariant describing every value it can take.
type PayloadVariant struct {
	// Tag is the canonical, English wire/schema name for this variant
	// (e.g. "Action"). Always accepted as an exact match on parse.
	Tag string
	// LanguagePrefix is an additional string accepted on parse and, when
	// set, used in place of Tag as the "type" written by ToText. Empty
	// means Tag itself is the only prefix.
	LanguagePrefix string
	// IncludePrefix controls whether this variant serializes as the
	// structured {type,content} object (true) or as its bare content
	// string with no wrapper (false).
	IncludePrefix bool
	// CatchAll marks the variant that an unrecognized bare input string
	// parses into, with the raw string as its content. At most one
	// variant in a set should set this.
	CatchAll bool
}

func (v PayloadVariant) wireTag() string {
	if v.LanguagePrefix != "" {
		return v.LanguagePrefix
	}
	return v.Tag
}

// PayloadTextEnum is implemented by a tagged-union value whose variant set
// is described by Variants, currently holding the variant named by Tag with
// payload Content. ToText/FromText below give this the §8 "text-enum
// round-trip" property: from_text(to_text(v)) == v, and any input string
// accepted by a declared prefix parses to the matching structured variant.
type PayloadTextEnum interface {
	Variants() []PayloadVariant
	Tag() string
	Content() string
}

// FindVariant looks up the variant named tag (matching either its Tag or
// its LanguagePrefix) within variants.
func FindVariant(variants []PayloadVariant, tag string) (PayloadVariant, bool) {
	for _, v := range variants {
		if v.Tag == tag || (v.LanguagePrefix != "" && v.LanguagePrefix == tag) {
			return v, true
		}
	}
	return PayloadVariant{}, false
}

// payloadEnvelope is the wire shape of a structured payload variant.
type payloadEnvelope struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ToText renders v per its current variant's declared shape (spec §4.1):
// the bare Content string for a variant with IncludePrefix false, or the
// `{type,content}` object (type set to the variant's LanguagePrefix if it
// declared one, else its Tag) otherwise.
func ToText(v PayloadTextEnum) (string, error) {
	variant, ok := FindVariant(v.Variants(), v.Tag())
	if !ok {
		return "", fmt.Errorf("codec: %q is not a declared text-enum variant", v.Tag())
	}
	if !variant.IncludePrefix {
		return v.Content(), nil
	}
	b, err := json.Marshal(payloadEnvelope{Type: variant.wireTag(), Content: v.Content()})
	if err != nil {
		return "", fmt.Errorf("codec: rendering text-enum variant %q: %w", v.Tag(), err)
	}
	return string(b), nil
}

// FromText is to_text's inverse (spec §4.1/§8): a `{type,content}` object
// decodes directly against its declared prefix or tag; any other string is
// matched against each non-catch-all variant's Tag/LanguagePrefix, falling
// through to the catch-all variant (if one is declared) with the raw string
// as its content. Returns the matched variant's Tag and the parsed content.
func FromText(variants []PayloadVariant, text string) (tag, content string, err error) {
	var env payloadEnvelope
	if json.Unmarshal([]byte(text), &env) == nil && env.Type != "" {
		v, ok := FindVariant(variants, env.Type)
		if !ok {
			return "", "", fmt.Errorf("codec: unknown text-enum type %q", env.Type)
		}
		return v.Tag, env.Content, nil
	}

	for _, v := range variants {
		if !v.CatchAll && (v.Tag == text || (v.LanguagePrefix != "" && v.LanguagePrefix == text)) {
			return v.Tag, "", nil
		}
	}
	for _, v := range variants {
		if v.CatchAll {
			return v.Tag, text, nil
		}
	}
	return "", "", fmt.Errorf("codec: %q matches no declared text-enum variant", text)
}

// MarshalPayloadTextEnum renders v as JSON bytes for embedding in a larger
// document: the structured envelope when v's variant carries one, or a
// quoted JSON string otherwise. Types embedding a PayloadTextEnum typically
// call this from their own MarshalJSON.
func MarshalPayloadTextEnum(v PayloadTextEnum) ([]byte, error) {
	variant, ok := FindVariant(v.Variants(), v.Tag())
	if !ok {
		return nil, fmt.Errorf("codec: %q is not a declared text-enum variant", v.Tag())
	}
	if !variant.IncludePrefix {
		return json.Marshal(v.Content())
	}
	return json.Marshal(payloadEnvelope{Type: variant.wireTag(), Content: v.Content()})
}

// UnmarshalPayloadTextEnumJSON is MarshalPayloadTextEnum's inverse: data may
// be a JSON object (the structured envelope) or a quoted JSON string (a
// bare-content variant); either decodes to the matching variant's Tag and
// Content via FromText.
func UnmarshalPayloadTextEnumJSON(variants []PayloadVariant, data []byte) (tag, content string, err error) {
	var bare string
	if json.Unmarshal(data, &bare) == nil {
		return FromText(variants, bare)
	}
	return FromText(variants, string(data))
}
