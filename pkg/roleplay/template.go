package roleplay

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// templateTokenPattern matches {{keyword}} placeholders in a system prompt.
var templateTokenPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_]+)\s*\}\}`)

// templateKeywords is the closed set of substitutions a Character's
// system_prompt may reference (spec §9 design note: "model as a Template
// value with an enumerated keyword set; unknown keywords are a fatal
// template error, not silently preserved"). Extending this set is how a
// new substitution gets added — anything else in a stored prompt is an
// authoring bug, not data to pass through.
var templateKeywords = map[string]bool{
	"char":             true,
	"user":             true,
	"request_time":     true,
	"char_personality": true,
	"char_scenario":    true,
}

// ErrUnknownTemplateKeyword reports a {{keyword}} the template vocabulary
// doesn't recognize.
type ErrUnknownTemplateKeyword struct {
	Keyword string
}

func (e *ErrUnknownTemplateKeyword) Error() string {
	return fmt.Sprintf("roleplay: unknown template keyword %q", e.Keyword)
}

// TemplateVars holds the values substituted into a system prompt.
type TemplateVars struct {
	Char            string
	User            string
	RequestTime     time.Time
	CharPersonality string
	CharScenario    string
}

func (v TemplateVars) value(keyword string) string {
	switch keyword {
	case "char":
		return v.Char
	case "user":
		return v.User
	case "request_time":
		return v.RequestTime.Format(time.RFC3339)
	case "char_personality":
		return v.CharPersonality
	case "char_scenario":
		return v.CharScenario
	default:
		return ""
	}
}

// ExpandTemplate substitutes every {{keyword}} token in prompt with its
// TemplateVars value. Any token outside templateKeywords is a fatal
// template error: spec §9 explicitly rejects silently preserving unknown
// keywords, since a typo'd placeholder in a character's stored system
// prompt would otherwise leak a literal "{{typo}}" into every turn.
func ExpandTemplate(prompt string, vars TemplateVars) (string, error) {
	var unknown string
	out := templateTokenPattern.ReplaceAllStringFunc(prompt, func(tok string) string {
		keyword := strings.TrimSpace(tok[2 : len(tok)-2])
		if !templateKeywords[keyword] {
			if unknown == "" {
				unknown = keyword
			}
			return tok
		}
		return vars.value(keyword)
	})
	if unknown != "" {
		return "", &ErrUnknownTemplateKeyword{Keyword: unknown}
	}
	return out, nil
}
