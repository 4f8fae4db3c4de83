// Package redact implements the PII/credential redaction supplement (spec
// SPEC_FULL.md "Supplemented features"): a compiled-regex-group engine that
// scrubs sensitive substrings from content before it reaches an audit log.
// Grounded on the teacher's (now-deleted) pkg/masking package: same
// CompiledPattern/fail-closed shape, with the Kubernetes-Secret-specific
// code masker and MCP-server-scoped custom patterns dropped in favor of a
// fixed builtin set relevant to roleplay dialogue and LLM audit logging
// (email, phone, credit card, API-key-shaped tokens) — this system has no
// MCP servers to scope custom patterns by.
package redact

import (
	"log/slog"
	"regexp"
)

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

var builtinPatterns = []struct {
	name        string
	pattern     string
	replacement string
}{
	{"email", `[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`, "[REDACTED_EMAIL]"},
	{"phone", `(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`, "[REDACTED_PHONE]"},
	{"credit_card", `\b(?:\d[ -]*?){13,16}\b`, "[REDACTED_CARD]"},
	{"api_key", `\b(sk|pk|api)-[A-Za-z0-9_\-]{16,}\b`, "[REDACTED_KEY]"},
}

// Service applies the builtin redaction patterns to arbitrary text. Created
// once at application startup; patterns are compiled eagerly. Safe for
// concurrent use — it holds no mutable state after construction.
type Service struct {
	patterns []*CompiledPattern
}

// NewService compiles the builtin pattern set. Invalid patterns (none in
// the builtin set, but kept defensive for future additions) are logged and
// skipped rather than panicking.
func NewService() *Service {
	s := &Service{}
	for _, p := range builtinPatterns {
		compiled, err := regexp.Compile(p.pattern)
		if err != nil {
			slog.Error("redact: failed to compile builtin pattern, skipping", "pattern", p.name, "error", err)
			continue
		}
		s.patterns = append(s.patterns, &CompiledPattern{Name: p.name, Regex: compiled, Replacement: p.replacement})
	}
	return s
}

// Redact scrubs every builtin pattern match from content. Fail-closed: if a
// future pattern set introduces a panicking regex, callers still get
// *something* usable because compilation failures are filtered out at
// NewService time, never at Redact time.
func (s *Service) Redact(content string) string {
	if content == "" {
		return content
	}
	out := content
	for _, p := range s.patterns {
		out = p.Regex.ReplaceAllString(out, p.Replacement)
	}
	return out
}
