package memory

import (
	"fmt"
	"strings"

	"github.com/roleplay/memoryruntime/pkg/agent"
	"github.com/roleplay/memoryruntime/pkg/llmgateway"
)

func systemUser(system, user string) []llmgateway.Message {
	return []llmgateway.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

// extractFactsInput is the Extract-Facts agent's input (spec §4.5.1).
type extractFactsInput struct {
	NewMessage string
}

const extractFactsSystemPrompt = "You extract atomic, self-contained factual statements about the user from a dialogue. " +
	"One fact per string. Never combine multiple facts into one string. If nothing factual " +
	"was said, return an empty list. Write facts in the same language as the dialogue."

var extractFactsAgent = agent.Descriptor{
	Name:                 "extract_facts",
	SystemConfigName:     "memory.extract_facts",
	DefaultSystemPrompt:  extractFactsSystemPrompt,
	Tool:                 &ExtractFactsOutput{},
	BuildMessages: func(in any) ([]llmgateway.Message, error) {
		i := in.(extractFactsInput)
		return systemUser(extractFactsSystemPrompt, i.NewMessage), nil
	},
	NewOutput:   func() any { return &ExtractFactsOutput{} },
	Temperature: 0,
	MaxTokens:   1024,
}

// extractEntitiesInput is the Extract-Entities agent's input (spec §4.5.2).
type extractEntitiesInput struct {
	NewMessage string
}

const extractEntitiesSystemPrompt = "You extract named entities (people, places, topics) mentioned in a dialogue. " +
	"Use canonical surface forms present or clearly referenced in the text, with a short type tag."

var extractEntitiesAgent = agent.Descriptor{
	Name:                "extract_entities",
	SystemConfigName:    "memory.extract_entities",
	DefaultSystemPrompt: extractEntitiesSystemPrompt,
	Tool:                &ExtractEntitiesOutput{},
	BuildMessages: func(in any) ([]llmgateway.Message, error) {
		i := in.(extractEntitiesInput)
		return systemUser(extractEntitiesSystemPrompt, i.NewMessage), nil
	},
	NewOutput:   func() any { return &ExtractEntitiesOutput{} },
	Temperature: 0,
	MaxTokens:   1024,
}

// extractRelationshipsInput is the Extract-Relationships agent's input
// (spec §4.5.3).
type extractRelationshipsInput struct {
	NewMessage string
	Entities   []EntityOut
}

const extractRelationshipsSystemPrompt = "You extract relationships between entities introduced or clarified by a dialogue. " +
	"source and destination must be chosen from the supplied entity list. relationship is a " +
	"short verb/label in upper snake case."

var extractRelationshipsAgent = agent.Descriptor{
	Name:                "extract_relationships",
	SystemConfigName:    "memory.extract_relationships",
	DefaultSystemPrompt: extractRelationshipsSystemPrompt,
	Tool:                &ExtractRelationshipsOutput{},
	BuildMessages: func(in any) ([]llmgateway.Message, error) {
		i := in.(extractRelationshipsInput)
		names := make([]string, len(i.Entities))
		for idx, e := range i.Entities {
			names[idx] = fmt.Sprintf("%s (%s)", e.Name, e.Tag)
		}
		return systemUser(
			extractRelationshipsSystemPrompt+"\n\nKnown entities: "+strings.Join(names, ", "),
			i.NewMessage,
		), nil
	},
	NewOutput:   func() any { return &ExtractRelationshipsOutput{} },
	Temperature: 0,
	MaxTokens:   1024,
}

// deleteRelationshipsInput is the Delete-Relationships agent's input (spec
// §4.5.4).
type deleteRelationshipsInput struct {
	NewMessage   string
	Entities     []EntityOut
	ExistingText string // flattened "source -[REL]-> destination" lines
}

const deleteRelationshipsSystemPrompt = "You are given a dialogue and the relationships already stored about the entities it mentions. " +
	"Select only the relationships that the new dialogue contradicts or supersedes — never delete " +
	"a relation that could simply be one value among many."

var deleteRelationshipsAgent = agent.Descriptor{
	Name:                "delete_relationships",
	SystemConfigName:    "memory.delete_relationships",
	DefaultSystemPrompt: deleteRelationshipsSystemPrompt,
	Tool:                &DeleteRelationshipsOutput{},
	BuildMessages: func(in any) ([]llmgateway.Message, error) {
		i := in.(deleteRelationshipsInput)
		return systemUser(
			deleteRelationshipsSystemPrompt+"\n\nExisting relationships:\n"+i.ExistingText,
			i.NewMessage,
		), nil
	},
	NewOutput:   func() any { return &DeleteRelationshipsOutput{} },
	Temperature: 0,
	MaxTokens:   1024,
}

// updateMemoryInput is the Update-Memory agent's input (spec §4.5.5).
type updateMemoryInput struct {
	Facts        []string
	ExistingText string // flattened "id: content" lines, nearest per fact
}

const updateMemorySystemPrompt = "You reconcile newly extracted facts against the nearest existing memories. For each fact emit " +
	"exactly one operation: ADD (new information, use the all-zero id) if no close memory exists; " +
	"UPDATE (carry the existing id) if a close memory should be revised; DELETE (carry the existing " +
	"id) if a close memory is now false; or NONE if the fact is already fully captured."

var updateMemoryAgent = agent.Descriptor{
	Name:                "update_memory",
	SystemConfigName:    "memory.update_memory",
	DefaultSystemPrompt: updateMemorySystemPrompt,
	Tool:                &UpdateMemoryOutput{},
	BuildMessages: func(in any) ([]llmgateway.Message, error) {
		i := in.(updateMemoryInput)
		return systemUser(
			updateMemorySystemPrompt+"\n\nExisting nearby memories:\n"+i.ExistingText,
			strings.Join(i.Facts, "\n"),
		), nil
	},
	NewOutput:   func() any { return &UpdateMemoryOutput{} },
	Temperature: 0,
	MaxTokens:   2048,
}

// Descriptors returns the five HME agent Descriptors, for startup
// preloading (spec §4.4 behavior 1) — see cmd/roleplayd/main.go.
func Descriptors() []agent.Descriptor {
	return []agent.Descriptor{
		extractFactsAgent,
		extractEntitiesAgent,
		extractRelationshipsAgent,
		deleteRelationshipsAgent,
		updateMemoryAgent,
	}
}
