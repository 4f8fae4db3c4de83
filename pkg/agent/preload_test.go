package agent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roleplay/memoryruntime/pkg/agent"
	"github.com/roleplay/memoryruntime/pkg/llmgateway"
	"github.com/roleplay/memoryruntime/pkg/memory"
	"github.com/roleplay/memoryruntime/pkg/store"
	testdb "github.com/roleplay/memoryruntime/test/database"
)

func descriptor(name, prompt string, maxTokens int) agent.Descriptor {
	return agent.Descriptor{
		Name:                name,
		SystemConfigName:    name,
		DefaultSystemPrompt: prompt,
		Tool:                &memory.ExtractFactsOutput{},
		BuildMessages: func(in any) ([]llmgateway.Message, error) {
			return []llmgateway.Message{{Role: "system", Content: prompt}, {Role: "user", Content: "hi"}}, nil
		},
		NewOutput:   func() any { return &memory.ExtractFactsOutput{} },
		Temperature: 0,
		MaxTokens:   maxTokens,
	}
}

func TestPreloadCreatesRowWhenAbsent(t *testing.T) {
	db := testdb.NewTestClient(t)
	s := store.New(db)
	ctx := context.Background()

	d := descriptor("test.preload.create", "be helpful", 512)
	cfg, err := agent.Preload(ctx, s, d)
	require.NoError(t, err)
	assert.Equal(t, d.SystemConfigName, cfg.Name)
	assert.Equal(t, "be helpful", cfg.SystemPrompt)
	assert.Equal(t, 1, cfg.PromptVersion)
	assert.Equal(t, 512, cfg.MaxTokens)
}

func TestPreloadIsIdempotentWhenNothingDrifted(t *testing.T) {
	db := testdb.NewTestClient(t)
	s := store.New(db)
	ctx := context.Background()

	d := descriptor("test.preload.idempotent", "be helpful", 512)
	first, err := agent.Preload(ctx, s, d)
	require.NoError(t, err)

	second, err := agent.Preload(ctx, s, d)
	require.NoError(t, err)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt, "no drift should leave the row untouched")
	assert.Equal(t, 1, second.PromptVersion)
}

func TestPreloadCorrectsPromptDriftInPlace(t *testing.T) {
	db := testdb.NewTestClient(t)
	s := store.New(db)
	ctx := context.Background()

	d := descriptor("test.preload.drift", "original prompt", 512)
	_, err := agent.Preload(ctx, s, d)
	require.NoError(t, err)

	d.DefaultSystemPrompt = "revised prompt"
	updated, err := agent.Preload(ctx, s, d)
	require.NoError(t, err)
	assert.Equal(t, "revised prompt", updated.SystemPrompt)
	assert.Equal(t, 2, updated.PromptVersion, "prompt drift should bump the version")
}
