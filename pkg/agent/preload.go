package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roleplay/memoryruntime/pkg/codec"
	"github.com/roleplay/memoryruntime/pkg/models"
	"github.com/roleplay/memoryruntime/pkg/store"
)

// Preload implements spec §4.4 behavior 1: ensure a SystemConfig row exists
// for d's SYSTEM_CONFIG_NAME, seeding it from d's defaults if absent, and
// correcting drift in place (prompt, tool schema, model, temperature,
// max-tokens, base URL) if present. Returns the active config.
func Preload(ctx context.Context, st *store.Store, d Descriptor) (*models.SystemConfig, error) {
	if d.SystemConfigName == "" {
		return nil, fmt.Errorf("agent: %q has no SystemConfigName, nothing to preload", d.Name)
	}

	schemaJSON, err := json.Marshal(codec.ToFunctionObject(d.Tool))
	if err != nil {
		return nil, fmt.Errorf("agent: rendering tool schema for %q: %w", d.Name, err)
	}

	var cfg models.SystemConfig
	err = st.FindOneByCriteria(ctx, &cfg, "system_configs",
		store.NewCriteria().Where("name", store.OpEQ, d.SystemConfigName))
	// Microsecond precision matches what the timestamp column stores, so the
	// returned config equals the row as later read back.
	now := time.Now().Truncate(time.Microsecond)

	if errors.Is(err, store.ErrNotFound) {
		cfg = models.SystemConfig{
			ID:            uuid.New().String(),
			Name:          d.SystemConfigName,
			SystemPrompt:  d.DefaultSystemPrompt,
			PromptVersion: 1,
			BaseURL:       d.BaseURL,
			Model:         d.Model,
			Temperature:   d.Temperature,
			MaxTokens:     d.MaxTokens,
			ToolSchema:    string(schemaJSON),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := st.Create(ctx, &cfg); err != nil {
			return nil, fmt.Errorf("agent: creating system config for %q: %w", d.Name, err)
		}
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("agent: loading system config for %q: %w", d.Name, err)
	}

	drifted := false
	if cfg.SystemPrompt != d.DefaultSystemPrompt && d.DefaultSystemPrompt != "" {
		cfg.SystemPrompt = d.DefaultSystemPrompt
		cfg.PromptVersion++
		drifted = true
	}
	if cfg.ToolSchema != string(schemaJSON) {
		cfg.ToolSchema = string(schemaJSON)
		drifted = true
	}
	if d.Model != "" && cfg.Model != d.Model {
		cfg.Model = d.Model
		drifted = true
	}
	if d.BaseURL != "" && cfg.BaseURL != d.BaseURL {
		cfg.BaseURL = d.BaseURL
		drifted = true
	}
	if cfg.Temperature != d.Temperature {
		cfg.Temperature = d.Temperature
		drifted = true
	}
	if d.MaxTokens != 0 && cfg.MaxTokens != d.MaxTokens {
		cfg.MaxTokens = d.MaxTokens
		drifted = true
	}
	if !drifted {
		return &cfg, nil
	}

	cfg.UpdatedAt = now
	if err := st.Update(ctx, &cfg, store.NewCriteria().Where("id", store.OpEQ, cfg.ID)); err != nil {
		return nil, fmt.Errorf("agent: updating drifted system config for %q: %w", d.Name, err)
	}
	return &cfg, nil
}
