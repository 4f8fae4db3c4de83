// Package embedgateway implements the embedding gateway (C6, spec §4.2/§6):
// a batch text-to-vector client satisfying pkg/vectorstore.Embedder and
// pkg/graphstore's entity-embedding needs. Grounded on pkg/llmgateway's
// retry/timeout shape (same provider family, same failure policy) wrapping
// github.com/sashabaranov/go-openai's embeddings endpoint instead of its
// chat-completions endpoint.
package embedgateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/roleplay/memoryruntime/pkg/apperrors"
	"github.com/roleplay/memoryruntime/pkg/config"
)

// Gateway wraps an openai.Client configured per an EmbeddingProviderConfig.
type Gateway struct {
	client   *openai.Client
	model    openai.EmbeddingModel
	dims     int
	timeout  time.Duration
	maxRetry int
}

// New builds a Gateway from provider config.
func New(cfg *config.EmbeddingProviderConfig, apiKey string) *Gateway {
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Gateway{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    openai.EmbeddingModel(cfg.Model),
		dims:     cfg.Dims,
		timeout:  time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		maxRetry: 3,
	}
}

var backoff = []time.Duration{100 * time.Millisecond, 400 * time.Millisecond, 1600 * time.Millisecond}

// Embed produces one embedding per input text in a single round trip,
// satisfying pkg/vectorstore.Embedder and pkg/graphstore's entity-embedding
// callers. Retries transient transport errors per the same policy as
// pkg/llmgateway (spec §5).
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: g.model,
	}

	var resp openai.EmbeddingResponse
	var err error
	for attempt := 0; attempt <= g.maxRetry; attempt++ {
		resp, err = g.client.CreateEmbeddings(ctx, req)
		if err == nil {
			break
		}
		if !isTransient(err) || attempt == g.maxRetry {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTransport, err)
		}
		slog.Warn("embedgateway: transient error, retrying", "attempt", attempt, "error", err)
		select {
		case <-time.After(backoff[attempt]):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTimeout, ctx.Err())
		}
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", apperrors.ErrOutputShape, len(texts), len(resp.Data))
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Dims reports the configured embedding dimensionality.
func (g *Gateway) Dims() int { return g.dims }

func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 0 || apiErr.HTTPStatusCode >= 500 || apiErr.HTTPStatusCode == 429
	}
	return true
}
