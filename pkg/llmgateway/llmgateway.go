// Package llmgateway implements the LLM gateway (C5, spec §4.3/§6): a
// unary, tool-choice-constrained chat-completions client. Grounded on the
// *shape* of the teacher's pkg/agent/llm_client.go (provider config,
// retry/backoff, response-to-domain-type mapping) with the transport
// swapped from the teacher's gRPC sidecar to github.com/sashabaranov/go-openai's
// HTTP client, since spec's external interface is literally an OpenAI-style
// chat-completions POST.
package llmgateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/roleplay/memoryruntime/pkg/apperrors"
	"github.com/roleplay/memoryruntime/pkg/codec"
	"github.com/roleplay/memoryruntime/pkg/config"
	"github.com/roleplay/memoryruntime/pkg/redact"
)

// Message is one chat-completion turn.
type Message struct {
	Role    string // "system", "user", "assistant", "tool"
	Content string
}

// Request is one C5 call: a transcript, the single tool the caller expects
// back, and generation knobs.
type Request struct {
	Messages    []Message
	Tool        codec.FunctionObject
	Temperature float32
	MaxTokens   int
}

// Response is the parsed result of a successful call.
type Response struct {
	ToolCallName     string
	ArgumentsRaw     string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Gateway wraps an openai.Client configured per an LLMProviderConfig.
type Gateway struct {
	client   *openai.Client
	model    string
	timeout  time.Duration
	maxRetry int
	redactor *redact.Service
}

// New builds a Gateway from provider config and an API key the caller has
// already resolved (cmd/roleplayd/main.go reads it from the environment
// variable the config names). The redactor scrubs PII/credential
// patterns out of request/response content before it ever reaches a log
// line (spec SPEC_FULL.md "Content redaction" supplement) — every piece of
// dialogue text this gateway logs goes through it first.
func New(cfg *config.LLMProviderConfig, apiKey string) *Gateway {
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Gateway{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		timeout:  time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		maxRetry: 3,
		redactor: redact.NewService(),
	}
}

// backoff is the retry schedule for transient transport errors (spec §5).
var backoff = []time.Duration{100 * time.Millisecond, 400 * time.Millisecond, 1600 * time.Millisecond}

// Call issues a single tool-choice=auto chat completion, retrying transient
// transport errors up to 3 times with exponential backoff, and mapping the
// response to the spec §4.3/§7 error taxonomy: no choices and refusals are
// fatal-for-turn, not retried.
func (g *Gateway) Call(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	ccReq := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        req.Tool.Name,
				Description: req.Tool.Description,
				Parameters:  req.Tool.Parameters,
				Strict:      req.Tool.Strict,
			},
		}},
		ToolChoice: "auto",
	}

	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 0; attempt <= g.maxRetry; attempt++ {
		resp, err = g.client.CreateChatCompletion(ctx, ccReq)
		if err == nil {
			break
		}
		if !isTransient(err) || attempt == g.maxRetry {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTransport, g.redactErr(err))
		}
		slog.Warn("llmgateway: transient error, retrying", "attempt", attempt, "error", g.redactErr(err))
		select {
		case <-time.After(backoff[attempt]):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTimeout, ctx.Err())
		}
	}

	if len(resp.Choices) == 0 {
		return nil, apperrors.ErrNoChoices
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		slog.Warn("llmgateway: provider refused the request", "reason", g.redactor.Redact(choice.Message.Refusal))
		return nil, fmt.Errorf("%w: %s", apperrors.ErrRefusal, choice.Message.Refusal)
	}
	if len(choice.Message.ToolCalls) == 0 {
		// The provider returned a choice but not the tool call we constrained
		// it to produce — free text instead of a structured call (spec §8
		// scenario 6, "tool-shape refusal"). This is an output-shape failure
		// for C1's parser to report, not an empty-response failure.
		slog.Warn("llmgateway: model replied without a tool call", "content", g.redactor.Redact(choice.Message.Content))
		return nil, apperrors.ErrOutputShape
	}
	tc := choice.Message.ToolCalls[0]
	slog.Debug("llmgateway: parsed tool call", "name", tc.Function.Name, "arguments", g.redactor.Redact(tc.Function.Arguments))

	if resp.Usage.PromptTokens == 0 && resp.Usage.CompletionTokens == 0 && resp.Usage.TotalTokens == 0 {
		slog.Warn("llmgateway: provider returned no usage, continuing with zeroed usage")
	}

	return &Response{
		ToolCallName:     tc.Function.Name,
		ArgumentsRaw:     tc.Function.Arguments,
		FinishReason:     string(choice.FinishReason),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// redactErr scrubs an upstream error's text before it is wrapped or logged:
// a provider's transport error can echo back request content (the
// go-openai APIError's Message field), which must not reach a log line
// unredacted (SPEC_FULL.md "Content redaction" supplement).
func (g *Gateway) redactErr(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(g.redactor.Redact(err.Error()))
}

func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 0 || apiErr.HTTPStatusCode >= 500 || apiErr.HTTPStatusCode == 429
	}
	return true // network-level errors (no APIError) are treated as transient
}
