// Package agent provides the single-call agent runtime (C7, spec §4.3).
// Grounded on the teacher's pkg/agent.Agent/BaseAgent delegation shape
// (Execute wraps a strategy, classifies context errors, defends against a
// nil result) but with the controller/iteration-strategy machinery
// collapsed to one shape: every agent here issues exactly one
// tool-choice=auto call and maps its result, since nothing in this
// system's spec iterates or streams.
package agent

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/roleplay/memoryruntime/pkg/apperrors"
	"github.com/roleplay/memoryruntime/pkg/codec"
	"github.com/roleplay/memoryruntime/pkg/llmgateway"
)

// Descriptor is the declarative shape of one agent: the tool it calls the
// model with, and the hooks that adapt it to a specific use (system
// prompt + transcript assembly, and output handling).
type Descriptor struct {
	// Name identifies the agent for logging and error messages.
	Name string

	// SystemConfigName is the unique key Preload uses to find or create
	// this agent's persisted SystemConfig row (spec §4.4 behavior 1).
	// Preload returns an error for a Descriptor whose SystemConfigName is
	// empty.
	SystemConfigName string

	// DefaultSystemPrompt seeds a new SystemConfig row the first time this
	// agent runs; BuildMessages callers that want the persisted, possibly
	// drifted prompt should read it off the *models.SystemConfig Preload
	// returns rather than this field directly.
	DefaultSystemPrompt string

	// Tool is a zero-value instance of the struct TryFromToolCall/
	// IntoToolCall target; it must implement codec.ToolDescriptor.
	Tool codec.ToolDescriptor

	// BuildMessages assembles the system+transcript messages for this
	// call from whatever input the caller packed into in.
	BuildMessages func(in any) ([]llmgateway.Message, error)

	// NewOutput allocates a zero value of the output struct TryFromToolCall
	// will unmarshal into (must be a pointer).
	NewOutput func() any

	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

// Result is the outcome of one agent run.
type Result struct {
	Output           any
	ToolCallName     string
	ArgumentsRaw     string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Runner executes Descriptors against an llmgateway.Gateway.
type Runner struct {
	gateway *llmgateway.Gateway
}

// NewRunner wraps a configured gateway.
func NewRunner(gateway *llmgateway.Gateway) *Runner {
	return &Runner{gateway: gateway}
}

// Run executes the validate → pack → call → parse lifecycle for one
// Descriptor (spec §4.3): build the transcript, issue the single
// tool-choice=auto call, and parse the tool-call arguments into the
// Descriptor's output type. Persistence is the caller's responsibility —
// Runner is stateless and side-effect free beyond the LLM call itself.
func (r *Runner) Run(ctx context.Context, d Descriptor, in any) (*Result, error) {
	if d.BuildMessages == nil || d.NewOutput == nil || d.Tool == nil {
		return nil, fmt.Errorf("%w: agent %q missing required hooks", apperrors.ErrInvalidPromptShape, d.Name)
	}

	messages, err := d.BuildMessages(in)
	if err != nil {
		return nil, fmt.Errorf("%w: agent %q: %v", apperrors.ErrInvalidPromptShape, d.Name, err)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: agent %q produced no messages", apperrors.ErrInvalidPromptShape, d.Name)
	}

	resp, err := r.gateway.Call(ctx, llmgateway.Request{
		Messages:    messages,
		Tool:        codec.ToFunctionObject(d.Tool),
		Temperature: d.Temperature,
		MaxTokens:   d.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: agent %q: %v", apperrors.ErrTimeout, d.Name, err)
		}
		return nil, fmt.Errorf("agent %q: %w", d.Name, err)
	}

	out := d.NewOutput()
	if reflect.ValueOf(out).Kind() != reflect.Ptr {
		return nil, fmt.Errorf("%w: agent %q: NewOutput must return a pointer", apperrors.ErrInvalidPromptShape, d.Name)
	}
	if err := codec.TryFromToolCall(d.Tool, resp.ToolCallName, resp.ArgumentsRaw, out); err != nil {
		return nil, fmt.Errorf("%w: agent %q: %v", apperrors.ErrOutputShape, d.Name, err)
	}

	return &Result{
		Output:           out,
		ToolCallName:     resp.ToolCallName,
		ArgumentsRaw:     resp.ArgumentsRaw,
		FinishReason:     resp.FinishReason,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		TotalTokens:      resp.TotalTokens,
	}, nil
}
