// Package roleplay implements the Roleplay Orchestrator (C9, spec §4.6/§4.7):
// per-turn prompt assembly, the single Roleplay agent call, persistence, and
// accounting. Grounded on the teacher's (now-deleted) pkg/services chat flow
// and pkg/queue/executor.go's stage-sequencing idiom, collapsed to the
// single unary turn this spec describes.
package roleplay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roleplay/memoryruntime/pkg/agent"
	"github.com/roleplay/memoryruntime/pkg/apperrors"
	"github.com/roleplay/memoryruntime/pkg/llmgateway"
	"github.com/roleplay/memoryruntime/pkg/models"
	"github.com/roleplay/memoryruntime/pkg/store"
	"github.com/roleplay/memoryruntime/pkg/vectorstore"
)

// TurnCost is the flat point cost of one Roleplay agent call (spec §4.7).
// A fixed constant rather than a usage-derived cost keeps accounting
// decidable before the LLM call runs, as the pre-check requires.
const TurnCost = 10

// RecentMessageCount is N in spec §4.6 step 3.
const RecentMessageCount = 10

// VectorSnippetCount is top-K in spec §4.6 step 5.
const VectorSnippetCount = 5

// Embedder is satisfied by pkg/embedgateway.Gateway.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// MemoryJob is the unit of work enqueued to C10 at the end of a turn.
type MemoryJob struct {
	UserMessageID string
	UserMsg       string
	AssistantMsg  string
	Filter        vectorstore.Filter
}

// Enqueuer accepts memory jobs for background processing; satisfied by
// pkg/queue.Worker. Enqueue returns false if the job was dropped under
// backpressure (spec §5) — dropping is not a turn failure.
type Enqueuer interface {
	Enqueue(job MemoryJob) bool
}

// Request is one incoming user turn.
type Request struct {
	SessionID   string
	UserID      string
	Content     string
	ContentType string
}

// Response is the reply returned to the caller.
type Response struct {
	Message *SendMessageOutput
	Usage   agent.Result
}

// Orchestrator wires the stores, runner, embedder, and memory queue for
// one-shot turn handling.
type Orchestrator struct {
	store    *store.Store
	vectors  *vectorstore.Store
	embedder Embedder
	runner   *agent.Runner
	queue    Enqueuer
}

// New builds an Orchestrator from already-constructed dependencies.
func New(st *store.Store, vectors *vectorstore.Store, embedder Embedder, runner *agent.Runner, queue Enqueuer) *Orchestrator {
	return &Orchestrator{store: st, vectors: vectors, embedder: embedder, runner: runner, queue: queue}
}

// defaultSystemPrompt seeds the Roleplay agent's SystemConfig row the first
// time it runs. Per-turn prompts are still character-specific
// (assemblePrompt expands Character.SystemPrompt), but Preload still needs
// a baseline value to detect drift in the agent's own generation knobs.
const defaultSystemPrompt = "You are {{char}}, roleplaying with {{user}}. Stay in character; " +
	"respond with in-character fragments and a narrative summary of the turn."

var sendMessageAgent = agent.Descriptor{
	Name:                "send_message",
	SystemConfigName:    "roleplay.send_message",
	DefaultSystemPrompt: defaultSystemPrompt,
	Tool:                &SendMessageOutput{},
	BuildMessages: func(in any) ([]llmgateway.Message, error) {
		messages := in.([]llmgateway.Message)
		if len(messages) < 2 || messages[0].Role != "system" || messages[len(messages)-1].Role != "user" {
			return nil, fmt.Errorf("roleplay: invalid prompt shape")
		}
		return messages, nil
	},
	NewOutput:   func() any { return &SendMessageOutput{} },
	Temperature: 0.9,
	MaxTokens:   2048,
}

// Descriptor exposes the Roleplay agent's Descriptor, for startup
// preloading (spec §4.4 behavior 1) — see cmd/roleplayd/main.go.
func Descriptor() agent.Descriptor { return sendMessageAgent }

// Handle runs one turn end to end (spec §4.6/§4.7): load session/character,
// assemble the prompt, pre-check the wallet, call the Roleplay agent,
// persist the reply and accounting rows in one transaction, and enqueue the
// memory job. The transaction spans only the Message+LedgerEntry write
// (spec §5 request isolation) — every read and the LLM call itself happen
// outside it.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Response, error) {
	var session models.Session
	if err := o.store.FindOneByCriteria(ctx, &session, "sessions",
		store.NewCriteria().Where("id", store.OpEQ, req.SessionID)); err != nil {
		return nil, fmt.Errorf("roleplay: load session: %w", err)
	}

	var character models.Character
	if err := o.store.FindOneByCriteria(ctx, &character, "characters",
		store.NewCriteria().Where("id", store.OpEQ, session.CharacterID)); err != nil {
		return nil, fmt.Errorf("roleplay: load character: %w", err)
	}

	var wallet models.Wallet
	if err := o.store.FindOneByCriteria(ctx, &wallet, "wallets",
		store.NewCriteria().Where("user_id", store.OpEQ, req.UserID)); err != nil {
		return nil, fmt.Errorf("roleplay: load wallet: %w", err)
	}
	if wallet.Claimed+wallet.Purchased+wallet.Misc < TurnCost {
		return nil, apperrors.ErrInsufficientFunds
	}

	filter := vectorstore.Filter{UserID: req.UserID, CharacterID: character.ID, SessionID: session.ID}
	messages, err := o.assemblePrompt(ctx, session, character, filter, req.Content)
	if err != nil {
		return nil, err
	}

	result, err := o.runner.Run(ctx, sendMessageAgent, messages)
	if err != nil {
		return nil, err
	}
	reply := result.Output.(*SendMessageOutput)

	var msg, userMsg models.Message
	err = o.store.WithTx(ctx, func(tx *store.Store) error {
		now := time.Now()
		// Messages have strictly increasing created_at server-side, ties
		// broken User<Assistant (spec §5): the user's turn is written first.
		userMsg = models.Message{
			ID:             uuid.New().String(),
			SessionID:      session.ID,
			CharacterID:    character.ID,
			UserID:         req.UserID,
			Role:           "user",
			Content:        req.Content,
			SequenceNumber: 0,
			IsMemorizeable: true,
			CreatedAt:      now,
		}
		if err := tx.Create(ctx, &userMsg); err != nil {
			return fmt.Errorf("persist user message: %w", err)
		}

		msg = models.Message{
			ID:                uuid.New().String(),
			SessionID:         session.ID,
			CharacterID:       character.ID,
			UserID:            req.UserID,
			Role:              "assistant",
			Content:           reply.Text(),
			SequenceNumber:    1, // 0 for the user row, 1 for the assistant row of each turn; the store writes it as given
			ToolCallName:      result.ToolCallName,
			ToolCallArguments: result.ArgumentsRaw,
			FinishReason:      result.FinishReason,
			PromptTokens:      result.PromptTokens,
			CompletionTokens:  result.CompletionTokens,
			TotalTokens:       result.TotalTokens,
			IsMemorizeable:    true,
			Summary:           reply.Summary,
			CreatedAt:         now.Add(time.Millisecond),
		}
		if err := tx.Create(ctx, &msg); err != nil {
			return fmt.Errorf("persist message: %w", err)
		}
		return debit(ctx, tx, req.UserID, session.ID, character, TurnCost)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	o.queue.Enqueue(MemoryJob{UserMessageID: userMsg.ID, UserMsg: req.Content, AssistantMsg: reply.Text(), Filter: filter})

	return &Response{Message: reply, Usage: *result}, nil
}

// debit applies the claimed→purchased→misc deduction order and, when the
// purchased bucket absorbed part of the cost and the character has a
// creator distinct from the spender, writes a reward_to row (spec §4.7).
func debit(ctx context.Context, tx *store.Store, userID, sessionID string, character models.Character, cost int64) error {
	var wallet models.Wallet
	if err := tx.FindOneByCriteria(ctx, &wallet, "wallets", store.NewCriteria().Where("user_id", store.OpEQ, userID)); err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}

	remaining := cost
	var purchasedDelta int64
	for _, bucket := range []struct {
		name string
		amt  *int64
	}{
		{"claimed", &wallet.Claimed},
		{"purchased", &wallet.Purchased},
		{"misc", &wallet.Misc},
	} {
		if remaining == 0 {
			break
		}
		take := remaining
		if *bucket.amt < take {
			take = *bucket.amt
		}
		*bucket.amt -= take
		remaining -= take
		if bucket.name == "purchased" {
			purchasedDelta = take
		}
		if take > 0 {
			entry := models.LedgerEntry{
				ID:          uuid.New().String(),
				UserID:      userID,
				SessionID:   sessionID,
				Amount:      -take,
				Bucket:      bucket.name,
				Description: "roleplay turn",
				CreatedAt:   time.Now(),
			}
			if err := tx.Create(ctx, &entry); err != nil {
				return fmt.Errorf("write ledger entry: %w", err)
			}
		}
	}
	wallet.UpdatedAt = time.Now()
	if err := tx.Update(ctx, &wallet, store.NewCriteria().Where("id", store.OpEQ, wallet.ID)); err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}

	if purchasedDelta > 0 && character.CreatorID != "" && character.CreatorID != userID {
		reward := models.LedgerEntry{
			ID:          uuid.New().String(),
			UserID:      character.CreatorID,
			SessionID:   sessionID,
			Amount:      purchasedDelta,
			Bucket:      "misc",
			CreatorID:   character.CreatorID,
			Description: "reward from roleplay turn",
			CreatedAt:   time.Now(),
		}
		if err := tx.Create(ctx, &reward); err != nil {
			return fmt.Errorf("write reward entry: %w", err)
		}
	}
	return nil
}

// assemblePrompt builds the message list in the order spec §4.6 requires.
func (o *Orchestrator) assemblePrompt(ctx context.Context, session models.Session, character models.Character, filter vectorstore.Filter, userContent string) ([]llmgateway.Message, error) {
	system, err := ExpandTemplate(character.SystemPrompt, TemplateVars{
		Char:            character.Name,
		User:            session.UserID,
		RequestTime:     time.Now(),
		CharPersonality: character.Persona,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidPromptShape, err)
	}

	var recent []models.Message
	if err := o.store.FindByCriteria(ctx, &recent, "messages",
		store.NewCriteria().
			Where("session_id", store.OpEQ, session.ID).
			Order("created_at", true).
			WithLimit(RecentMessageCount)); err != nil {
		return nil, fmt.Errorf("roleplay: load recent messages: %w", err)
	}

	messages := []llmgateway.Message{{Role: "system", Content: system}}
	if character.FirstMessage != "" {
		messages = append(messages, llmgateway.Message{Role: "assistant", Content: character.FirstMessage})
	}

	// recent was fetched most-recent-first; replay oldest-first for the transcript.
	var summarized []string
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		messages = append(messages, llmgateway.Message{Role: m.Role, Content: m.Content})
		if m.Summary != "" {
			summarized = append(summarized, m.Summary)
		}
	}
	if len(summarized) > 0 {
		messages = append(messages, llmgateway.Message{
			Role:    "system",
			Content: "Summarized earlier history:\n" + strings.Join(summarized, "\n"),
		})
	}

	if snippets, err := o.vectorSnippets(ctx, filter, userContent); err != nil {
		return nil, err
	} else if len(snippets) > 0 {
		messages = append(messages, llmgateway.Message{
			Role:    "system",
			Content: "Relevant memories:\n" + strings.Join(snippets, "\n"),
		})
	}

	messages = append(messages, llmgateway.Message{Role: "user", Content: userContent})
	return messages, nil
}

func (o *Orchestrator) vectorSnippets(ctx context.Context, filter vectorstore.Filter, content string) ([]string, error) {
	vectors, err := o.embedder.Embed(ctx, []string{content})
	if err != nil {
		return nil, fmt.Errorf("roleplay: embed query: %w", err)
	}
	results, err := o.vectors.BatchSearch(ctx, filter, vectors, VectorSnippetCount)
	if err != nil {
		return nil, fmt.Errorf("roleplay: search memories: %w", err)
	}
	var out []string
	if len(results) > 0 {
		for _, row := range results[0] {
			out = append(out, row.Content)
		}
	}
	return out, nil
}
