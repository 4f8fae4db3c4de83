// Package models defines the domain structs persisted by pkg/store. Each
// struct carries `db:"column"` tags that pkg/codec uses to generate DDL and
// drive the reflective Criteria engine, replacing the generated ent.Client
// the teacher relied on.
package models

import "time"

// Character is a roleplay persona owned by a user.
type Character struct {
	ID           string    `db:"id,pk"`
	UserID       string    `db:"user_id"`
	CreatorID    string    `db:"creator_id"` // may differ from UserID; drives §4.7 reward-to-creator
	Name         string    `db:"name"`
	Persona      string    `db:"persona"`
	SystemPrompt string    `db:"system_prompt"` // template with {{char}}/{{user}}/{{request_time}}
	FirstMessage string    `db:"first_message"` // sent as a plain assistant message (no tool call) right after the system prompt
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// TableName satisfies codec.Tabler.
func (Character) TableName() string { return "characters" }

// Session is a single roleplay conversation between a user and a character.
type Session struct {
	ID            string    `db:"id,pk"`
	UserID        string    `db:"user_id"`
	CharacterID   string    `db:"character_id"`
	Title         string    `db:"title"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
	LastMessageAt time.Time `db:"last_message_at"`
}

func (Session) TableName() string { return "sessions" }

// Message is one turn of a session — either the user's input or the
// character's reply. The assistant-side tool-call/usage/finish-reason
// fields exist so spec §8's universal invariant ("every committed turn has
// exactly one Message with a non-null assistant_message_tool_call and a
// populated finish_reason") is an actual column, not an implied fact.
type Message struct {
	ID                string    `db:"id,pk"`
	SessionID         string    `db:"session_id"`
	CharacterID       string    `db:"character_id"`
	UserID            string    `db:"user_id"`
	Role              string    `db:"role"` // "user" or "assistant"
	Content           string    `db:"content"`
	SequenceNumber    int       `db:"sequence_number"`
	ToolCallName      string    `db:"tool_call_name,omitempty"`      // assistant_message_tool_call.name, spec §3/§8
	ToolCallArguments string    `db:"tool_call_arguments,omitempty"` // the tool call's JSON-text arguments, verbatim
	FinishReason      string    `db:"finish_reason,omitempty"`
	Refusal           string    `db:"refusal,omitempty"`
	PromptTokens      int       `db:"prompt_tokens"`
	CompletionTokens  int       `db:"completion_tokens"`
	TotalTokens       int       `db:"total_tokens"`
	IsStale           bool      `db:"is_stale"`        // owned by the memory worker, §9
	IsMemorizeable    bool      `db:"is_memorizeable"` // owned by the memory worker, §9
	IsInMemory        bool      `db:"is_in_memory"`    // owned by the memory worker, §9
	Summary           string    `db:"summary"`         // memory_summary audit payload, spec §4.5.6 step 5
	CreatedAt         time.Time `db:"created_at"`
}

func (Message) TableName() string { return "messages" }

// SystemConfig is the persisted, drift-corrected configuration row every
// agent's Preload behavior (spec §4.4 behavior 1) ensures exists before its
// first call: prompt, model, and tool-schema snapshot, keyed by the
// agent's unique SYSTEM_CONFIG_NAME.
type SystemConfig struct {
	ID            string    `db:"id,pk"`
	Name          string    `db:"name"` // unique; the agent's SYSTEM_CONFIG_NAME
	SystemPrompt  string    `db:"system_prompt"`
	PromptVersion int       `db:"prompt_version"`
	BaseURL       string    `db:"base_url,omitempty"`
	Model         string    `db:"model"`
	Temperature   float32   `db:"temperature"`
	MaxTokens     int       `db:"max_tokens"`
	ToolSchema    string    `db:"tool_schema"` // JSON-rendered FunctionObject, for drift detection
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (SystemConfig) TableName() string { return "system_configs" }

// Wallet tracks a user's spendable point balance across three buckets,
// debited in claimed → purchased → misc order (spec §4.7).
type Wallet struct {
	ID        string    `db:"id,pk"`
	UserID    string    `db:"user_id"`
	Claimed   int64     `db:"claimed"`
	Purchased int64     `db:"purchased"`
	Misc      int64     `db:"misc"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (Wallet) TableName() string { return "wallets" }

// LedgerEntry records a single debit or credit against a wallet, including
// reward-to-creator attribution for character authors (spec §4.7).
type LedgerEntry struct {
	ID          string    `db:"id,pk"`
	UserID      string    `db:"user_id"`
	SessionID   string    `db:"session_id"`
	Amount      int64     `db:"amount"` // negative for debits
	Bucket      string    `db:"bucket"` // "claimed", "purchased", or "misc"
	CreatorID   string    `db:"creator_id,omitempty"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }
