// Package vectorstore implements the vector store (C3, spec §4.2): a
// pgvector-backed `embeddings` table with an HNSW cosine index, grounded on
// lookatitude-beluga-ai's pgvector provider (table-ensure shape, pgx
// driver) but reworked around spec's batch_create/batch_search/
// db_batch_update contract and tenancy triple instead of beluga's generic
// document store.
package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/roleplay/memoryruntime/pkg/config"
)

// Filter scopes every vector-store operation to a tenant: a user, and
// optionally a character and/or session (spec §3).
type Filter struct {
	UserID      string
	CharacterID string // empty means "any"
	SessionID   string // empty means "any"
}

// Row is one stored embedding.
type Row struct {
	ID          string
	UserID      string
	CharacterID string
	SessionID   string
	Embedding   []float32
	Content     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Embedder produces embeddings for a batch of texts in one round trip. It
// is satisfied by pkg/embedgateway.Gateway; declared here to avoid an
// import cycle between the two packages.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the pgvector-backed implementation of C3.
type Store struct {
	db *sql.DB
}

// nilTenantUUID fills in for a NULL character_id/session_id inside the
// tenant-scoped uniqueness index below. Plain NULLs never compare equal to
// one another in a unique index, which would let two rows with an empty
// character_id/session_id and identical content both insert — this
// sentinel makes "no character/session" a real, comparable tenant value.
const nilTenantUUID = "00000000-0000-0000-0000-000000000000"

// New wraps an already-migrated *sql.DB.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the pgvector extension, the embeddings table, and
// its HNSW cosine index and user_id B-tree, exactly as spec §4.2 describes.
// Called once at startup, after pkg/database's relational migrations.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS embeddings (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			character_id UUID,
			session_id UUID,
			embedding VECTOR(%d) NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_embeddings_hnsw_cosine
			ON embeddings USING hnsw (embedding vector_cosine_ops);
		CREATE INDEX IF NOT EXISTS idx_embeddings_user_id ON embeddings (user_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_embeddings_tenant_content
			ON embeddings (user_id, COALESCE(character_id, '%[2]s'::uuid), COALESCE(session_id, '%[2]s'::uuid), content);
	`, config.EmbeddingDims, nilTenantUUID)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("vectorstore: ensure schema: %w", err)
	}
	return nil
}

// BatchCreate embeds texts in one round trip and constructs (but does not
// persist) the corresponding Rows, so callers can plan writes before
// committing them — spec §4.2 batch_create.
func (s *Store) BatchCreate(ctx context.Context, embedder Embedder, texts []string, filter Filter) ([]Row, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: embedding batch: %w", err)
	}
	rows := make([]Row, len(texts))
	now := time.Now()
	for i, text := range texts {
		rows[i] = Row{
			ID:          uuid.New().String(),
			UserID:      filter.UserID,
			CharacterID: filter.CharacterID,
			SessionID:   filter.SessionID,
			Embedding:   vectors[i],
			Content:     text,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return rows, nil
}

// BatchSearch returns, for each query vector, the top-k rows in the tenant
// scope with `1 − cosine(embedding, q) ≥ τ_vec`, ordered by similarity
// descending — spec §4.2 batch_search. The result is parallel to queries.
func (s *Store) BatchSearch(ctx context.Context, filter Filter, queries [][]float32, k int) ([][]Row, error) {
	results := make([][]Row, len(queries))
	for i, q := range queries {
		rows, err := s.searchOne(ctx, filter, q, k)
		if err != nil {
			return nil, err
		}
		results[i] = rows
	}
	return results, nil
}

func (s *Store) searchOne(ctx context.Context, filter Filter, query []float32, k int) ([]Row, error) {
	where, args := tenantWhere(filter)
	args = append(args, vectorLiteral(query), config.VectorSearchThreshold)
	simIdx := len(args) - 1 // positional placeholder index of the vector arg, 1-based below

	q := fmt.Sprintf(`
		SELECT id, user_id, COALESCE(character_id::text,''), COALESCE(session_id::text,''),
		       embedding, content, created_at, updated_at,
		       1 - (embedding <=> $%d::vector) AS similarity
		FROM embeddings
		WHERE %s AND 1 - (embedding <=> $%d::vector) >= $%d
		ORDER BY similarity DESC
		LIMIT %d`, simIdx, where, simIdx, simIdx+1, k)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: batch search: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var embeddingText string
		var similarity float64
		if err := rows.Scan(&r.ID, &r.UserID, &r.CharacterID, &r.SessionID,
			&embeddingText, &r.Content, &r.CreatedAt, &r.UpdatedAt, &similarity); err != nil {
			return nil, fmt.Errorf("vectorstore: scan search row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// OpKind identifies a db_batch_update operation (spec §4.2).
type OpKind string

const (
	OpAdd    OpKind = "ADD"
	OpUpdate OpKind = "UPDATE"
	OpDelete OpKind = "DELETE"
)

// Op is one planned mutation against the vector store.
type Op struct {
	Kind    OpKind
	ID      string // required for UPDATE/DELETE
	Content string // required for ADD/UPDATE
}

// UpdateResult tallies how many rows each phase of BatchUpdate touched.
type UpdateResult struct {
	Added, Updated, Deleted int
}

// BatchUpdate computes a single embedding batch covering every ADD and
// UPDATE op, then executes all operations in one transaction in the order
// ADD, UPDATE, DELETE — so a fresh ADD can never shadow an UPDATE intended
// for the pre-existing row (spec §4.2 db_batch_update).
func (s *Store) BatchUpdate(ctx context.Context, embedder Embedder, filter Filter, ops []Op) (UpdateResult, error) {
	var toEmbed []string
	var embedIdx []int
	for i, op := range ops {
		if op.Kind == OpAdd || op.Kind == OpUpdate {
			toEmbed = append(toEmbed, op.Content)
			embedIdx = append(embedIdx, i)
		}
	}
	var vectors [][]float32
	if len(toEmbed) > 0 {
		v, err := embedder.Embed(ctx, toEmbed)
		if err != nil {
			return UpdateResult{}, fmt.Errorf("vectorstore: embedding batch update: %w", err)
		}
		vectors = v
	}
	embeddingFor := make(map[int][]float32, len(embedIdx))
	for pos, opIdx := range embedIdx {
		embeddingFor[opIdx] = vectors[pos]
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("vectorstore: begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var result UpdateResult
	now := time.Now()

	// ON CONFLICT DO NOTHING against idx_embeddings_tenant_content enforces
	// the spec §3/§4.5.5 dedup invariant at write time: an ADD whose content
	// already matches a row for this tenant — either already committed, or
	// inserted earlier in this same batch, since the unique index sees
	// uncommitted rows within its own transaction — is silently skipped
	// rather than creating a second row with identical content.
	for i, op := range ops {
		if op.Kind != OpAdd {
			continue
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO embeddings (id, user_id, character_id, session_id, embedding, content, created_at, updated_at)
			 VALUES ($1, $2, NULLIF($3,'')::uuid, NULLIF($4,'')::uuid, $5::vector, $6, $7, $7)
			 ON CONFLICT (user_id, COALESCE(character_id, $8::uuid), COALESCE(session_id, $8::uuid), content) DO NOTHING`,
			uuid.New().String(), filter.UserID, filter.CharacterID, filter.SessionID,
			vectorLiteral(embeddingFor[i]), op.Content, now, nilTenantUUID)
		if err != nil {
			return UpdateResult{}, fmt.Errorf("vectorstore: add row: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			result.Added++
		}
	}

	for i, op := range ops {
		if op.Kind != OpUpdate {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE embeddings SET embedding = $1::vector, content = $2, updated_at = $3 WHERE id = $4`,
			vectorLiteral(embeddingFor[i]), op.Content, now, op.ID)
		if err != nil {
			return UpdateResult{}, fmt.Errorf("vectorstore: update row: %w", err)
		}
		result.Updated++
	}

	for _, op := range ops {
		if op.Kind != OpDelete {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE id = $1`, op.ID); err != nil {
			return UpdateResult{}, fmt.Errorf("vectorstore: delete row: %w", err)
		}
		result.Deleted++
	}

	if err := tx.Commit(); err != nil {
		return UpdateResult{}, fmt.Errorf("vectorstore: commit: %w", err)
	}
	return result, nil
}

func tenantWhere(f Filter) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{f.UserID}
	if f.CharacterID != "" {
		args = append(args, f.CharacterID)
		clauses = append(clauses, fmt.Sprintf("character_id = $%d", len(args)))
	}
	if f.SessionID != "" {
		args = append(args, f.SessionID)
		clauses = append(clauses, fmt.Sprintf("session_id = $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
