package vectorstore_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roleplay/memoryruntime/pkg/config"
	"github.com/roleplay/memoryruntime/pkg/vectorstore"
	testdb "github.com/roleplay/memoryruntime/test/database"
)

// fakeEmbedder returns a deterministic, mostly-orthogonal unit vector per
// text: the text's index (mod dims) carries the weight, so two calls with
// the same text at the same position embed identically without needing a
// real embedding model.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, config.EmbeddingDims)
		v[i%config.EmbeddingDims] = 1
		out[i] = v
	}
	return out, nil
}

func newStore(t *testing.T) *vectorstore.Store {
	t.Helper()
	db := testdb.NewTestClient(t)
	s := vectorstore.New(db)
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestVectorStoreBatchCreateAndSearch(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	filter := vectorstore.Filter{UserID: uuid.New().String()}

	rows, err := s.BatchCreate(ctx, fakeEmbedder{}, []string{"likes tea", "dislikes coffee"}, filter)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	ops := make([]vectorstore.Op, len(rows))
	for i, r := range rows {
		ops[i] = vectorstore.Op{Kind: vectorstore.OpAdd, Content: r.Content}
	}
	result, err := s.BatchUpdate(ctx, fakeEmbedder{}, filter, ops)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)

	results, err := s.BatchSearch(ctx, filter, [][]float32{embedText(0), embedText(1)}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.NotEmpty(t, results[0])
	assert.Equal(t, "likes tea", results[0][0].Content)
	require.NotEmpty(t, results[1])
	assert.Equal(t, "dislikes coffee", results[1][0].Content)
}

func embedText(idx int) []float32 {
	v := make([]float32, config.EmbeddingDims)
	v[idx%config.EmbeddingDims] = 1
	return v
}

func TestVectorStoreBatchUpdateAddsUpdatesAndDeletes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	filter := vectorstore.Filter{UserID: uuid.New().String()}

	result, err := s.BatchUpdate(ctx, fakeEmbedder{}, filter, []vectorstore.Op{
		{Kind: vectorstore.OpAdd, Content: "fact one"},
		{Kind: vectorstore.OpAdd, Content: "fact two"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Added)

	rows, err := s.BatchSearch(ctx, filter, [][]float32{embedText(0)}, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	var factOneID string
	for _, r := range rows[0] {
		if r.Content == "fact one" {
			factOneID = r.ID
		}
	}
	require.NotEmpty(t, factOneID, "fact one should be findable by its own embedding")

	result, err = s.BatchUpdate(ctx, fakeEmbedder{}, filter, []vectorstore.Op{
		{Kind: vectorstore.OpUpdate, ID: factOneID, Content: "fact one revised"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	result, err = s.BatchUpdate(ctx, fakeEmbedder{}, filter, []vectorstore.Op{
		{Kind: vectorstore.OpDelete, ID: factOneID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
}

func TestVectorStoreBatchUpdateDedupesIdenticalContentPerTenant(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	filter := vectorstore.Filter{UserID: uuid.New().String()}

	// Two ADDs in the same batch with identical content: the second must
	// be skipped (spec §4.5.5 post-condition), not inserted as a sibling row.
	result, err := s.BatchUpdate(ctx, fakeEmbedder{}, filter, []vectorstore.Op{
		{Kind: vectorstore.OpAdd, Content: "likes pizza"},
		{Kind: vectorstore.OpAdd, Content: "likes pizza"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)

	// A later, separate BatchUpdate call ADDing the same content again
	// must also be skipped against the already-committed row.
	result, err = s.BatchUpdate(ctx, fakeEmbedder{}, filter, []vectorstore.Op{
		{Kind: vectorstore.OpAdd, Content: "likes pizza"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Added)

	rows, err := s.BatchSearch(ctx, filter, [][]float32{embedText(0)}, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	count := 0
	for _, r := range rows[0] {
		if r.Content == "likes pizza" {
			count++
		}
	}
	assert.Equal(t, 1, count, "spec §8: no two rows in the same tenant share identical content")
}

func TestVectorStoreSearchScopesByTenant(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	tenantA := vectorstore.Filter{UserID: uuid.New().String()}
	tenantB := vectorstore.Filter{UserID: uuid.New().String()}

	_, err := s.BatchUpdate(ctx, fakeEmbedder{}, tenantA, []vectorstore.Op{
		{Kind: vectorstore.OpAdd, Content: "tenant A fact"},
	})
	require.NoError(t, err)

	rows, err := s.BatchSearch(ctx, tenantB, [][]float32{embedText(0)}, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0], "a different tenant must not see tenant A's embeddings")
}
