package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roleplay/memoryruntime/pkg/vectorstore"
)

func TestPlanVectorOpsAddAssignsFreshID(t *testing.T) {
	ops := []MemoryOperation{{Event: EventAdd, Content: "likes tea"}}
	planned := planVectorOps(ops)
	require.Len(t, planned, 1)
	assert.Equal(t, vectorstore.OpAdd, planned[0].Kind)
	assert.Equal(t, "likes tea", planned[0].Content)
	assert.NotEmpty(t, planned[0].ID)
	assert.NotEqual(t, NilID, planned[0].ID)
}

func TestPlanVectorOpsUpdateCarriesInputID(t *testing.T) {
	ops := []MemoryOperation{{Event: EventUpdate, ID: "existing-id", Content: "now prefers coffee"}}
	planned := planVectorOps(ops)
	require.Len(t, planned, 1)
	assert.Equal(t, vectorstore.OpUpdate, planned[0].Kind)
	assert.Equal(t, "existing-id", planned[0].ID)
	assert.Equal(t, "now prefers coffee", planned[0].Content)
}

func TestPlanVectorOpsDeleteCarriesInputID(t *testing.T) {
	ops := []MemoryOperation{{Event: EventDelete, ID: "stale-id"}}
	planned := planVectorOps(ops)
	require.Len(t, planned, 1)
	assert.Equal(t, vectorstore.OpDelete, planned[0].Kind)
	assert.Equal(t, "stale-id", planned[0].ID)
}

func TestPlanVectorOpsNoneIsStripped(t *testing.T) {
	ops := []MemoryOperation{
		{Event: EventNone, ID: "unchanged-id"},
		{Event: EventAdd, Content: "new fact"},
	}
	planned := planVectorOps(ops)
	require.Len(t, planned, 1)
	assert.Equal(t, vectorstore.OpAdd, planned[0].Kind)
}

func TestPlanVectorOpsEmptyInputYieldsEmptyOutput(t *testing.T) {
	planned := planVectorOps(nil)
	assert.Empty(t, planned)
}

func TestPlanVectorOpsAddsGetDistinctIDs(t *testing.T) {
	ops := []MemoryOperation{
		{Event: EventAdd, Content: "fact one"},
		{Event: EventAdd, Content: "fact two"},
	}
	planned := planVectorOps(ops)
	require.Len(t, planned, 2)
	assert.NotEqual(t, planned[0].ID, planned[1].ID)
}
