// Package memory implements the hybrid memory engine (C8, spec §4.5): five
// specialized agents built on pkg/agent, driving pkg/vectorstore and
// pkg/graphstore. Grounded on the teacher's controller/strategy shape (one
// Descriptor per concern) collapsed into agent.Runner, and on the teacher's
// pkg/cleanup service for the "independent branches, log-and-retry on
// failure" resilience idiom.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/roleplay/memoryruntime/pkg/agent"
	"github.com/roleplay/memoryruntime/pkg/graphstore"
	"github.com/roleplay/memoryruntime/pkg/vectorstore"
)

// Embedder is satisfied by pkg/embedgateway.Gateway; declared here, as in
// pkg/vectorstore, to avoid an import cycle.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// MessageAnnotator writes the memory_summary audit payload back onto the
// originating user message (spec §4.5.6 step 5). Satisfied directly by
// *pkg/store.Store, which cmd/roleplayd/main.go passes in as-is; kept as a
// narrow interface here so pkg/memory doesn't need to import pkg/models'
// full Message shape or pkg/store's Criteria builder.
type MessageAnnotator interface {
	AnnotateMemorySummary(ctx context.Context, userMessageID, summaryJSON string) error
}

// Summary is the audit-only payload emitted on the originating user message
// at the end of a turn's memory pipeline run (spec §4.5.6 step 5).
type Summary struct {
	FactsExtracted       int    `json:"facts_extracted"`
	VectorAdded          int    `json:"vector_added"`
	VectorUpdated        int    `json:"vector_updated"`
	VectorDeleted        int    `json:"vector_deleted"`
	EntitiesExtracted    int    `json:"entities_extracted"`
	RelationshipsAdded   int    `json:"relationships_added"`
	RelationshipsDeleted int    `json:"relationships_deleted"`
	GraphBranchError     string `json:"graph_branch_error,omitempty"`
	VectorBranchError    string `json:"vector_branch_error,omitempty"`
}

// JSON renders the summary for storage in an audit column.
func (s Summary) JSON() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Pipeline wires the five agents of §4.5.1-4.5.5 to the stores for one
// (user_msg, assistant_msg) turn.
type Pipeline struct {
	runner    *agent.Runner
	vectors   *vectorstore.Store
	graph     *graphstore.Store
	embedder  Embedder
	annotator MessageAnnotator
}

// New builds a Pipeline from already-constructed dependencies. annotator
// may be nil, in which case step 5's memory_summary write is skipped (the
// job's returned Summary is still computed and logged by the caller).
func New(runner *agent.Runner, vectors *vectorstore.Store, graph *graphstore.Store, embedder Embedder, annotator MessageAnnotator) *Pipeline {
	return &Pipeline{runner: runner, vectors: vectors, graph: graph, embedder: embedder, annotator: annotator}
}

// Run executes the end-to-end memory pipeline for one turn (spec §4.5.6):
// Extract-Facts gates everything; the vector branch (Update-Memory then
// ADD,UPDATE,DELETE) and the graph branch (Extract-Entities,
// Extract-Relationships, graph.search, Delete-Relationships, then
// DELETE,ADD) run concurrently and independently. Each branch's failure is
// logged and does not roll back the other — the stores are idempotent
// under retry (spec §4.5.6 Failure semantics). userMessageID, when
// non-empty, names the originating user message step 5's memory_summary
// audit row is attached to.
func (p *Pipeline) Run(ctx context.Context, userMessageID, userMsg, assistantMsg string, filter vectorstore.Filter) (Summary, error) {
	m := fmt.Sprintf("user: %s\nassistant: %s", userMsg, assistantMsg)

	factsRes, err := p.runner.Run(ctx, extractFactsAgent, extractFactsInput{NewMessage: m})
	if err != nil {
		return Summary{}, fmt.Errorf("memory: extract facts: %w", err)
	}
	facts := factsRes.Output.(*ExtractFactsOutput).Facts
	summary := Summary{FactsExtracted: len(facts)}
	if len(facts) == 0 {
		p.annotate(ctx, userMessageID, summary)
		return summary, nil
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := p.runVectorBranch(ctx, facts, filter, &summary); err != nil {
			summary.VectorBranchError = err.Error()
			slog.Error("memory: vector branch failed, will retry next turn", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := p.runGraphBranch(ctx, m, filter, &summary); err != nil {
			summary.GraphBranchError = err.Error()
			slog.Error("memory: graph branch failed, will retry next turn", "error", err)
		}
	}()
	wg.Wait()

	p.annotate(ctx, userMessageID, summary)
	return summary, nil
}

// annotate writes the memory_summary audit payload onto the originating
// user message (spec §4.5.6 step 5). Best-effort: a failure here is logged
// and does not fail the job, matching the rest of the pipeline's
// log-and-continue resilience stance.
func (p *Pipeline) annotate(ctx context.Context, userMessageID string, summary Summary) {
	if p.annotator == nil || userMessageID == "" {
		return
	}
	if err := p.annotator.AnnotateMemorySummary(ctx, userMessageID, summary.JSON()); err != nil {
		slog.Error("memory: failed to write memory_summary onto user message", "error", err)
	}
}

func (p *Pipeline) runVectorBranch(ctx context.Context, facts []string, filter vectorstore.Filter, summary *Summary) error {
	gf := filter
	vectors, err := p.embedder.Embed(ctx, facts)
	if err != nil {
		return fmt.Errorf("embed facts: %w", err)
	}

	nearest, err := p.vectors.BatchSearch(ctx, gf, vectors, 5)
	if err != nil {
		return fmt.Errorf("search nearest memories: %w", err)
	}

	existingText := strings.Builder{}
	for _, rows := range nearest {
		for _, r := range rows {
			fmt.Fprintf(&existingText, "%s: %s\n", r.ID, r.Content)
		}
	}

	updateRes, err := p.runner.Run(ctx, updateMemoryAgent, updateMemoryInput{
		Facts:        facts,
		ExistingText: existingText.String(),
	})
	if err != nil {
		return fmt.Errorf("update-memory agent: %w", err)
	}
	ops := updateRes.Output.(*UpdateMemoryOutput).Operations

	planned := planVectorOps(ops)
	result, err := p.vectors.BatchUpdate(ctx, p.embedder, gf, planned)
	if err != nil {
		return fmt.Errorf("apply vector ops: %w", err)
	}
	summary.VectorAdded, summary.VectorUpdated, summary.VectorDeleted = result.Added, result.Updated, result.Deleted
	return nil
}

// planVectorOps maps agent-issued MemoryOperations to vectorstore.Op,
// replacing the nil-id ADD sentinel with a freshly allocated id and
// dropping NONE ops (spec §4.5.5).
func planVectorOps(ops []MemoryOperation) []vectorstore.Op {
	planned := make([]vectorstore.Op, 0, len(ops))
	for _, op := range ops {
		switch op.Event {
		case EventAdd:
			planned = append(planned, vectorstore.Op{Kind: vectorstore.OpAdd, ID: uuid.New().String(), Content: op.Content})
		case EventUpdate:
			planned = append(planned, vectorstore.Op{Kind: vectorstore.OpUpdate, ID: op.ID, Content: op.Content})
		case EventDelete:
			planned = append(planned, vectorstore.Op{Kind: vectorstore.OpDelete, ID: op.ID})
		case EventNone:
			// no-op, planner strips
		}
	}
	return planned
}

func (p *Pipeline) runGraphBranch(ctx context.Context, m string, filter vectorstore.Filter, summary *Summary) error {
	entitiesRes, err := p.runner.Run(ctx, extractEntitiesAgent, extractEntitiesInput{NewMessage: m})
	if err != nil {
		return fmt.Errorf("extract-entities agent: %w", err)
	}
	entities := entitiesRes.Output.(*ExtractEntitiesOutput).Entities
	if len(entities) == 0 {
		return nil
	}

	relRes, err := p.runner.Run(ctx, extractRelationshipsAgent, extractRelationshipsInput{NewMessage: m, Entities: entities})
	if err != nil {
		return fmt.Errorf("extract-relationships agent: %w", err)
	}
	relationships := relRes.Output.(*ExtractRelationshipsOutput).Relationships
	if len(relationships) == 0 {
		return nil
	}

	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}
	embeddings, err := p.embedder.Embed(ctx, names)
	if err != nil {
		return fmt.Errorf("embed entity names: %w", err)
	}
	entityByName := make(map[string]EntityOut, len(entities))
	for i, e := range entities {
		e.Name = names[i]
		entityByName[names[i]] = e
	}
	embeddingByName := make(map[string][]float32, len(entities))
	for i, name := range names {
		embeddingByName[name] = embeddings[i]
	}

	gf := toGraphFilter(filter)

	existing, err := p.graph.Search(ctx, embeddings, gf)
	if err != nil {
		return fmt.Errorf("search existing relationships: %w", err)
	}
	existingText := strings.Builder{}
	for _, triples := range existing {
		for _, t := range triples {
			fmt.Fprintf(&existingText, "%s -[%s]-> %s\n", t.Source, t.Relationship, t.Destination)
		}
	}

	delRes, err := p.runner.Run(ctx, deleteRelationshipsAgent, deleteRelationshipsInput{
		NewMessage:   m,
		Entities:     entities,
		ExistingText: existingText.String(),
	})
	if err != nil {
		return fmt.Errorf("delete-relationships agent: %w", err)
	}
	toDelete := toGraphRelationships(delRes.Output.(*DeleteRelationshipsOutput).Relationships, entityByName, embeddingByName)
	toAdd := toGraphRelationships(relationships, entityByName, embeddingByName)

	// DELETE before ADD (spec §4.5.6) so a just-superseded edge cannot be
	// re-added by the same turn's extraction pass.
	if len(toDelete) > 0 {
		if err := p.graph.Delete(ctx, toDelete, gf); err != nil {
			return fmt.Errorf("delete relationships: %w", err)
		}
		summary.RelationshipsDeleted = len(toDelete)
	}
	if len(toAdd) > 0 {
		if err := p.graph.Add(ctx, toAdd, gf); err != nil {
			return fmt.Errorf("add relationships: %w", err)
		}
		summary.RelationshipsAdded = len(toAdd)
	}
	summary.EntitiesExtracted = len(entities)
	return nil
}

func toGraphRelationships(rels []RelationshipOut, entityByName map[string]EntityOut, embeddingByName map[string][]float32) []graphstore.Relationship {
	out := make([]graphstore.Relationship, 0, len(rels))
	for _, r := range rels {
		src, ok1 := entityByName[r.Source]
		dst, ok2 := entityByName[r.Destination]
		if !ok1 || !ok2 {
			continue // agent hallucinated a name outside type_mapping; skip rather than fail the turn
		}
		out = append(out, graphstore.Relationship{
			Source:      graphstore.Entity{Name: src.Name, TypeTag: src.Tag, Embedding: embeddingByName[src.Name]},
			Label:       r.Relationship,
			Destination: graphstore.Entity{Name: dst.Name, TypeTag: dst.Tag, Embedding: embeddingByName[dst.Name]},
		})
	}
	return out
}

func toGraphFilter(f vectorstore.Filter) graphstore.Filter {
	return graphstore.Filter{UserID: f.UserID, CharacterID: f.CharacterID, SessionID: f.SessionID}
}
