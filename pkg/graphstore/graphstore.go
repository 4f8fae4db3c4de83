// Package graphstore implements the graph store (C4, spec §4.2): entity
// resolution by cosine similarity, tenant-scoped relationship MERGE/DELETE,
// and 1-hop neighbor expansion over Neo4j. Grounded on
// lookatitude-beluga-ai's memory/stores/neo4j package — the sessionRunner
// test seam and record result shape are kept; the query set is
// rebuilt around spec's resolve_entity/add/search/delete contract.
package graphstore

import (
	"context"
	"fmt"
	"math"
	"time"

	driver "github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/roleplay/memoryruntime/pkg/config"
)

// Config holds Neo4j connection settings.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// sessionRunner abstracts Neo4j session operations for testability, since
// the real driver's session type has unexported methods.
type sessionRunner interface {
	executeWrite(ctx context.Context, cypher string, params map[string]any) error
	executeRead(ctx context.Context, cypher string, params map[string]any) ([]record, error)
	close(ctx context.Context) error
}

type record struct {
	values map[string]any
}

type neo4jRunner struct {
	drv      driver.DriverWithContext
	database string
}

func (r *neo4jRunner) executeWrite(ctx context.Context, cypher string, params map[string]any) error {
	session := r.drv.NewSession(ctx, driver.SessionConfig{DatabaseName: r.database})
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx driver.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, cypher, params)
		return nil, err
	})
	return err
}

func (r *neo4jRunner) executeRead(ctx context.Context, cypher string, params map[string]any) ([]record, error) {
	session := r.drv.NewSession(ctx, driver.SessionConfig{
		DatabaseName: r.database,
		AccessMode:   driver.AccessModeRead,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx driver.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var records []record
		for res.Next(ctx) {
			rec := res.Record()
			values := make(map[string]any, len(rec.Keys))
			for _, k := range rec.Keys {
				v, _ := rec.Get(k)
				values[k] = v
			}
			records = append(records, record{values: values})
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]record), nil
}

func (r *neo4jRunner) close(ctx context.Context) error {
	return r.drv.Close(ctx)
}

// Filter scopes every graph operation to a tenant (spec §3).
type Filter struct {
	UserID      string
	CharacterID string
	SessionID   string
}

// Entity is one named node participating in a relationship, together with
// its embedding for re-identification.
type Entity struct {
	Name      string
	TypeTag   string // optional type label beyond :Entity
	Embedding []float32
}

// Relationship is one source->destination edge to MERGE or DELETE.
type Relationship struct {
	Source      Entity
	Label       string
	Destination Entity
}

// Triple is one search result row.
type Triple struct {
	Source       string
	Relationship string
	Destination  string
	Similarity   float64
}

// Store is the Neo4j-backed implementation of C4.
type Store struct {
	runner sessionRunner
}

// New opens a Neo4j driver and wraps it in the Store.
func New(cfg Config) (*Store, error) {
	drv, err := driver.NewDriverWithContext(cfg.URI, driver.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("graphstore: create driver: %w", err)
	}
	return &Store{runner: &neo4jRunner{drv: drv, database: cfg.Database}}, nil
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.runner.close(ctx)
}

// EnsureSchema creates the vector index over (:Entity).embedding and the
// user_id lookup index (spec §4.2).
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE VECTOR INDEX entity_embedding IF NOT EXISTS
			FOR (e:Entity) ON (e.embedding)
			OPTIONS {indexConfig: {`+"`vector.dimensions`"+`: %d, `+"`vector.similarity_function`"+`: 'cosine'}}`, config.EmbeddingDims),
		`CREATE INDEX entity_user_id IF NOT EXISTS FOR (e:Entity) ON (e.user_id)`,
	}
	for _, stmt := range stmts {
		if err := s.runner.executeWrite(ctx, stmt, nil); err != nil {
			return fmt.Errorf("graphstore: ensure schema: %w", err)
		}
	}
	return nil
}

// ResolveEntity returns the id of the single nearest :Entity candidate for
// the tenant with cosine ≥ τ_ent, or ("", nil) if none qualifies (spec §4.2
// resolve_entity). Candidates are drawn from the 50 nearest vector-index
// hits, as in Search, before the tenant filter is applied.
func (s *Store) ResolveEntity(ctx context.Context, name string, embedding []float32, filter Filter) (string, error) {
	cypher := `
		CALL db.index.vector.queryNodes('entity_embedding', 50, $embedding)
		YIELD node, score
		WHERE node.user_id = $user_id
		  AND ($character_id = '' OR node.character_id = $character_id)
		  AND ($session_id = '' OR node.session_id = $session_id)
		  AND score >= $threshold
		RETURN elementId(node) AS id
		ORDER BY score DESC
		LIMIT 1`
	params := tenantParams(filter)
	params["embedding"] = embedding
	params["threshold"] = config.EntityResolutionThreshold

	records, err := s.runner.executeRead(ctx, cypher, params)
	if err != nil {
		return "", fmt.Errorf("graphstore: resolve entity %q: %w", name, err)
	}
	if len(records) == 0 {
		return "", nil
	}
	id, _ := records[0].values["id"].(string)
	return id, nil
}

// Add batch-adds relationships: it takes the embeddings already carried on
// the Entity values (it embeds nothing itself), resolves each name against
// the existing graph, and MERGEs the edge using one of four Cypher forms
// depending on which side resolved (spec §4.2 add). Each MERGE runs in its
// own write transaction, so the batch is not atomic: an error partway
// through leaves the edges merged before it in place.
func (s *Store) Add(ctx context.Context, relationships []Relationship, filter Filter) error {
	resolved := make(map[string]string) // name -> element id, memoized across this batch
	for _, rel := range relationships {
		for _, e := range []Entity{rel.Source, rel.Destination} {
			if _, ok := resolved[e.Name]; ok {
				continue
			}
			id, err := s.ResolveEntity(ctx, e.Name, e.Embedding, filter)
			if err != nil {
				return err
			}
			resolved[e.Name] = id // "" means "create new"
		}
	}

	for _, rel := range relationships {
		srcID := resolved[rel.Source.Name]
		dstID := resolved[rel.Destination.Name]
		cypher, params := mergeCypher(rel, srcID, dstID, filter)
		if err := s.runner.executeWrite(ctx, cypher, params); err != nil {
			return fmt.Errorf("graphstore: merge relationship %s-%s->%s: %w",
				rel.Source.Name, rel.Label, rel.Destination.Name, err)
		}
	}
	return nil
}

func mergeCypher(rel Relationship, srcID, dstID string, filter Filter) (string, map[string]any) {
	params := tenantParams(filter)
	params["src_name"] = rel.Source.Name
	params["src_embedding"] = rel.Source.Embedding
	params["dst_name"] = rel.Destination.Name
	params["dst_embedding"] = rel.Destination.Embedding
	params["now"] = time.Now().Format(time.RFC3339Nano)
	params["src_id"] = srcID
	params["dst_id"] = dstID

	srcMatch := "MATCH (src) WHERE elementId(src) = $src_id"
	if srcID == "" {
		srcMatch = `MERGE (src:Entity {user_id: $user_id, character_id: $character_id, session_id: $session_id, name: $src_name})
			ON CREATE SET src.embedding = $src_embedding, src.created_at = $now, src.updated_at = $now`
	}
	dstMatch := "MATCH (dst) WHERE elementId(dst) = $dst_id"
	if dstID == "" {
		dstMatch = `MERGE (dst:Entity {user_id: $user_id, character_id: $character_id, session_id: $session_id, name: $dst_name})
			ON CREATE SET dst.embedding = $dst_embedding, dst.created_at = $now, dst.updated_at = $now`
	}

	cypher := fmt.Sprintf(`
		%s
		%s
		MERGE (src)-[r:%s]->(dst)
		ON CREATE SET r.created_at = $now, r.updated_at = $now
		ON MATCH SET r.updated_at = $now`, srcMatch, dstMatch, sanitizeLabel(rel.Label))
	return cypher, params
}

// Search performs, for each embedding, a vector similarity node match with
// `round(2·cos − 1, 4) ≥ τ_text`, then expands both outbound and inbound
// 1-hop edges within the tenant, returning at most L_graph triples per
// query (spec §4.2 search).
func (s *Store) Search(ctx context.Context, embeddings [][]float32, filter Filter) ([][]Triple, error) {
	results := make([][]Triple, len(embeddings))
	for i, emb := range embeddings {
		triples, err := s.searchOne(ctx, emb, filter)
		if err != nil {
			return nil, err
		}
		results[i] = triples
	}
	return results, nil
}

func (s *Store) searchOne(ctx context.Context, embedding []float32, filter Filter) ([]Triple, error) {
	cypher := `
		CALL db.index.vector.queryNodes('entity_embedding', 50, $embedding)
		YIELD node, score
		WHERE node.user_id = $user_id
		  AND ($character_id = '' OR node.character_id = $character_id)
		  AND ($session_id = '' OR node.session_id = $session_id)
		MATCH (node)-[r]-(other)
		RETURN node.name AS center, type(r) AS rel, other.name AS other,
		       startNode(r) = node AS outbound, score
		ORDER BY score DESC
		LIMIT $limit`
	params := tenantParams(filter)
	params["embedding"] = embedding
	params["limit"] = config.GraphSearchLimit

	records, err := s.runner.executeRead(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("graphstore: search: %w", err)
	}

	var out []Triple
	for _, rec := range records {
		score, _ := rec.values["score"].(float64)
		normalized := round4(2*score - 1)
		if normalized < config.GraphTextThreshold {
			continue
		}
		center, _ := rec.values["center"].(string)
		other, _ := rec.values["other"].(string)
		rel, _ := rec.values["rel"].(string)
		outbound, _ := rec.values["outbound"].(bool)
		t := Triple{Relationship: rel, Similarity: normalized}
		if outbound {
			t.Source, t.Destination = center, other
		} else {
			t.Source, t.Destination = other, center
		}
		out = append(out, t)
	}
	return out, nil
}

// Delete removes edges with the given label between source and destination
// nodes matched by name within the tenant scope; the nodes themselves are
// left in place (spec §4.2 delete).
func (s *Store) Delete(ctx context.Context, relationships []Relationship, filter Filter) error {
	for _, rel := range relationships {
		params := tenantParams(filter)
		params["src_name"] = rel.Source.Name
		params["dst_name"] = rel.Destination.Name
		cypher := fmt.Sprintf(`
			MATCH (src:Entity {user_id: $user_id, name: $src_name})
			      -[r:%s]->
			      (dst:Entity {user_id: $user_id, name: $dst_name})
			WHERE ($character_id = '' OR src.character_id = $character_id)
			  AND ($session_id = '' OR src.session_id = $session_id)
			DELETE r`, sanitizeLabel(rel.Label))
		if err := s.runner.executeWrite(ctx, cypher, params); err != nil {
			return fmt.Errorf("graphstore: delete relationship %s-%s->%s: %w",
				rel.Source.Name, rel.Label, rel.Destination.Name, err)
		}
	}
	return nil
}

func tenantParams(f Filter) map[string]any {
	return map[string]any{
		"user_id":      f.UserID,
		"character_id": f.CharacterID,
		"session_id":   f.SessionID,
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// sanitizeLabel keeps relationship labels to characters Cypher allows
// unquoted, since edge labels can't be parameterized in Cypher.
func sanitizeLabel(label string) string {
	out := make([]rune, 0, len(label))
	for _, r := range label {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "RELATED_TO"
	}
	return string(out)
}
