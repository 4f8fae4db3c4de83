package memory

// ExtractFactsOutput is the Extract-Facts agent's tool-call payload
// (spec §4.5.1): atomic, self-contained factual statements about the user.
type ExtractFactsOutput struct {
	Facts []string `json:"facts" desc:"Atomic, self-contained factual statements about the user. One fact per string. Empty if nothing factual was said."`
}

func (*ExtractFactsOutput) ToolName() string { return "extract_facts" }
func (*ExtractFactsOutput) ToolDescription() string {
	return "Record the atomic factual statements about the user found in the dialogue."
}

// EntityOut is one entity surfaced by Extract-Entities.
type EntityOut struct {
	Name string `json:"name" desc:"Canonical surface form of the entity as it appears or is clearly referenced in the dialogue."`
	Tag  string `json:"tag" desc:"Short type label for the entity, e.g. Person, Place, Topic."`
}

// ExtractEntitiesOutput is the Extract-Entities agent's tool-call payload
// (spec §4.5.2).
type ExtractEntitiesOutput struct {
	Entities []EntityOut `json:"entities" desc:"Set of named entities mentioned in the dialogue."`
}

func (*ExtractEntitiesOutput) ToolName() string { return "extract_entities" }
func (*ExtractEntitiesOutput) ToolDescription() string {
	return "Record the named entities (people, places, topics) mentioned in the dialogue."
}

// RelationshipOut is one source/relationship/destination triple as surfaced
// by Extract-Relationships or selected for removal by Delete-Relationships.
type RelationshipOut struct {
	Source      string `json:"source" desc:"Name of the source entity; must be one of the entities supplied in type_mapping."`
	Relationship string `json:"relationship" desc:"Short verb/label in upper snake case, e.g. LIVES_IN, WORKS_AT."`
	Destination string `json:"destination" desc:"Name of the destination entity; must be one of the entities supplied in type_mapping."`
}

// ExtractRelationshipsOutput is the Extract-Relationships agent's tool-call
// payload (spec §4.5.3).
type ExtractRelationshipsOutput struct {
	Relationships []RelationshipOut `json:"relationships" desc:"Relationships between entities introduced or clarified by the dialogue."`
}

func (*ExtractRelationshipsOutput) ToolName() string { return "extract_relationships" }
func (*ExtractRelationshipsOutput) ToolDescription() string {
	return "Record the relationships between entities introduced by the dialogue."
}

// DeleteRelationshipsOutput is the Delete-Relationships agent's tool-call
// payload (spec §4.5.4): relationships to remove because new information
// contradicts or supersedes them.
type DeleteRelationshipsOutput struct {
	Relationships []RelationshipOut `json:"relationships" desc:"Existing relationships that the new dialogue contradicts or supersedes. Empty if nothing should be removed."`
}

func (*DeleteRelationshipsOutput) ToolName() string { return "delete_relationships" }
func (*DeleteRelationshipsOutput) ToolDescription() string {
	return "Select existing relationships that must be deleted because the new dialogue contradicts or supersedes them. Never delete a relation that could simply be one value among many."
}

// MemoryEvent is one MemoryOperation's event kind (spec §4.5.5).
type MemoryEvent string

const (
	EventAdd    MemoryEvent = "ADD"
	EventUpdate MemoryEvent = "UPDATE"
	EventDelete MemoryEvent = "DELETE"
	EventNone   MemoryEvent = "NONE"
)

// Options implements codec.TextEnum so MemoryOperation.Event schemas as a
// string enum.
func (MemoryEvent) Options() []string {
	return []string{string(EventAdd), string(EventUpdate), string(EventDelete), string(EventNone)}
}

// MemoryOperation is one planned mutation over the vector store (spec
// §4.5.5). ADD carries the nil-UUID sentinel in ID; the pipeline replaces
// it with a freshly allocated id at write time.
type MemoryOperation struct {
	Event   MemoryEvent `json:"event" desc:"ADD, UPDATE, DELETE, or NONE (no-op)."`
	ID      string      `json:"id" desc:"For ADD, the all-zero nil UUID sentinel. For UPDATE/DELETE, an id drawn from the supplied existing-memory set."`
	Content string      `json:"content" desc:"For ADD/UPDATE, the memory content to store. Ignored for DELETE/NONE."`
}

// UpdateMemoryOutput is the Update-Memory agent's tool-call payload.
type UpdateMemoryOutput struct {
	Operations []MemoryOperation `json:"operations" desc:"One operation per input fact, deciding how it should be reconciled against existing memories."`
}

func (*UpdateMemoryOutput) ToolName() string { return "update_memory" }
func (*UpdateMemoryOutput) ToolDescription() string {
	return "Reconcile newly extracted facts against the nearest existing memories: ADD new ones, UPDATE superseded ones, DELETE contradicted ones, or NONE when the fact is already captured."
}

// NilID is the sentinel id for a planner-issued ADD operation (spec §4.5.5
// Open Question decision, see DESIGN.md).
const NilID = "00000000-0000-0000-0000-000000000000"
