package config

// Compile-time tuning constants (spec §8). These are the system's
// similarity thresholds and vector dimensionality; they are not meant to
// vary per deployment, so unlike the rest of this package they are plain
// constants rather than env-loaded fields.
const (
	// EmbeddingDims (D) is the dimensionality every stored embedding must have.
	EmbeddingDims = 1024

	// VectorSearchThreshold (τ_vec) is the minimum cosine similarity for a
	// vector-store hit to be considered a match.
	VectorSearchThreshold = 0.7

	// GraphTextThreshold (τ_text) is the minimum normalized similarity
	// (round(2·cos−1, 4)) for a graph text-search hit.
	GraphTextThreshold = 0.3

	// EntityResolutionThreshold (τ_ent) is the minimum cosine similarity to
	// re-identify an existing graph entity instead of creating a new one.
	EntityResolutionThreshold = 0.7

	// GraphSearchLimit (L_graph) bounds the number of graph triples returned
	// per query embedding.
	GraphSearchLimit = 100
)

// Defaults contains system-wide default configuration, analogous to the
// teacher's Defaults struct but scoped to this system's knobs.
type Defaults struct {
	// LLMProvider names the default chat-completion provider used by every
	// agent that doesn't specify one explicitly.
	LLMProvider string `yaml:"llm_provider" validate:"required"`

	// EmbeddingProvider names the default embedding provider.
	EmbeddingProvider string `yaml:"embedding_provider" validate:"required"`
}
