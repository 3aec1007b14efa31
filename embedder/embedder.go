// Package embedder provides text embedding for semantic search.
//
// Queries and passages are encoded with distinct instruction prefixes
// (the E5 convention), which measurably improves retrieval quality for
// multilingual models.
package embedder

import "context"

// Embedder produces vector embeddings from text.
type Embedder interface {
	// EmbedQuery encodes a search query (instruction-prefixed, L2-normalized).
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedPassages encodes documents for indexing (instruction-prefixed,
	// L2-normalized). More efficient than one call per passage.
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// Model returns the model name being used.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}
