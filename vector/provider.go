// Package vector provides vector store providers for the knowledge base.
//
// Two backends are supported: Qdrant (gRPC, local Docker or managed cloud)
// and chromem-go (embedded, zero-config). Both sit behind the Provider
// interface so the failover wrapper and the retrieval pipeline never care
// which one is serving.
package vector

import "context"

// Point is a stored vector together with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// SearchHit is a single nearest-neighbor result.
type SearchHit struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// Provider is the vector store boundary.
//
// Scroll enumerates the full collection (up to limit) and is used to build
// the lexical index and to bulk-copy between backends. Count is used for
// health probing and staleness checks.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// CreateCollection creates a collection if it does not exist.
	CreateCollection(ctx context.Context, collection string, dimension int) error

	// Upsert adds or updates points in a collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search finds the topK most similar vectors.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]SearchHit, error)

	// Count returns the number of points in a collection.
	Count(ctx context.Context, collection string) (uint64, error)

	// Scroll returns up to limit points with payloads and vectors.
	Scroll(ctx context.Context, collection string, limit int) ([]Point, error)

	// Delete removes a point by ID.
	Delete(ctx context.Context, collection string, id string) error

	// Close releases any resources held by the provider.
	Close() error
}
