package vector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ChromemProvider implements Provider using chromem-go for embedded vector storage.
//
// This is the zero-config option: pure Go, no external services, optional
// file persistence. chromem-go has no point enumeration API, so the provider
// keeps an in-process copy of every upserted point to serve Scroll. That
// cache only covers points written through this process; a persisted
// database reloaded from disk answers Search and Count but starts with an
// empty Scroll view until re-ingested.
//
// For production the Qdrant provider is the intended backend; chromem serves
// development, tests, and single-node deployments.
type ChromemProvider struct {
	db          *chromem.DB
	persistPath string
	compress    bool
	mu          sync.RWMutex

	// collections caches collection references for performance
	collections map[string]*chromem.Collection

	// points mirrors upserted data per collection so Scroll can enumerate
	points map[string]map[string]Point

	embeddingFunc chromem.EmbeddingFunc
}

// ChromemConfig configures the chromem provider.
type ChromemConfig struct {
	// PersistPath for file persistence (optional).
	// If empty, vectors are stored in memory only.
	PersistPath string `yaml:"persist_path,omitempty"`

	// Compress enables gzip compression for persistence.
	Compress bool `yaml:"compress,omitempty"`
}

// NewChromemProvider creates a new chromem-based vector provider.
func NewChromemProvider(cfg ChromemConfig) (*ChromemProvider, error) {
	var db *chromem.DB
	var err error

	if cfg.PersistPath != "" {
		if err := os.MkdirAll(cfg.PersistPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create persist directory: %w", err)
		}

		dbPath := chromemDBPath(cfg.PersistPath, cfg.Compress)
		if _, statErr := os.Stat(dbPath); statErr == nil {
			db, err = chromem.NewPersistentDB(dbPath, cfg.Compress)
			if err != nil {
				slog.Warn("Failed to load existing vector database, creating new",
					"path", dbPath,
					"error", err)
				db = chromem.NewDB()
			} else {
				slog.Info("Loaded vector database from file", "path", dbPath)
			}
		} else {
			db = chromem.NewDB()
			slog.Info("Created new vector database", "path", dbPath)
		}
	} else {
		db = chromem.NewDB()
		slog.Info("Created in-memory vector database (no persistence)")
	}

	// Vectors are always pre-computed by the embedder package.
	identityEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("embedding function called but vectors should be pre-computed")
	}

	return &ChromemProvider{
		db:            db,
		persistPath:   cfg.PersistPath,
		compress:      cfg.Compress,
		collections:   make(map[string]*chromem.Collection),
		points:        make(map[string]map[string]Point),
		embeddingFunc: identityEmbed,
	}, nil
}

// Name returns the provider name.
func (p *ChromemProvider) Name() string {
	return "chromem"
}

// getCollection gets or creates a collection.
func (p *ChromemProvider) getCollection(name string) (*chromem.Collection, error) {
	p.mu.RLock()
	if col, ok := p.collections[name]; ok {
		p.mu.RUnlock()
		return col, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if col, ok := p.collections[name]; ok {
		return col, nil
	}

	col, err := p.db.GetOrCreateCollection(name, nil, p.embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection %q: %w", name, err)
	}

	p.collections[name] = col
	return col, nil
}

// CreateCollection creates a new collection.
// chromem-go creates collections implicitly, so the dimension is ignored.
func (p *ChromemProvider) CreateCollection(ctx context.Context, collection string, dimension int) error {
	_, err := p.getCollection(collection)
	return err
}

// Upsert adds or updates points in a collection.
func (p *ChromemProvider) Upsert(ctx context.Context, collection string, points []Point) error {
	col, err := p.getCollection(collection)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, 0, len(points))
	for _, point := range points {
		strMetadata := make(map[string]string, len(point.Payload))
		for k, v := range point.Payload {
			strMetadata[k] = fmt.Sprint(v)
		}

		content := ""
		if c, ok := point.Payload["text"].(string); ok {
			content = c
		}

		docs = append(docs, chromem.Document{
			ID:        point.ID,
			Content:   content,
			Metadata:  strMetadata,
			Embedding: point.Vector,
		})
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to upsert documents: %w", err)
	}

	p.mu.Lock()
	cached, ok := p.points[collection]
	if !ok {
		cached = make(map[string]Point)
		p.points[collection] = cached
	}
	for _, point := range points {
		cached[point.ID] = point
	}
	p.mu.Unlock()

	if err := p.persist(); err != nil {
		slog.Warn("Failed to persist after upsert", "error", err)
	}

	return nil
}

// Search finds the topK most similar vectors.
func (p *ChromemProvider) Search(ctx context.Context, collection string, vector []float32, topK int) ([]SearchHit, error) {
	col, err := p.getCollection(collection)
	if err != nil {
		return nil, err
	}

	// chromem returns an error when asked for more results than stored
	if count := col.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		metadata := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			metadata[k] = v
		}
		hits = append(hits, SearchHit{
			ID:      r.ID,
			Score:   r.Similarity,
			Payload: metadata,
		})
	}
	return hits, nil
}

// Count returns the number of points in a collection.
func (p *ChromemProvider) Count(ctx context.Context, collection string) (uint64, error) {
	col, err := p.getCollection(collection)
	if err != nil {
		return 0, err
	}
	return uint64(col.Count()), nil
}

// Scroll returns up to limit points from the in-process cache.
func (p *ChromemProvider) Scroll(ctx context.Context, collection string, limit int) ([]Point, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	cached := p.points[collection]
	points := make([]Point, 0, len(cached))
	for _, point := range cached {
		if len(points) >= limit {
			break
		}
		points = append(points, point)
	}
	return points, nil
}

// Delete removes a point by ID.
func (p *ChromemProvider) Delete(ctx context.Context, collection string, id string) error {
	col, err := p.getCollection(collection)
	if err != nil {
		return err
	}

	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	p.mu.Lock()
	if cached, ok := p.points[collection]; ok {
		delete(cached, id)
	}
	p.mu.Unlock()

	if err := p.persist(); err != nil {
		slog.Warn("Failed to persist after delete", "error", err)
	}

	return nil
}

// Close persists the database and releases resources.
func (p *ChromemProvider) Close() error {
	return p.persist()
}

// persist saves the database to disk if persistence is enabled.
func (p *ChromemProvider) persist() error {
	if p.persistPath == "" {
		return nil
	}

	dbPath := chromemDBPath(p.persistPath, p.compress)

	//nolint:staticcheck // Using deprecated function for compatibility
	if err := p.db.Export(dbPath, p.compress, ""); err != nil {
		return fmt.Errorf("failed to persist database: %w", err)
	}

	return nil
}

func chromemDBPath(persistPath string, compress bool) string {
	dbPath := persistPath + "/vectors.gob"
	if compress {
		dbPath += ".gz"
	}
	return dbPath
}

// Ensure ChromemProvider implements Provider.
var _ Provider = (*ChromemProvider)(nil)
