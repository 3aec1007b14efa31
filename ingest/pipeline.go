package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/canopya/canopya/embedder"
	"github.com/canopya/canopya/vector"
)

// Config controls the ingestion pipeline.
type Config struct {
	Collection string `yaml:"collection"`
	ChunkSize  int    `yaml:"chunk_size"` // tokens
	Overlap    int    `yaml:"overlap"`    // tokens
	Workers    int    `yaml:"workers"`
	BatchSize  int    `yaml:"batch_size"` // passages per embedding call
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.Collection == "" {
		c.Collection = "aquaponics_knowledge"
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.Overlap == 0 {
		c.Overlap = defaultOverlap
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.BatchSize == 0 {
		c.BatchSize = 32
	}
}

// Stats summarizes one ingestion run.
type Stats struct {
	Files   int `json:"files"`
	Chunks  int `json:"chunks"`
	Skipped int `json:"skipped"` // files that failed to parse
}

// Pipeline parses, chunks, embeds, and stores source documents.
type Pipeline struct {
	store   vector.Provider
	embed   embedder.Embedder
	chunker *Chunker
	cfg     Config
}

// NewPipeline wires an ingestion pipeline.
func NewPipeline(store vector.Provider, embed embedder.Embedder, cfg Config) (*Pipeline, error) {
	cfg.SetDefaults()
	chunker, err := NewChunker(cfg.ChunkSize, cfg.Overlap)
	if err != nil {
		return nil, err
	}
	return &Pipeline{store: store, embed: embed, chunker: chunker, cfg: cfg}, nil
}

// CollectFiles expands the given paths into supported document files.
// Directories are walked recursively; explicit files are kept as given so a
// bad extension surfaces as a parse error instead of being silently dropped.
func CollectFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(p)) {
			case ".pdf", ".md", ".markdown", ".txt":
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// Run ingests the given document paths concurrently. Parse failures skip
// the file; embedding or storage failures abort the run.
func (p *Pipeline) Run(ctx context.Context, paths []string) (*Stats, error) {
	if err := p.store.CreateCollection(ctx, p.cfg.Collection, p.embed.Dimension()); err != nil {
		return nil, fmt.Errorf("failed to prepare collection: %w", err)
	}

	var mu sync.Mutex
	stats := &Stats{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for _, path := range paths {
		g.Go(func() error {
			chunks, err := p.ingestFile(ctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				slog.Warn("Skipping document", "path", path, "error", err)
				stats.Skipped++
				return nil
			}
			stats.Files++
			stats.Chunks += chunks
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Info("Ingestion complete",
		"files", stats.Files, "chunks", stats.Chunks, "skipped", stats.Skipped)
	return stats, nil
}

// ingestFile parses one document and upserts its chunks.
func (p *Pipeline) ingestFile(ctx context.Context, path string) (int, error) {
	doc, err := LoadFile(path)
	if err != nil {
		return 0, err
	}

	points := p.chunkDocument(doc)
	if len(points) == 0 {
		return 0, fmt.Errorf("no indexable content in %s", doc.File)
	}

	for start := 0; start < len(points); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(points))
		batch := points[start:end]

		texts := make([]string, len(batch))
		for i, pt := range batch {
			texts[i] = pt.Payload["text"].(string)
		}
		vectors, err := p.embed.EmbedPassages(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(batch))
		}
		for i := range batch {
			batch[i].Vector = vectors[i]
		}

		if err := p.store.Upsert(ctx, p.cfg.Collection, batch); err != nil {
			return 0, fmt.Errorf("failed to store chunks: %w", err)
		}
	}

	slog.Info("Document ingested", "file", doc.File, "pages", len(doc.Pages), "chunks", len(points))
	return len(points), nil
}

// chunkDocument splits every page into payload-bearing points. Vectors are
// filled in later by the embedding batches.
func (p *Pipeline) chunkDocument(doc *SourceDoc) []vector.Point {
	var points []vector.Point
	counter := 0
	stem := strings.TrimSuffix(doc.File, filepath.Ext(doc.File))

	for _, page := range doc.Pages {
		if len(page.Text) < minChunkChars/2 {
			continue
		}
		section := sectionTitle(page.Text)

		for _, text := range p.chunker.Split(page.Text) {
			if len(text) < minChunkChars {
				continue
			}
			points = append(points, vector.Point{
				ID: uuid.NewString(),
				Payload: map[string]any{
					"chunk_id":     fmt.Sprintf("%s_p%d_c%d", stem, page.Page, counter),
					"text":         text,
					"source_title": doc.Title,
					"source_file":  doc.File,
					"source":       doc.Source,
					"page":         page.Page,
					"section":      section,
					"images":       page.Images,
					"has_table":    hasTable(text),
					"type":         doc.Type,
				},
			})
			counter++
		}
	}
	return points
}
