package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/canopya/canopya/embedder"
	"github.com/canopya/canopya/internal/metrics"
	"github.com/canopya/canopya/vector"
)

// Retriever runs hybrid retrieval over the knowledge base: query expansion,
// then lexical and vector search fused by reciprocal rank. When the lexical
// index is unavailable it silently degrades to vector-only search.
type Retriever struct {
	store      vector.Provider
	embed      embedder.Embedder
	lexical    *LexicalIndex
	expander   *Expander
	collection string
	scorer     *ImageScorer
	expansion  bool
}

// NewRetriever creates a hybrid retriever. lexical may be nil for
// vector-only operation, expander may be nil to disable expansion.
func NewRetriever(store vector.Provider, embed embedder.Embedder, lexical *LexicalIndex, expander *Expander, collection string) *Retriever {
	return &Retriever{
		store:      store,
		embed:      embed,
		lexical:    lexical,
		expander:   expander,
		collection: collection,
		scorer:     NewImageScorer(),
		expansion:  expander != nil,
	}
}

// Retrieve returns the topK most relevant documents for the query.
//
// Conversation history, when present, is condensed (last 3 turns) and
// prepended to the query before expansion so follow-up questions carry
// their referent into both sub-searches.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, history []Message) ([]Document, error) {
	start := time.Now()

	enriched := enrichWithHistory(query, history)
	if r.expansion {
		expanded := r.expander.Expand(enriched)
		if expanded != enriched {
			slog.Debug("Query expanded", "query", query, "expanded", expanded)
		}
		enriched = expanded
	}

	mode := "hybrid"
	var docs []Document
	var err error
	if r.lexical.Size() > 0 {
		docs, err = r.hybridSearch(ctx, enriched, topK)
	} else {
		mode = "vector"
		docs, err = r.vectorSearch(ctx, enriched, topK)
	}
	if err != nil {
		return nil, err
	}

	for i := range docs {
		docs[i].ScoredImages = r.scorer.Score(query, docs[i].Images, docs[i].Score)
	}

	metrics.RetrievalDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	slog.Info("Retrieved documents", "mode", mode, "count", len(docs), "query", query)
	return docs, nil
}

// hybridSearch runs both sub-searches over a 2x candidate pool and fuses.
func (r *Retriever) hybridSearch(ctx context.Context, query string, topK int) ([]Document, error) {
	lexicalResults := r.lexical.Search(query, topK*2)

	vectorResults, err := r.vectorSearch(ctx, query, topK*2)
	if err != nil {
		return nil, err
	}

	fused := fuseRanks(lexicalResults, vectorResults)
	rescaleScores(fused)
	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}

// vectorSearch embeds the query and searches the vector store.
func (r *Retriever) vectorSearch(ctx context.Context, query string, topK int) ([]Document, error) {
	vec, err := r.embed.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := r.store.Search(ctx, r.collection, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	docs := make([]Document, 0, len(hits))
	for _, hit := range hits {
		doc := documentFromPayload(hit.ID, float64(hit.Score), hit.Payload)
		doc.Method = "vector"
		docs = append(docs, doc)
	}
	return docs, nil
}

// enrichWithHistory prepends the last 3 turns as "role: text" pairs.
func enrichWithHistory(query string, history []Message) string {
	if len(history) == 0 {
		return query
	}
	recent := history
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	parts := make([]string, 0, len(recent))
	for _, msg := range recent {
		role := msg.Role
		if role == "" {
			role = "user"
		}
		parts = append(parts, role+": "+msg.Text)
	}
	return strings.Join(parts, " ") + " " + query
}
