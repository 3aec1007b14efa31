package rag

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/canopya/canopya/internal/metrics"
	"github.com/canopya/canopya/vector"
)

// BM25 Okapi parameters (standard defaults).
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

var tokenPattern = regexp.MustCompile(`\w+`)

// tokenize lower-cases and extracts word tokens. No stemming.
func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// LexicalIndex is an in-memory BM25 index over the knowledge base corpus.
//
// It is built once at startup from a bulk scroll of the vector store. A nil
// index is valid and returns no results: lexical search is an optional
// signal, and retrieval degrades to vector-only when the build failed.
type LexicalIndex struct {
	docs      []Document
	docTokens [][]string
	docLen    []int
	avgDocLen float64
	termFreq  []map[string]int
	docFreq   map[string]int
}

// BuildLexicalIndex scrolls the corpus out of the vector store and indexes
// it. Returns nil (with a warning) when the scroll fails or the corpus is
// empty; callers treat a nil index as "lexical signal unavailable".
func BuildLexicalIndex(ctx context.Context, store vector.Provider, collection string, limit int) *LexicalIndex {
	points, err := store.Scroll(ctx, collection, limit)
	if err != nil {
		slog.Warn("Failed to build lexical index, degrading to vector-only retrieval", "error", err)
		metrics.LexicalIndexDocuments.Set(0)
		return nil
	}
	if len(points) == 0 {
		slog.Warn("Lexical index corpus is empty, degrading to vector-only retrieval")
		metrics.LexicalIndexDocuments.Set(0)
		return nil
	}

	docs := make([]Document, 0, len(points))
	for _, p := range points {
		text, _ := p.Payload["text"].(string)
		doc := documentFromPayload(p.ID, 0, p.Payload)
		doc.Text = text
		docs = append(docs, doc)
	}

	idx := NewLexicalIndex(docs)
	slog.Info("Lexical index built", "documents", len(docs))
	metrics.LexicalIndexDocuments.Set(float64(len(docs)))
	return idx
}

// NewLexicalIndex indexes the given documents directly.
func NewLexicalIndex(docs []Document) *LexicalIndex {
	idx := &LexicalIndex{
		docs:      docs,
		docTokens: make([][]string, len(docs)),
		docLen:    make([]int, len(docs)),
		termFreq:  make([]map[string]int, len(docs)),
		docFreq:   make(map[string]int),
	}

	var totalLen int
	for i, doc := range docs {
		tokens := tokenize(doc.Text)
		idx.docTokens[i] = tokens
		idx.docLen[i] = len(tokens)
		totalLen += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		idx.termFreq[i] = tf
		for term := range tf {
			idx.docFreq[term]++
		}
	}
	if len(docs) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(docs))
	}
	return idx
}

// Size returns the number of indexed documents.
func (idx *LexicalIndex) Size() int {
	if idx == nil {
		return 0
	}
	return len(idx.docs)
}

// idf is the standard Okapi inverse document frequency with the +1 inside
// the log, which keeps scores non-negative for very common terms.
func (idx *LexicalIndex) idf(term string) float64 {
	n := float64(idx.docFreq[term])
	N := float64(len(idx.docs))
	return math.Log((N-n+0.5)/(n+0.5) + 1)
}

// Search ranks the corpus against the query and returns up to topK documents
// with strictly positive scores, ties broken by corpus order. A nil index
// returns nil.
func (idx *LexicalIndex) Search(query string, topK int) []Document {
	if idx == nil || len(idx.docs) == 0 || topK <= 0 {
		return nil
	}

	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	scores := make([]float64, len(idx.docs))
	for _, term := range queryTokens {
		if idx.docFreq[term] == 0 {
			continue
		}
		idf := idx.idf(term)
		for i := range idx.docs {
			tf := float64(idx.termFreq[i][term])
			if tf == 0 {
				continue
			}
			norm := bm25K1 * (1 - bm25B + bm25B*float64(idx.docLen[i])/idx.avgDocLen)
			scores[i] += idf * (tf * (bm25K1 + 1)) / (tf + norm)
		}
	}

	order := make([]int, len(idx.docs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	results := make([]Document, 0, topK)
	for _, i := range order {
		if len(results) >= topK {
			break
		}
		if scores[i] <= 0 {
			break
		}
		doc := idx.docs[i]
		doc.Score = scores[i]
		doc.RawScore = scores[i]
		doc.Method = "lexical"
		results = append(results, doc)
	}
	return results
}
