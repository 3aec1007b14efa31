package rag

import "sort"

// rrfK is the reciprocal rank fusion constant from the original RRF paper.
// Larger values flatten the rank contribution curve.
const rrfK = 60

// fuseRanks combines a lexical and a vector result list with reciprocal
// rank fusion: each document accumulates 1/(k+rank) per list it appears in,
// rank starting at 1. The merged list is sorted by fused score descending,
// ties broken by first appearance (lexical list first).
func fuseRanks(lexical, vectorResults []Document) []Document {
	scores := make(map[string]float64)
	data := make(map[string]Document)
	var order []string

	accumulate := func(docs []Document) {
		for rank, doc := range docs {
			rrf := 1.0 / float64(rrfK+rank+1)
			if _, seen := scores[doc.ID]; !seen {
				data[doc.ID] = doc
				order = append(order, doc.ID)
			}
			scores[doc.ID] += rrf
		}
	}
	accumulate(lexical)
	accumulate(vectorResults)

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	results := make([]Document, 0, len(order))
	for _, id := range order {
		doc := data[id]
		doc.RawScore = scores[id]
		doc.Score = scores[id]
		doc.Method = "hybrid"
		results = append(results, doc)
	}
	return results
}

// rescaleScores maps fused scores into [0.5, 1.0] so they are comparable
// with raw cosine similarities downstream: score = 0.5 + (s/max)*0.5. The
// top result always lands on exactly 1.0. Preserves order. No-op on empty
// input or when every score is zero.
func rescaleScores(docs []Document) {
	var max float64
	for _, doc := range docs {
		if doc.RawScore > max {
			max = doc.RawScore
		}
	}
	if max <= 0 {
		return
	}
	for i := range docs {
		docs[i].Score = 0.5 + (docs[i].RawScore/max)*0.5
	}
}
