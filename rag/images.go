package rag

import (
	"sort"
	"strings"
)

// visualKeywords mark queries that likely benefit from a diagram or photo.
var visualKeywords = []string{"cara", "setup", "diagram", "gambar", "bentuk", "struktur", "sistem"}

// ImageScorer scores document images by query relevance.
//
// The heuristic is deliberately cheap: an image inherits its document's
// retrieval score, boosted when the query signals visual intent. A CLIP
// style image-text model would do better; see Select for the filter.
type ImageScorer struct {
	boost float64
}

// NewImageScorer creates a scorer with the default 1.2x visual-intent boost.
func NewImageScorer() *ImageScorer {
	return &ImageScorer{boost: 1.2}
}

// Score assigns each image the owning document's score, multiplied by the
// boost when the query contains a visual keyword, clamped to 1.0.
func (s *ImageScorer) Score(query string, images []string, docScore float64) []ScoredImage {
	if len(images) == 0 {
		return nil
	}

	score := docScore
	lower := strings.ToLower(query)
	for _, kw := range visualKeywords {
		if strings.Contains(lower, kw) {
			score *= s.boost
			break
		}
	}
	if score > 1.0 {
		score = 1.0
	}

	scored := make([]ScoredImage, len(images))
	for i, path := range images {
		scored[i] = ScoredImage{Path: path, Score: score, Source: "document"}
	}
	return scored
}

// SelectImages filters scored images by threshold and caps the count,
// sorted descending by score.
func SelectImages(images []ScoredImage, threshold float64, max int) []ScoredImage {
	relevant := make([]ScoredImage, 0, len(images))
	for _, img := range images {
		if img.Score >= threshold {
			relevant = append(relevant, img)
		}
	}
	sort.SliceStable(relevant, func(a, b int) bool {
		return relevant[a].Score > relevant[b].Score
	})
	if len(relevant) > max {
		relevant = relevant[:max]
	}
	return relevant
}
