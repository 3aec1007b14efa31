package rag

import (
	"math"
	"testing"
)

func TestImageScorer_BaseScore(t *testing.T) {
	s := NewImageScorer()

	scored := s.Score("berapa pH ideal", []string{"img/ph-chart.png"}, 0.8)
	if len(scored) != 1 {
		t.Fatalf("Score() = %d images, want 1", len(scored))
	}
	if scored[0].Score != 0.8 {
		t.Errorf("Score() = %f, want document score 0.8", scored[0].Score)
	}
}

func TestImageScorer_VisualKeywordBoost(t *testing.T) {
	s := NewImageScorer()

	scored := s.Score("cara setup sistem NFT", []string{"img/nft-diagram.png"}, 0.6)
	want := 0.6 * 1.2
	if math.Abs(scored[0].Score-want) > 1e-9 {
		t.Errorf("Score() = %f, want boosted %f", scored[0].Score, want)
	}
}

func TestImageScorer_ClampAtOne(t *testing.T) {
	s := NewImageScorer()

	scored := s.Score("diagram sistem", []string{"img/a.png"}, 0.95)
	if scored[0].Score != 1.0 {
		t.Errorf("Score() = %f, want clamped to 1.0", scored[0].Score)
	}
}

func TestImageScorer_NoImages(t *testing.T) {
	s := NewImageScorer()

	if scored := s.Score("apa itu NFT", nil, 0.9); scored != nil {
		t.Errorf("Score() = %v, want nil for no images", scored)
	}
}

func TestSelectImages_ThresholdAndCap(t *testing.T) {
	images := []ScoredImage{
		{Path: "a.png", Score: 0.9},
		{Path: "b.png", Score: 0.65},
		{Path: "c.png", Score: 0.75},
		{Path: "d.png", Score: 1.0},
		{Path: "e.png", Score: 0.8},
	}

	selected := SelectImages(images, 0.7, 3)
	if len(selected) != 3 {
		t.Fatalf("SelectImages() = %d images, want 3 (cap)", len(selected))
	}
	if selected[0].Path != "d.png" || selected[1].Path != "a.png" || selected[2].Path != "e.png" {
		t.Errorf("SelectImages() order = %s, %s, %s, want d, a, e",
			selected[0].Path, selected[1].Path, selected[2].Path)
	}
	for _, img := range selected {
		if img.Score < 0.7 {
			t.Errorf("SelectImages() kept %s with score %f below threshold", img.Path, img.Score)
		}
	}
}
