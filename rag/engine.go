package rag

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/canopya/canopya/internal/metrics"
	"github.com/canopya/canopya/llm"
)

// Config tunes the generation pipeline. The confidence and image thresholds
// are operational knobs, not derived constants.
type Config struct {
	// TopK is the number of documents retrieved per query (default: 5).
	TopK int `yaml:"top_k,omitempty"`

	// Language selects the prompt set, "id" or "en" (default: id).
	Language string `yaml:"language,omitempty"`

	// ContextDocs is how many retrieved documents enter the prompt
	// (default: 2, narrower than TopK to bound prompt size).
	ContextDocs int `yaml:"context_docs,omitempty"`

	// LowConfidence is the fallback trigger threshold (default: 0.5).
	LowConfidence float64 `yaml:"low_confidence,omitempty"`

	// ImageThreshold filters scored images (default: 0.7).
	ImageThreshold float64 `yaml:"image_threshold,omitempty"`

	// MaxImages caps attached images (default: 3).
	MaxImages int `yaml:"max_images,omitempty"`

	// GroundedTemperature for context-constrained generation (default: 0.3).
	GroundedTemperature float64 `yaml:"grounded_temperature,omitempty"`

	// FallbackTemperature for ungrounded generation (default: 0.7).
	FallbackTemperature float64 `yaml:"fallback_temperature,omitempty"`

	// TopP nucleus sampling cutoff for both paths (default: 0.9).
	TopP float64 `yaml:"top_p,omitempty"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.Language == "" {
		c.Language = "id"
	}
	if c.ContextDocs == 0 {
		c.ContextDocs = 2
	}
	if c.LowConfidence == 0 {
		c.LowConfidence = 0.5
	}
	if c.ImageThreshold == 0 {
		c.ImageThreshold = 0.7
	}
	if c.MaxImages == 0 {
		c.MaxImages = 3
	}
	if c.GroundedTemperature == 0 {
		c.GroundedTemperature = 0.3
	}
	if c.FallbackTemperature == 0 {
		c.FallbackTemperature = 0.7
	}
	if c.TopP == 0 {
		c.TopP = 0.9
	}
}

// Result is the answer contract consumed by the chat dispatcher and the
// HTTP layer.
type Result struct {
	Answer           string    `json:"answer"`
	Sources          []string  `json:"sources"`
	Confidence       float64   `json:"confidence"`
	NumSources       int       `json:"num_sources"`
	HasVisualSupport bool      `json:"has_visual_support"`
	Pages            []int     `json:"pages"`
	UsedFallback     bool      `json:"used_fallback"`
	Images           []string  `json:"images"`
	ImageScores      []float64 `json:"image_scores"`
	NumImages        int       `json:"num_images"`
	QueryID          string    `json:"query_id,omitempty"`
}

// Trace is the per-query retrieval+generation record handed to a Recorder.
type Trace struct {
	Query     string
	Answer    string
	Intent    string
	UserID    string
	NumDocs   int
	AvgScore  float64
	Documents []Document
}

// Recorder persists query traces for later inspection. Failures are logged
// and never fail the query.
type Recorder interface {
	Record(ctx context.Context, trace Trace) (string, error)
}

// Engine is the complete pipeline: retrieve, generate grounded, fall back
// to general knowledge when the grounded answer cannot be trusted.
type Engine struct {
	cfg       Config
	retriever *Retriever
	generator llm.Generator
	recorder  Recorder
}

// NewEngine wires the pipeline. recorder may be nil.
func NewEngine(cfg Config, retriever *Retriever, generator llm.Generator, recorder Recorder) *Engine {
	cfg.SetDefaults()
	return &Engine{
		cfg:       cfg,
		retriever: retriever,
		generator: generator,
		recorder:  recorder,
	}
}

// Retrieve exposes the underlying retriever with the configured top-k.
func (e *Engine) Retrieve(ctx context.Context, query string, history []Message) ([]Document, error) {
	return e.retriever.Retrieve(ctx, query, e.cfg.TopK, history)
}

// Generate produces an answer from retrieved context.
//
// The grounded answer is kept when confidence clears the threshold and the
// text is not an apology. Otherwise a second, ungrounded call replaces it,
// with sources and pages zeroed out: citations must never be attached to an
// answer that is not grounded in them. Images stay either way, they came
// from real retrieved documents. A failed fallback call degrades to the
// grounded answer, never to an error.
func (e *Engine) Generate(ctx context.Context, query string, docs []Document, history []Message) (*Result, error) {
	contextDocs := docs
	if len(contextDocs) > e.cfg.ContextDocs {
		contextDocs = contextDocs[:e.cfg.ContextDocs]
	}

	var allImages []ScoredImage
	for _, doc := range contextDocs {
		allImages = append(allImages, doc.ScoredImages...)
	}
	images := SelectImages(allImages, e.cfg.ImageThreshold, e.cfg.MaxImages)

	prompt := buildGroundedPrompt(query, e.cfg.Language, contextDocs, images, history)

	start := time.Now()
	genResult, err := e.generator.Generate(ctx, prompt, llm.Options{
		Temperature: e.cfg.GroundedTemperature,
		TopP:        e.cfg.TopP,
	})
	if err != nil {
		return nil, err
	}
	slog.Debug("Grounded generation complete", "duration", time.Since(start))

	answer := StripMarkdown(strings.TrimSpace(genResult.Text))

	var confidence float64
	if len(contextDocs) > 0 {
		var sum float64
		for _, doc := range contextDocs {
			sum += doc.Score
		}
		confidence = sum / float64(e.cfg.ContextDocs)
	}

	lowConfidence := confidence < e.cfg.LowConfidence || len(contextDocs) == 0
	apology := isApology(answer, e.cfg.Language)

	usedFallback := false
	if lowConfidence || apology {
		trigger := "low_confidence"
		switch {
		case len(contextDocs) == 0:
			trigger = "no_documents"
		case apology:
			trigger = "apology"
		}
		slog.Info("Grounded answer not trusted, generating fallback",
			"confidence", confidence, "trigger", trigger)

		fallback := e.generateFallback(ctx, query)
		if fallback != "" {
			answer = fallback
			usedFallback = true
			metrics.FallbackGenerations.WithLabelValues(trigger).Inc()
		}
	}

	result := &Result{
		Answer:           answer,
		Sources:          []string{},
		Confidence:       confidence,
		Pages:            []int{},
		UsedFallback:     usedFallback,
		HasVisualSupport: len(images) > 0,
		Images:           []string{},
		ImageScores:      []float64{},
	}
	if !usedFallback {
		for _, doc := range contextDocs {
			result.Sources = append(result.Sources, doc.SourceTitle)
			if doc.Page > 0 {
				result.Pages = append(result.Pages, doc.Page)
			}
		}
		result.NumSources = len(docs)
	}
	for _, img := range images {
		result.Images = append(result.Images, img.Path)
		result.ImageScores = append(result.ImageScores, img.Score)
	}
	result.NumImages = len(images)
	return result, nil
}

// generateFallback runs the ungrounded general-knowledge call. Returns ""
// when generation failed or produced nothing.
func (e *Engine) generateFallback(ctx context.Context, query string) string {
	prompt := buildFallbackPrompt(query, e.cfg.Language)
	genResult, err := e.generator.Generate(ctx, prompt, llm.Options{
		Temperature: e.cfg.FallbackTemperature,
		TopP:        e.cfg.TopP,
	})
	if err != nil {
		slog.Error("Fallback generation failed, keeping grounded answer", "error", err)
		return ""
	}
	return StripMarkdown(strings.TrimSpace(genResult.Text))
}

// isApology detects the language-specific non-answer lead-in. A prefix
// check only; rephrased non-answers slip through, a known gap.
func isApology(answer, language string) bool {
	lower := strings.ToLower(answer)
	if language == "en" {
		return strings.HasPrefix(lower, "sorry")
	}
	return strings.HasPrefix(lower, "maaf")
}

// Query is the complete pipeline for one user turn.
func (e *Engine) Query(ctx context.Context, query string, history []Message, userID string) (*Result, error) {
	docs, err := e.Retrieve(ctx, query, history)
	if err != nil {
		return nil, err
	}

	result, err := e.Generate(ctx, query, docs, history)
	if err != nil {
		return nil, err
	}

	if e.recorder != nil {
		var sum float64
		for _, doc := range docs {
			sum += doc.Score
		}
		avg := 0.0
		if len(docs) > 0 {
			avg = sum / float64(len(docs))
		}
		queryID, err := e.recorder.Record(ctx, Trace{
			Query:     query,
			Answer:    result.Answer,
			Intent:    "rag",
			UserID:    userID,
			NumDocs:   len(docs),
			AvgScore:  avg,
			Documents: docs,
		})
		if err != nil {
			slog.Warn("Failed to record query trace", "error", err)
		} else {
			result.QueryID = queryID
		}
	}

	return result, nil
}
