// Package rag implements hybrid retrieval-augmented generation for the
// hydroponic knowledge base: query expansion, BM25 + vector search with
// reciprocal rank fusion, and confidence-gated answer generation with an
// ungrounded fallback path.
package rag

// Document is a retrieved knowledge base chunk with its metadata payload
// flattened into typed fields.
type Document struct {
	ID          string
	Text        string
	Score       float64
	RawScore    float64
	SourceTitle string
	SourceFile  string
	Source      string
	Page        int
	Section     string
	Images      []string
	HasTable    bool
	Type        string
	Method      string

	ScoredImages []ScoredImage
}

// ScoredImage is an image reference with its query-relevance score.
type ScoredImage struct {
	Path   string  `json:"path"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

// Message is one turn of conversation history, consumed read-only.
type Message struct {
	Role string `json:"role"`
	Text string `json:"message"`
}

// documentFromPayload maps a stored point payload onto a Document.
// Missing fields get the same defaults the ingest pipeline writes.
func documentFromPayload(id string, score float64, payload map[string]any) Document {
	doc := Document{
		ID:          id,
		Score:       score,
		RawScore:    score,
		SourceTitle: "Unknown",
		Type:        "unknown",
	}
	if payload == nil {
		return doc
	}
	if v, ok := payload["text"].(string); ok {
		doc.Text = v
	}
	if v, ok := payload["source_title"].(string); ok && v != "" {
		doc.SourceTitle = v
	}
	if v, ok := payload["source_file"].(string); ok {
		doc.SourceFile = v
	}
	if v, ok := payload["source"].(string); ok {
		doc.Source = v
	}
	if v, ok := payload["section"].(string); ok {
		doc.Section = v
	}
	if v, ok := payload["type"].(string); ok && v != "" {
		doc.Type = v
	}
	if v, ok := payload["has_table"].(bool); ok {
		doc.HasTable = v
	}
	doc.Page = payloadInt(payload["page"])
	doc.Images = payloadStrings(payload["images"])
	return doc
}

// payloadInt tolerates the numeric types JSON and payload codecs produce.
func payloadInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func payloadStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
