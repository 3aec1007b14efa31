package rag

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultSynonyms is the hydroponics domain dictionary. Keys are exact-match
// query terms; values are the synonym lists appended on expansion.
var defaultSynonyms = map[string][]string{
	// Hydroponic systems
	"nft":  {"nft", "nutrient film technique", "film nutrisi", "sistem nft"},
	"dft":  {"dft", "deep flow technique", "deep water culture", "dwc"},
	"wick": {"wick", "sistem sumbu", "sumbu"},
	"drip": {"drip", "tetes", "sistem tetes", "drip irrigation"},

	// Parameters
	"ph":  {"ph", "keasaman", "tingkat keasaman", "derajat keasaman"},
	"ec":  {"ec", "electrical conductivity", "konduktivitas", "tds"},
	"ppm": {"ppm", "parts per million", "kepekatan"},

	// Nutrients
	"nutrisi":  {"nutrisi", "pupuk", "hara", "unsur hara", "larutan nutrisi"},
	"nitrogen": {"nitrogen", "n", "unsur n"},
	"fosfor":   {"fosfor", "p", "phosphorus", "unsur p"},
	"kalium":   {"kalium", "k", "potassium", "unsur k"},
	"npk":      {"npk", "nitrogen fosfor kalium"},

	// Crops
	"selada":   {"selada", "lettuce", "salad"},
	"kangkung": {"kangkung", "water spinach", "kangkong"},
	"bayam":    {"bayam", "spinach"},
	"tomat":    {"tomat", "tomato"},
	"cabai":    {"cabai", "chili", "cabe", "pepper"},

	// Problems
	"busuk":    {"busuk", "rot", "pembusukan", "decay"},
	"layu":     {"layu", "wilt", "wilting", "kering"},
	"kuning":   {"kuning", "yellow", "yellowing", "klorosis", "chlorosis"},
	"hama":     {"hama", "pest", "serangga"},
	"penyakit": {"penyakit", "disease", "sakit"},

	// Action words
	"cara":  {"cara", "bagaimana", "how", "metode", "langkah"},
	"atur":  {"atur", "setting", "adjust", "kontrol", "maintain"},
	"jaga":  {"jaga", "maintain", "keep", "pertahankan"},
	"atasi": {"atasi", "solve", "fix", "perbaiki", "handle"},
}

// defaultStopwords are never expanded (Indonesian + English function words).
var defaultStopwords = map[string]struct{}{
	"yang": {}, "untuk": {}, "dari": {}, "di": {}, "ke": {}, "pada": {},
	"dengan": {}, "adalah": {},
	"the": {}, "a": {}, "an": {}, "in": {}, "on": {}, "at": {}, "to": {},
	"for": {}, "of": {}, "and": {},
}

// Expander rewrites queries by appending domain synonyms for exact-match
// terms. Stateless after construction and deterministic for a given table.
//
// Expansion is not idempotent: expanding an already-expanded query may add
// more terms, so callers expand exactly once per raw query.
type Expander struct {
	synonyms      map[string][]string
	stopwords     map[string]struct{}
	maxExpansions int
}

// NewExpander creates an expander with the built-in domain dictionary.
func NewExpander() *Expander {
	return &Expander{
		synonyms:      defaultSynonyms,
		stopwords:     defaultStopwords,
		maxExpansions: 3,
	}
}

// NewExpanderFromFile loads a YAML synonym table (term -> [synonyms]) and
// merges it over the built-in dictionary.
func NewExpanderFromFile(path string) (*Expander, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read synonym file: %w", err)
	}

	var custom map[string][]string
	if err := yaml.Unmarshal(data, &custom); err != nil {
		return nil, fmt.Errorf("failed to parse synonym file: %w", err)
	}

	e := NewExpander()
	merged := make(map[string][]string, len(e.synonyms)+len(custom))
	for term, syns := range e.synonyms {
		merged[term] = syns
	}
	e.synonyms = merged
	for term, syns := range custom {
		e.AddSynonym(term, syns)
	}
	return e, nil
}

// Expand appends up to maxExpansions synonyms per recognized term.
// Stopwords are skipped, matching is exact after punctuation trimming, and
// duplicate synonyms are emitted once in first-seen order. Queries with no
// recognized term pass through unchanged.
func (e *Expander) Expand(query string) string {
	words := strings.Fields(strings.ToLower(query))

	var expansions []string
	seen := make(map[string]struct{})

	for _, word := range words {
		if _, stop := e.stopwords[word]; stop {
			continue
		}
		clean := strings.Trim(word, ".,!?;:")
		syns, ok := e.synonyms[clean]
		if !ok {
			continue
		}
		limit := e.maxExpansions
		if limit > len(syns) {
			limit = len(syns)
		}
		for _, syn := range syns[:limit] {
			if _, dup := seen[syn]; dup {
				continue
			}
			seen[syn] = struct{}{}
			expansions = append(expansions, syn)
		}
	}

	if len(expansions) == 0 {
		return query
	}
	return query + " " + strings.Join(expansions, " ")
}

// AddSynonym registers a custom synonym mapping, lower-casing everything.
func (e *Expander) AddSynonym(term string, synonyms []string) {
	lowered := make([]string, len(synonyms))
	for i, s := range synonyms {
		lowered[i] = strings.ToLower(s)
	}
	e.synonyms[strings.ToLower(term)] = lowered
}
