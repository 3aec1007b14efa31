package rag

import (
	"strings"
	"testing"
)

func TestExpander_KnownTerm(t *testing.T) {
	e := NewExpander()

	expanded := e.Expand("Berapa pH untuk NFT?")
	if expanded == "Berapa pH untuk NFT?" {
		t.Fatal("Expand() returned query unchanged, want synonyms appended")
	}
	if !strings.Contains(expanded, "keasaman") {
		t.Errorf("Expand() = %q, want it to contain %q", expanded, "keasaman")
	}
	if !strings.Contains(expanded, "nutrient film technique") {
		t.Errorf("Expand() = %q, want it to contain %q", expanded, "nutrient film technique")
	}
	if !strings.HasPrefix(expanded, "Berapa pH untuk NFT?") {
		t.Errorf("Expand() = %q, want original query preserved as prefix", expanded)
	}
}

func TestExpander_UnknownTermUnchanged(t *testing.T) {
	e := NewExpander()

	if got := e.Expand("xyz123"); got != "xyz123" {
		t.Errorf("Expand(xyz123) = %q, want unchanged", got)
	}
}

func TestExpander_StopwordsSkipped(t *testing.T) {
	e := NewExpander()

	// "untuk" and "yang" are stopwords; neither appears in the dictionary
	// anyway, so the whole query must pass through unchanged.
	if got := e.Expand("untuk yang dari"); got != "untuk yang dari" {
		t.Errorf("Expand() = %q, want unchanged", got)
	}
}

func TestExpander_PunctuationTrimmed(t *testing.T) {
	e := NewExpander()

	expanded := e.Expand("kenapa selada kuning?")
	if !strings.Contains(expanded, "yellowing") {
		t.Errorf("Expand() = %q, want %q despite trailing punctuation", expanded, "yellowing")
	}
	if !strings.Contains(expanded, "lettuce") {
		t.Errorf("Expand() = %q, want %q", expanded, "lettuce")
	}
}

func TestExpander_MaxThreeSynonymsPerTerm(t *testing.T) {
	e := NewExpander()

	// "ph" has 4 synonyms; only the first 3 may be appended.
	expanded := e.Expand("ph")
	if strings.Contains(expanded, "derajat keasaman") {
		t.Errorf("Expand() = %q, includes 4th synonym beyond the cap", expanded)
	}
	if !strings.Contains(expanded, "tingkat keasaman") {
		t.Errorf("Expand() = %q, missing 3rd synonym", expanded)
	}
}

func TestExpander_DeduplicatesExpansions(t *testing.T) {
	e := NewExpander()

	expanded := e.Expand("ph ph ph")
	if strings.Count(expanded, "keasaman") != 2 {
		// "keasaman" appears once standalone and once inside "tingkat keasaman"
		t.Errorf("Expand() = %q, duplicate synonyms not deduplicated", expanded)
	}
}

func TestExpander_AddSynonym(t *testing.T) {
	e := NewExpander()
	e.AddSynonym("Rockwool", []string{"rockwool", "Media Tanam", "substrate"})

	expanded := e.Expand("apa itu rockwool")
	if !strings.Contains(expanded, "media tanam") {
		t.Errorf("Expand() = %q, want lower-cased custom synonym", expanded)
	}
}
