package rag

import "testing"

func lexicalCorpus() []Document {
	return []Document{
		{ID: "1", Text: "pH ideal untuk sistem NFT adalah 5.5 sampai 6.5", SourceTitle: "Panduan NFT"},
		{ID: "2", Text: "Selada tumbuh baik dengan nutrisi AB mix dan EC 1.2", SourceTitle: "Panduan Selada"},
		{ID: "3", Text: "Kangkung butuh air bersih dan cahaya penuh", SourceTitle: "Panduan Kangkung"},
		{ID: "4", Text: "pH air baku perlu dicek sebelum mencampur nutrisi", SourceTitle: "Kualitas Air"},
	}
}

func TestLexicalIndex_RanksMatchingDocuments(t *testing.T) {
	idx := NewLexicalIndex(lexicalCorpus())

	results := idx.Search("pH NFT", 10)
	if len(results) == 0 {
		t.Fatal("Search() returned no results, want matches for pH NFT")
	}
	if results[0].ID != "1" {
		t.Errorf("Search() top result ID = %s, want 1 (matches both terms)", results[0].ID)
	}
	for _, doc := range results {
		if doc.Score <= 0 {
			t.Errorf("Search() returned doc %s with score %f, want strictly positive", doc.ID, doc.Score)
		}
		if doc.Method != "lexical" {
			t.Errorf("Search() doc method = %q, want lexical", doc.Method)
		}
	}
}

func TestLexicalIndex_NoMatchesIsEmpty(t *testing.T) {
	idx := NewLexicalIndex(lexicalCorpus())

	if results := idx.Search("aeroponik vertikal", 10); len(results) != 0 {
		t.Errorf("Search() = %d results for unindexed terms, want 0", len(results))
	}
}

func TestLexicalIndex_RespectsTopK(t *testing.T) {
	idx := NewLexicalIndex(lexicalCorpus())

	if results := idx.Search("pH nutrisi selada air", 2); len(results) > 2 {
		t.Errorf("Search() = %d results, want at most 2", len(results))
	}
}

func TestLexicalIndex_NilIndexDegradesToEmpty(t *testing.T) {
	var idx *LexicalIndex

	if results := idx.Search("pH NFT", 5); results != nil {
		t.Errorf("nil index Search() = %v, want nil", results)
	}
	if idx.Size() != 0 {
		t.Errorf("nil index Size() = %d, want 0", idx.Size())
	}
}

func TestLexicalIndex_TokenizationIsCaseInsensitive(t *testing.T) {
	idx := NewLexicalIndex(lexicalCorpus())

	upper := idx.Search("PH NFT", 10)
	lower := idx.Search("ph nft", 10)
	if len(upper) != len(lower) {
		t.Fatalf("case-sensitive tokenization: %d vs %d results", len(upper), len(lower))
	}
	for i := range upper {
		if upper[i].ID != lower[i].ID {
			t.Errorf("result %d differs by case: %s vs %s", i, upper[i].ID, lower[i].ID)
		}
	}
}
