package ingest

import (
	"strings"
	"testing"
)

// runeCodec counts runes as tokens, keeping chunk tests deterministic and
// offline.
type runeCodec struct{}

func (runeCodec) Encode(text string) []int {
	runes := []rune(text)
	ids := make([]int, len(runes))
	for i, r := range runes {
		ids[i] = int(r)
	}
	return ids
}

func (runeCodec) Decode(ids []int) string {
	runes := make([]rune, len(ids))
	for i, id := range ids {
		runes[i] = rune(id)
	}
	return string(runes)
}

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	c := newChunker(runeCodec{}, 100, 20)
	chunks := c.Split("pH ideal untuk selada adalah 5.5 sampai 6.5.")
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
}

func TestChunker_SplitsAtParagraphs(t *testing.T) {
	c := newChunker(runeCodec{}, 80, 20)
	text := strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 60) + "\n\n" + strings.Repeat("d", 60)

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("len(chunks) = %d, want >= 2", len(chunks))
	}
	for i, chunk := range chunks {
		if got := len([]rune(chunk)); got > 80+20+2 {
			t.Errorf("chunk %d length = %d, want bounded by size plus overlap", i, got)
		}
	}
}

func TestChunker_CarriesOverlap(t *testing.T) {
	c := newChunker(runeCodec{}, 80, 20)
	first := strings.Repeat("a", 60)
	text := first + "\n\n" + strings.Repeat("b", 60)

	chunks := c.Split(text)
	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(chunks))
	}
	// Second chunk starts with the tail of the first.
	if !strings.HasPrefix(chunks[1], strings.Repeat("a", 20)) {
		t.Errorf("chunk 2 = %q, want overlap prefix from chunk 1", chunks[1][:30])
	}
}

func TestChunker_OversizedParagraphSplitsAtSentences(t *testing.T) {
	c := newChunker(runeCodec{}, 60, 10)
	text := "Kalimat pertama tentang pH. Kalimat kedua tentang nutrisi TDS. Kalimat ketiga tentang suhu air kolam."

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("len(chunks) = %d, want sentence-level split", len(chunks))
	}
	if !strings.HasPrefix(chunks[0], "Kalimat pertama") {
		t.Errorf("chunk 1 = %q, want first sentence kept intact", chunks[0])
	}
}

func TestChunker_EmptyText(t *testing.T) {
	c := newChunker(runeCodec{}, 80, 20)
	if chunks := c.Split("   \n\n  "); chunks != nil {
		t.Errorf("Split() = %v, want nil for blank text", chunks)
	}
}

func TestSentences(t *testing.T) {
	got := sentences("Satu. Dua! Tiga? Empat tanpa akhir")
	want := []string{"Satu.", "Dua!", "Tiga?", "Empat tanpa akhir"}
	if len(got) != len(want) {
		t.Fatalf("sentences() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentences()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewChunkerDefaults(t *testing.T) {
	c := newChunker(runeCodec{}, 0, 0)
	if c.chunkSize != defaultChunkSize {
		t.Errorf("chunkSize = %d, want %d", c.chunkSize, defaultChunkSize)
	}
	if c.overlap <= 0 || c.overlap >= c.chunkSize {
		t.Errorf("overlap = %d, want within (0, chunkSize)", c.overlap)
	}
}
