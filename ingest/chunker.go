// Package ingest builds the knowledge base: it parses source documents,
// splits them into token-aware chunks with overlap, embeds the chunks, and
// upserts them into the vector store.
package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const (
	defaultChunkSize = 250 // tokens
	defaultOverlap   = 50  // tokens

	// Chunks shorter than this carry too little signal to index.
	minChunkChars = 100
)

// codec is the token boundary used for sizing and overlap slicing.
type codec interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenCodec struct {
	enc *tiktoken.Tiktoken
}

func (c tiktokenCodec) Encode(text string) []int {
	return c.enc.Encode(text, nil, nil)
}

func (c tiktokenCodec) Decode(tokens []int) string {
	return c.enc.Decode(tokens)
}

// Chunker splits document text into overlapping chunks, preferring
// paragraph boundaries and falling back to sentence boundaries when a
// single paragraph exceeds the chunk size.
type Chunker struct {
	codec     codec
	chunkSize int
	overlap   int
}

// NewChunker creates a chunker sized in cl100k_base tokens. Zero values
// pick the defaults.
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load token encoding: %w", err)
	}
	return newChunker(tiktokenCodec{enc: enc}, chunkSize, overlap), nil
}

func newChunker(c codec, chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap <= 0 || overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Chunker{codec: c, chunkSize: chunkSize, overlap: overlap}
}

func (c *Chunker) tokens(text string) int {
	return len(c.codec.Encode(text))
}

// tail returns the last overlap tokens of text, decoded back to a string.
func (c *Chunker) tail(text string) string {
	ids := c.codec.Encode(text)
	if len(ids) <= c.overlap {
		return text
	}
	return c.codec.Decode(ids[len(ids)-c.overlap:])
}

var paragraphSplit = regexp.MustCompile(`\n{2,}`)

// Split chunks text at paragraph boundaries, carrying an overlap tail from
// the previous chunk into the next one.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if c.tokens(text) <= c.chunkSize {
		return []string{text}
	}

	var chunks []string
	var current string

	for _, para := range paragraphSplit.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if current != "" && c.tokens(current)+c.tokens(para) > c.chunkSize {
			chunks = append(chunks, strings.TrimSpace(current))
			current = c.tail(current) + "\n\n" + para
			continue
		}

		if current == "" && c.tokens(para) > c.chunkSize {
			sub := c.splitSentences(para)
			if len(sub) > 0 {
				chunks = append(chunks, sub[:len(sub)-1]...)
				current = sub[len(sub)-1]
			}
			continue
		}

		if current == "" {
			current = para
		} else {
			current += "\n\n" + para
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}

// splitSentences chunks an oversized paragraph at sentence boundaries.
func (c *Chunker) splitSentences(text string) []string {
	var chunks []string
	var current string

	for _, sentence := range sentences(text) {
		if current != "" && c.tokens(current)+c.tokens(sentence) > c.chunkSize {
			chunks = append(chunks, strings.TrimSpace(current))
			current = c.tail(current) + " " + sentence
			continue
		}
		if current == "" && c.tokens(sentence) > c.chunkSize {
			// A single runaway sentence becomes its own chunk.
			chunks = append(chunks, strings.TrimSpace(sentence))
			continue
		}
		if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// sentences splits text after terminal punctuation, keeping the
// punctuation with the preceding sentence.
func sentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		// loc[0] is the punctuation mark; keep it.
		out = append(out, strings.TrimSpace(text[last:loc[0]+1]))
		last = loc[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
