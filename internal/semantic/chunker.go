package semantic

import (
	"strings"
	"unicode"
)

// Chunker splits summarized content into pieces sized for embedding. It is
// sentence-aware so chunks stay semantically coherent, and it carries a
// small overlap between chunks to preserve context.
type Chunker struct {
	MaxChunkLen int // maximum chunk length in characters (default: 500)
	Overlap     int // overlap length in characters (default: 50)
}

// NewChunker returns a chunker with defaults matching the ingestion
// pipeline's embedding window.
func NewChunker() *Chunker {
	return &Chunker{MaxChunkLen: 500, Overlap: 50}
}

// Chunk splits content at sentence boundaries into chunks no longer than
// MaxChunkLen, each starting with up to Overlap characters of the previous
// chunk's tail. Whitespace-only content yields no chunks.
func (c *Chunker) Chunk(content string) []string {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if len(content) <= c.MaxChunkLen {
		return []string{content}
	}

	sentences := splitSentences(content)
	var chunks []string
	var current strings.Builder
	var tail []string // previous sentences eligible for overlap

	flush := func() {
		if strings.TrimSpace(current.String()) != "" {
			chunks = append(chunks, current.String())
		}
		current.Reset()
	}

	for _, sentence := range sentences {
		if current.Len()+len(sentence) > c.MaxChunkLen && current.Len() > 0 {
			flush()

			// Seed the new chunk with trailing sentences from the last one.
			overlapLen := 0
			start := len(tail)
			for i := len(tail) - 1; i >= 0; i-- {
				if overlapLen+len(tail[i]) > c.Overlap {
					break
				}
				overlapLen += len(tail[i])
				start = i
			}
			for i := start; i < len(tail); i++ {
				current.WriteString(tail[i])
			}
			tail = tail[start:]
		}

		// A single sentence longer than the window becomes its own chunk.
		if len(sentence) > c.MaxChunkLen {
			flush()
			chunks = append(chunks, sentence)
			tail = nil
			continue
		}

		current.WriteString(sentence)
		tail = append(tail, sentence)
		if len(tail) > 20 {
			tail = tail[len(tail)-20:]
		}
	}
	flush()

	return dedupe(chunks)
}

// splitSentences splits text on sentence terminators, keeping terminators
// and trailing whitespace with their sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		// Consume following whitespace; a boundary needs either end of
		// text or a space followed by the start of a new sentence, so
		// that decimals like "2.5" stay intact.
		start := i
		for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			i++
			current.WriteRune(runes[i])
		}
		sawSpace := i > start
		if i+1 >= len(runes) || (sawSpace && (unicode.IsUpper(runes[i+1]) || unicode.IsDigit(runes[i+1]))) {
			if strings.TrimSpace(current.String()) != "" {
				sentences = append(sentences, current.String())
			}
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		sentences = append(sentences, current.String())
	}
	return sentences
}

func dedupe(chunks []string) []string {
	seen := make(map[string]bool, len(chunks))
	result := chunks[:0]
	for _, chunk := range chunks {
		if !seen[chunk] {
			seen[chunk] = true
			result = append(result, chunk)
		}
	}
	return result
}
