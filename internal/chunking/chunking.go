// Package chunking splits OCR'd page text into embedding-sized pieces,
// preferring sentence boundaries over hard word cuts.
package chunking

import (
	"strings"

	"github.com/neurosnap/sentences/english"
)

const (
	// DefaultMaxTokens defines a reasonable default if not provided.
	DefaultMaxTokens = 200
	// DefaultOverlap defines a reasonable default if not provided.
	DefaultOverlap = 50
)

// Chunk is one piece of text with its position in the generated sequence.
type Chunk struct {
	Text  string
	Index int
}

// estimateTokens provides a basic word count estimation.
func estimateTokens(text string) int {
	return len(strings.Fields(text))
}

// SplitText splits text into chunks of at most maxTokens estimated tokens,
// carrying roughly overlap tokens of trailing context into the next chunk.
// Sentence boundaries are respected where the tokenizer finds them; text
// with no sentence structure falls back to a plain word-window split.
func SplitText(text string, maxTokens, overlap int) []Chunk {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlap < 0 || overlap >= maxTokens {
		overlap = DefaultOverlap
		if overlap >= maxTokens {
			overlap = maxTokens / 4
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if estimateTokens(text) <= maxTokens {
		return []Chunk{{Text: text, Index: 0}}
	}

	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return splitByWords(text, maxTokens, overlap)
	}
	sents := tokenizer.Tokenize(text)
	if len(sents) <= 1 {
		return splitByWords(text, maxTokens, overlap)
	}

	var chunks []Chunk
	var current []string
	currentTokens := 0
	flush := func() {
		if len(current) == 0 {
			return
		}
		chunkText := strings.TrimSpace(strings.Join(current, " "))
		chunks = append(chunks, Chunk{Text: chunkText, Index: len(chunks)})
		current, currentTokens = carryOverlap(current, overlap)
	}

	for _, s := range sents {
		sentence := strings.TrimSpace(s.Text)
		if sentence == "" {
			continue
		}
		n := estimateTokens(sentence)
		if n > maxTokens {
			// A single oversized sentence gets word-split on its own.
			flush()
			for _, c := range splitByWords(sentence, maxTokens, overlap) {
				chunks = append(chunks, Chunk{Text: c.Text, Index: len(chunks)})
			}
			current, currentTokens = nil, 0
			continue
		}
		if currentTokens+n > maxTokens {
			flush()
		}
		current = append(current, sentence)
		currentTokens += n
	}
	if len(current) > 0 {
		chunkText := strings.TrimSpace(strings.Join(current, " "))
		// The overlap carried into a final chunk can duplicate the previous
		// chunk's tail without adding new text; drop it in that case.
		if len(chunks) == 0 || !strings.HasSuffix(chunks[len(chunks)-1].Text, chunkText) {
			chunks = append(chunks, Chunk{Text: chunkText, Index: len(chunks)})
		}
	}
	return chunks
}

// carryOverlap keeps trailing sentences from the flushed chunk worth about
// overlap tokens as the seed of the next chunk.
func carryOverlap(sents []string, overlap int) ([]string, int) {
	if overlap <= 0 {
		return nil, 0
	}
	var kept []string
	tokens := 0
	for i := len(sents) - 1; i >= 0; i-- {
		n := estimateTokens(sents[i])
		if tokens+n > overlap {
			break
		}
		kept = append([]string{sents[i]}, kept...)
		tokens += n
	}
	return kept, tokens
}

func splitByWords(text string, maxTokens, overlap int) []Chunk {
	words := strings.Fields(text)
	var chunks []Chunk
	step := maxTokens - overlap
	if step <= 0 {
		step = maxTokens
	}
	for start := 0; start < len(words); start += step {
		end := start + maxTokens
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, Chunk{
			Text:  strings.Join(words[start:end], " "),
			Index: len(chunks),
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}
