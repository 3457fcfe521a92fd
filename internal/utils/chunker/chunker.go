// Package chunker splits long text into overlapping fixed-size windows prior
// to embedding. Overlap exists so that concepts spanning a window boundary
// are not lost from the embedding index.
package chunker

import "strings"

const (
	DefaultChunkSize = 600
	DefaultOverlap   = 50
)

var sentenceBreaks = []string{". ", ".\n", "! ", "!\n", "? ", "?\n"}

// Chunk splits text into windows of roughly size characters with overlap
// characters shared between consecutive windows, preferring to break at
// sentence endings, then newlines, then spaces.
func Chunk(text string, size, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
	}

	if len(text) <= size {
		return []string{strings.TrimSpace(text)}
	}

	var chunks []string
	start := 0

	for start < len(text) {
		end := start + size

		if end >= len(text) {
			if c := strings.TrimSpace(text[start:]); c != "" {
				chunks = append(chunks, c)
			}
			break
		}

		breakPoint := end

		for _, punct := range sentenceBreaks {
			if i := strings.LastIndex(text[start:end], punct); i != -1 {
				breakPoint = start + i + len(punct)
				break
			}
		}
		if breakPoint == end {
			if i := strings.LastIndex(text[start:end], "\n"); i != -1 {
				breakPoint = start + i + 1
			}
		}
		if breakPoint == end {
			if i := strings.LastIndex(text[start:end], " "); i != -1 {
				breakPoint = start + i + 1
			}
		}

		if c := strings.TrimSpace(text[start:breakPoint]); c != "" {
			chunks = append(chunks, c)
		}

		// Rewind for overlap, but always make forward progress even when
		// the break point landed close to the window start.
		next := breakPoint - overlap
		if next <= start {
			next = breakPoint
		}
		start = next
	}

	return chunks
}
