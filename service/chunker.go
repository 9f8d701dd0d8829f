package service

import (
	"strings"
)

const (
	// bytesPerToken is the deterministic token estimate used everywhere a
	// size decision is made. It matches the embedding model's rough
	// average for English text.
	bytesPerToken = 4

	// sentenceWindowTokens is how far around the target a split may move
	// to land on a sentence boundary before falling back to a hard cut.
	sentenceWindowTokens = 100
)

// ChunkerService splits text into overlapping token-bounded chunks.
type ChunkerService struct {
	chunkSize int // target size in tokens
	overlap   int // overlap in tokens
}

func NewChunkerService(chunkSize, overlap int) *ChunkerService {
	return &ChunkerService{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// EstimateTokens is the shared token counter for chunking and cost caps.
func EstimateTokens(text string) int {
	return len(text) / bytesPerToken
}

// TextChunk is a chunk of source text with its 0-based position.
type TextChunk struct {
	Content string
	Index   int
}

// Chunk splits text into chunks of roughly chunkSize tokens with overlap
// tokens carried between neighbours. Splits prefer the nearest sentence
// end within the window, else cut hard. Empty input yields no chunks.
func (s *ChunkerService) Chunk(text string) []TextChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	chunkBytes := s.chunkSize * bytesPerToken
	overlapBytes := s.overlap * bytesPerToken
	windowBytes := sentenceWindowTokens * bytesPerToken

	textLen := len(text)
	if textLen <= chunkBytes {
		return []TextChunk{{Content: strings.TrimSpace(text), Index: 0}}
	}

	var chunks []TextChunk
	currentPos := 0
	for currentPos < textLen {
		chunkEnd := currentPos + chunkBytes
		if chunkEnd >= textLen {
			chunk := strings.TrimSpace(text[currentPos:])
			if chunk != "" {
				chunks = append(chunks, TextChunk{Content: chunk, Index: len(chunks)})
			}
			break
		}

		sentenceEnd := findSentenceEnd(text, currentPos, chunkEnd, windowBytes)

		chunk := strings.TrimSpace(text[currentPos:sentenceEnd])
		if chunk != "" {
			chunks = append(chunks, TextChunk{Content: chunk, Index: len(chunks)})
		}

		next := sentenceEnd - overlapBytes
		if next <= currentPos {
			next = sentenceEnd
		}
		currentPos = next
	}

	return chunks
}

// findSentenceEnd scans backwards then forwards from the target for a
// sentence terminator within the window, snapping the split to just
// after it. No terminator in range means a hard cut at the target.
func findSentenceEnd(text string, start, target, window int) int {
	low := target - window
	if low < start {
		low = start
	}
	high := target + window
	if high > len(text) {
		high = len(text)
	}

	for i := target - 1; i >= low; i-- {
		if isSentenceEnd(text[i]) {
			return i + 1
		}
	}
	for i := target; i < high; i++ {
		if isSentenceEnd(text[i]) {
			return i + 1
		}
	}
	return target
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '?' || b == '!'
}
