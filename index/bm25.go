package index

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/aigroupchat/voicechat-be/types"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

type entry struct {
	chunkID    string
	documentID string
	content    string
	length     int
}

type posting struct {
	doc int
	tf  int
}

// Snapshot is an immutable BM25 index over one owner's chunks. Readers
// use whichever snapshot they loaded for the life of one query.
type Snapshot struct {
	entries  []entry
	postings map[string][]posting
	avgLen   float64
}

// Tokenize lowercases and splits on non-alphanumeric runes. The same
// function is applied to corpus and queries so scores stay comparable.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// BuildSnapshot indexes chunks by their retrieval text. Contextualized
// chunks are indexed under the enriched form.
func BuildSnapshot(chunks []types.Chunk) *Snapshot {
	snap := &Snapshot{
		entries:  make([]entry, 0, len(chunks)),
		postings: make(map[string][]posting),
	}

	totalLen := 0
	for _, chunk := range chunks {
		text := chunk.EmbeddingText()
		tokens := Tokenize(text)
		doc := len(snap.entries)
		snap.entries = append(snap.entries, entry{
			chunkID:    chunk.ID,
			documentID: chunk.DocumentID,
			content:    text,
			length:     len(tokens),
		})
		totalLen += len(tokens)

		counts := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			counts[tok]++
		}
		for tok, tf := range counts {
			snap.postings[tok] = append(snap.postings[tok], posting{doc: doc, tf: tf})
		}
	}
	if len(snap.entries) > 0 {
		snap.avgLen = float64(totalLen) / float64(len(snap.entries))
	}
	return snap
}

// Search scores every chunk against the query and returns the top limit
// hits. An allow-list of document ids restricts the candidate set.
func (s *Snapshot) Search(query string, limit int, allowedDocIDs []string) []types.SearchResult {
	if s == nil || len(s.entries) == 0 {
		return nil
	}
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	var allowed map[string]struct{}
	if allowedDocIDs != nil {
		allowed = make(map[string]struct{}, len(allowedDocIDs))
		for _, id := range allowedDocIDs {
			allowed[id] = struct{}{}
		}
	}

	n := float64(len(s.entries))
	scores := make(map[int]float64)
	for _, term := range terms {
		postings := s.postings[term]
		if len(postings) == 0 {
			continue
		}
		df := float64(len(postings))
		idf := math.Log(1.0 + (n-df+0.5)/(df+0.5))
		for _, p := range postings {
			docLen := float64(s.entries[p.doc].length)
			tf := float64(p.tf)
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*docLen/s.avgLen))
			scores[p.doc] += idf * norm
		}
	}

	results := make([]types.SearchResult, 0, len(scores))
	for doc, score := range scores {
		e := s.entries[doc]
		if allowed != nil {
			if _, ok := allowed[e.documentID]; !ok {
				continue
			}
		}
		results = append(results, types.SearchResult{
			ChunkID:    e.chunkID,
			DocumentID: e.documentID,
			Content:    e.content,
			Score:      score,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Size returns the number of indexed chunks.
func (s *Snapshot) Size() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}
