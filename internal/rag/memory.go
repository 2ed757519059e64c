package rag

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process VectorStore that keeps every embedding in RAM
// and ranks by cosine similarity. It backs the default single-binary setup
// where the catalog index is rebuilt at startup, and all unit tests.
// Safe for concurrent use: reads take a shared lock, upserts an exclusive one.
type MemoryStore struct {
	// mu protects entries and index.
	mu sync.RWMutex
	// entries holds documents in insertion order. Ties in similarity are
	// broken by this order, so equal-score results are stable.
	entries []memoryEntry
	// index maps document ID to its position in entries for upsert-in-place.
	index map[string]int
}

// memoryEntry pairs a stored document with its embedding.
type memoryEntry struct {
	doc       Document
	embedding []float32
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

// Upsert stores or replaces documents with their embeddings.
// Replacing an existing ID keeps its original insertion position.
func (s *MemoryStore) Upsert(_ context.Context, docs []Document, embeddings [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, doc := range docs {
		entry := memoryEntry{doc: doc, embedding: embeddings[i]}
		if pos, ok := s.index[doc.ID]; ok {
			s.entries[pos] = entry
			continue
		}
		s.index[doc.ID] = len(s.entries)
		s.entries = append(s.entries, entry)
	}
	return nil
}

// Search returns the topK documents most similar to queryEmbedding,
// descending by cosine similarity. If topK exceeds the store size, all
// documents are returned. An empty store yields an empty slice.
func (s *MemoryStore) Search(_ context.Context, queryEmbedding []float32, topK int) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 || len(s.entries) == 0 {
		return []Document{}, nil
	}

	type scored struct {
		pos   int
		score float32
	}
	ranked := make([]scored, len(s.entries))
	for i, e := range s.entries {
		ranked[i] = scored{pos: i, score: cosineSimilarity(queryEmbedding, e.embedding)}
	}

	// SliceStable preserves insertion order for equal scores.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if topK > len(ranked) {
		topK = len(ranked)
	}

	docs := make([]Document, 0, topK)
	for _, r := range ranked[:topK] {
		doc := s.entries[r.pos].doc
		doc.Score = r.score
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete removes documents by ID. Unknown IDs are ignored.
func (s *MemoryStore) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := s.entries[:0]
	for _, e := range s.entries {
		if !drop[e.doc.ID] {
			kept = append(kept, e)
		}
	}
	s.entries = kept

	s.index = make(map[string]int, len(s.entries))
	for i, e := range s.entries {
		s.index[e.doc.ID] = i
	}
	return nil
}

// Len returns the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// cosineSimilarity computes the cosine of the angle between a and b.
// Mismatched lengths or zero vectors score 0 rather than erroring — a
// defect in one stored vector must not fail the whole ranking.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
