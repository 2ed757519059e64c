package rag

import (
	"context"
	"fmt"
	"testing"
)

// seedStore fills a MemoryStore with n orthogonal-ish unit vectors so that
// doc i scores higher than doc i+1 against the query vector {1, 0, 0}.
func seedStore(t *testing.T, n int) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()

	docs := make([]Document, 0, n)
	embeddings := make([][]float32, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, Document{
			ID:      fmt.Sprintf("doc-%d", i),
			Content: fmt.Sprintf("content %d", i),
		})
		// Rotate away from the x axis as i grows: similarity to {1,0,0}
		// decreases monotonically.
		x := float32(n - i)
		y := float32(i)
		embeddings = append(embeddings, []float32{x, y, 0})
	}

	if err := s.Upsert(context.Background(), docs, embeddings); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return s
}

func Test_MemoryStore_TopKSortedDescending(t *testing.T) {
	t.Parallel()
	s := seedStore(t, 10)

	docs, err := s.Search(context.Background(), []float32{1, 0, 0}, 4)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(docs) != 4 {
		t.Fatalf("want exactly 4 results, got %d", len(docs))
	}
	for i := 1; i < len(docs); i++ {
		if docs[i].Score > docs[i-1].Score {
			t.Errorf("results not in descending score order at %d: %f > %f", i, docs[i].Score, docs[i-1].Score)
		}
	}
	if docs[0].ID != "doc-0" {
		t.Errorf("most similar doc: want doc-0, got %s", docs[0].ID)
	}
}

func Test_MemoryStore_KLargerThanIndex(t *testing.T) {
	t.Parallel()
	s := seedStore(t, 3)

	docs, err := s.Search(context.Background(), []float32{1, 0, 0}, 50)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(docs) != 3 {
		t.Errorf("k > index size: want all 3 documents, got %d", len(docs))
	}
}

func Test_MemoryStore_EmptyIndex(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()

	docs, err := s.Search(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("search on empty index must not error: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("empty index: want 0 results, got %d", len(docs))
	}
}

// Test_MemoryStore_StableTies verifies that equal-score documents come back
// in insertion order.
func Test_MemoryStore_StableTies(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	docs := []Document{{ID: "first"}, {ID: "second"}, {ID: "third"}}
	same := []float32{0, 1, 0}
	if err := s.Upsert(ctx, docs, [][]float32{same, same, same}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Search(ctx, []float32{0, 1, 0}, 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if got[i].ID != w {
			t.Errorf("tie order at %d: want %s, got %s", i, w, got[i].ID)
		}
	}
}

func Test_MemoryStore_UpsertReplacesByID(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	v := []float32{1, 0}
	if err := s.Upsert(ctx, []Document{{ID: "a", Content: "old"}}, [][]float32{v}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, []Document{{ID: "a", Content: "new"}}, [][]float32{v}); err != nil {
		t.Fatalf("upsert replace: %v", err)
	}

	if s.Len() != 1 {
		t.Fatalf("want 1 document after replace, got %d", s.Len())
	}
	got, err := s.Search(ctx, v, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got[0].Content != "new" {
		t.Errorf("want replaced content, got %q", got[0].Content)
	}
}

func Test_MemoryStore_Delete(t *testing.T) {
	t.Parallel()
	s := seedStore(t, 4)
	ctx := context.Background()

	if err := s.Delete(ctx, []string{"doc-0", "doc-2", "doc-unknown"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("want 2 documents after delete, got %d", s.Len())
	}
}

func Test_CosineSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := cosineSimilarity(tc.a, tc.b)
			if diff := got - tc.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("cosineSimilarity = %f, want %f", got, tc.want)
			}
		})
	}
}
