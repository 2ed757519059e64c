package catalog

import (
	"context"
	"testing"

	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/rag"
)

// fakeRetriever returns a canned document list regardless of query.
type fakeRetriever struct {
	docs []rag.Document
	err  error
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, _ int) ([]rag.Document, error) {
	return f.docs, f.err
}

func Test_Searcher_ResolvesAndDedupes(t *testing.T) {
	t.Parallel()

	products := []Product{
		{ID: 0, Title: "Mouse"},
		{ID: 1, Title: "Lamp"},
		{ID: 2, Title: "Mat"},
	}
	retriever := &fakeRetriever{docs: []rag.Document{
		{ID: "a", Score: 0.95, Metadata: map[string]string{"product_id": "1"}},
		{ID: "b", Score: 0.90, Metadata: map[string]string{"product_id": "1"}}, // second chunk of same product
		{ID: "c", Score: 0.80, Metadata: map[string]string{"product_id": "0"}},
		{ID: "d", Score: 0.70, Metadata: map[string]string{"product_id": "99"}}, // unknown row
		{ID: "e", Score: 0.60, Metadata: map[string]string{"product_id": "2"}},
	}}

	s, err := NewSearcher(retriever, products)
	if err != nil {
		t.Fatalf("NewSearcher: %v", err)
	}

	matches, err := s.Search(context.Background(), "desk accessories", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("want 3 deduped matches, got %d", len(matches))
	}
	if matches[0].Product.Title != "Lamp" || matches[0].Score != 0.95 {
		t.Errorf("best match: want Lamp@0.95, got %s@%f", matches[0].Product.Title, matches[0].Score)
	}
	if matches[1].Product.Title != "Mouse" || matches[2].Product.Title != "Mat" {
		t.Errorf("unexpected ranking: %+v", matches)
	}
}

func Test_Searcher_TopKCap(t *testing.T) {
	t.Parallel()

	products := []Product{{ID: 0}, {ID: 1}, {ID: 2}}
	retriever := &fakeRetriever{docs: []rag.Document{
		{Score: 0.9, Metadata: map[string]string{"product_id": "0"}},
		{Score: 0.8, Metadata: map[string]string{"product_id": "1"}},
		{Score: 0.7, Metadata: map[string]string{"product_id": "2"}},
	}}

	s, err := NewSearcher(retriever, products)
	if err != nil {
		t.Fatalf("NewSearcher: %v", err)
	}
	matches, err := s.Search(context.Background(), "anything", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("topK=2: want 2 matches, got %d", len(matches))
	}
}

func Test_Searcher_EmptyIndex(t *testing.T) {
	t.Parallel()

	s, err := NewSearcher(&fakeRetriever{}, nil)
	if err != nil {
		t.Fatalf("NewSearcher: %v", err)
	}
	matches, err := s.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if matches == nil || len(matches) != 0 {
		t.Errorf("empty index: want empty non-nil slice, got %#v", matches)
	}
}
