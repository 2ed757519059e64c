package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/rag"
)

// Match pairs a catalog product with its retrieval score.
type Match struct {
	// Product is the resolved catalog row.
	Product Product
	// Score is the cosine similarity of the best-scoring chunk for this product.
	Score float32
}

// Searcher runs semantic queries against the indexed catalog and resolves
// chunk-level hits back to whole products. When multiple chunks of the same
// product match, only the best-scoring one is kept.
type Searcher struct {
	// retriever embeds queries and searches the vector store.
	retriever rag.Retriever

	// products maps product ID to catalog row for hit resolution.
	products map[int]Product
}

// NewSearcher constructs a Searcher over the given product table.
func NewSearcher(retriever rag.Retriever, products []Product) (*Searcher, error) {
	if retriever == nil {
		return nil, fmt.Errorf("catalog: retriever must not be nil")
	}
	table := make(map[int]Product, len(products))
	for _, p := range products {
		table[p.ID] = p
	}
	return &Searcher{retriever: retriever, products: table}, nil
}

// Search returns up to topK products ranked by their best chunk score.
// Chunk hits whose product row is unknown are dropped. An empty index
// yields an empty, non-nil slice.
func (s *Searcher) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	// Over-fetch at the chunk level so products split across several
	// chunks still fill topK slots after dedup.
	docs, err := s.retriever.Retrieve(ctx, query, topK*3)
	if err != nil {
		return nil, fmt.Errorf("catalog: search %q: %w", query, err)
	}

	matches := make([]Match, 0, topK)
	seen := make(map[int]bool, topK)
	for _, doc := range docs {
		id, err := strconv.Atoi(doc.Metadata["product_id"])
		if err != nil {
			continue
		}
		if seen[id] {
			// Results arrive in descending score order, so the first
			// chunk seen for a product is its best one.
			continue
		}
		p, ok := s.products[id]
		if !ok {
			continue
		}
		seen[id] = true
		matches = append(matches, Match{Product: p, Score: doc.Score})
		if len(matches) == topK {
			break
		}
	}

	return matches, nil
}
