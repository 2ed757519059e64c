package catalog

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strconv"

	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/rag"
)

// DefaultChunkSize is the maximum number of characters per document chunk.
const DefaultChunkSize = 500

// Indexer embeds rendered product documents and upserts them into the
// vector store. Overlength documents are split into non-overlapping chunks
// of at most ChunkSize characters; each chunk keeps a pointer back to its
// source product row.
type Indexer struct {
	// embedder converts chunk text into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded chunks.
	store rag.VectorStore

	// chunkSize is the maximum number of characters per chunk.
	chunkSize int

	// batchSize caps how many chunks are embedded per Embed call.
	batchSize int
}

// NewIndexer constructs an Indexer from the provided dependencies.
// A chunkSize of zero selects DefaultChunkSize.
func NewIndexer(embedder rag.Embedder, store rag.VectorStore, chunkSize int) (*Indexer, error) {
	if embedder == nil {
		return nil, fmt.Errorf("catalog: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("catalog: store must not be nil")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Indexer{
		embedder:  embedder,
		store:     store,
		chunkSize: chunkSize,
		batchSize: 64,
	}, nil
}

// Index renders, chunks, embeds, and stores all provided products.
// It returns the total number of chunks written. Progress is reported via
// the optional progress callback.
func (ix *Indexer) Index(ctx context.Context, products []Product, progress func(msg string)) (int, error) {
	if progress == nil {
		progress = func(string) {}
	}

	var docs []rag.Document
	for _, p := range products {
		chunks := chunk(p.Document(), ix.chunkSize)
		for i, text := range chunks {
			docs = append(docs, rag.Document{
				ID:      chunkID(p.ID, i),
				Content: text,
				Source:  fmt.Sprintf("product-%d", p.ID),
				Metadata: map[string]string{
					"product_id":  strconv.Itoa(p.ID),
					"category":    p.Category,
					"title":       p.Title,
					"chunk_index": strconv.Itoa(i),
				},
			})
		}
	}
	progress(fmt.Sprintf("rendered %d products into %d chunks", len(products), len(docs)))

	for start := 0; start < len(docs); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Content
		}

		embeddings, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("catalog: embedding failed at chunk %d: %w", start, err)
		}

		if err := ix.store.Upsert(ctx, batch, embeddings); err != nil {
			return 0, fmt.Errorf("catalog: upsert failed at chunk %d: %w", start, err)
		}
		progress(fmt.Sprintf("indexed %d/%d chunks", end, len(docs)))
	}

	return len(docs), nil
}

// chunk splits text into consecutive non-overlapping pieces of at most
// size characters. Empty text yields no chunks.
func chunk(text string, size int) []string {
	if len(text) == 0 {
		return nil
	}

	var chunks []string
	for start := 0; start < len(text); start += size {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks
}

// chunkID generates a deterministic UUID-formatted ID for a product chunk
// so re-indexing overwrites in place rather than duplicating points.
func chunkID(productID, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("product-%d#%d", productID, index)))
	return fmt.Sprintf("%x-%x-%x-%x-%x", h[0:4], h[4:6], h[6:8], h[8:10], h[10:16])
}
