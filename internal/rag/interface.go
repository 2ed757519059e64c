// Package rag defines the interfaces for the retrieval subsystem: vector
// storage, document retrieval, and embedding. Concrete implementations
// (Qdrant, in-memory) satisfy these interfaces so the catalog and tool
// layers never depend on a specific backend.
package rag

import (
	"context"
)

// Document represents one indexed chunk of catalog text.
type Document struct {
	// ID is the unique identifier for this chunk.
	ID string

	// Content is the synthesized text that was embedded.
	Content string

	// Source identifies the catalog row this chunk was derived from.
	Source string

	// Metadata holds arbitrary key-value pairs (row id, category, price, ...).
	Metadata map[string]string

	// Score is the similarity score assigned during retrieval. It is an
	// opaque ordinal signal — higher means more relevant, but the range
	// depends on the backend and must not be assumed normalized.
	Score float32
}

// VectorStore is the interface for persisting and searching document embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates a batch of documents with their pre-computed
	// embeddings. The embeddings slice must be parallel to docs —
	// embeddings[i] is the vector for docs[i].
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search returns the top-k most similar documents for the query
	// embedding, in descending score order. If the store holds fewer than
	// topK documents, all of them are returned. An empty store yields an
	// empty slice, not an error.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the high-level interface used by the search tool to fetch
// relevant catalog chunks for a free-text query.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns the top-k most relevant documents for the given query.
	Retrieve(ctx context.Context, query string, topK int) ([]Document, error)
}
