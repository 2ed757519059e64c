package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/catalog"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/embedder"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/orders"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/rag"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/tools"
)

// defaultCatalogCSV is the catalog path used when CATALOG_CSV is unset.
const defaultCatalogCSV = "data/Product_Information_Dataset.csv"

// defaultCollection is the Qdrant collection used when QDRANT_COLLECTION is unset.
const defaultCollection = "shopai-products"

// catalogDeps bundles a ready-to-query catalog searcher with the resources
// behind it. close releases the vector store connection; qdrant is nil when
// the in-memory store is in use.
type catalogDeps struct {
	searcher *catalog.Searcher
	products []catalog.Product
	qdrant   *qdrant.Client
	close    func()
}

// buildCatalog loads the product CSV, indexes it into a vector store, and
// returns a searcher over the index. When QDRANT_HOST is set the index lives
// in Qdrant; otherwise an in-process store is used and rebuilt on startup.
func buildCatalog(ctx context.Context, log *slog.Logger) (*catalogDeps, error) {
	csvPath := getEnvOrDefault("CATALOG_CSV", defaultCatalogCSV)

	products, err := catalog.LoadCSVFile(csvPath)
	if err != nil {
		return nil, err
	}
	summary := catalog.Stats(products)
	log.Info("catalog loaded",
		slog.String("path", csvPath),
		slog.Int("rows", summary.Rows),
		slog.Int("categories", summary.Categories),
		slog.Int("rated", summary.Rated),
	)

	if err := embedder.ValidateForCatalog(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", getEnvOrDefault("MODEL_PROVIDER", "gemini"))

	var store rag.VectorStore
	var qdrantClient *qdrant.Client
	closeFn := func() {}

	if qdrantHost := os.Getenv("QDRANT_HOST"); qdrantHost != "" {
		qdrantPort := getEnvInt("QDRANT_PORT", 6334)
		collection := getEnvOrDefault("QDRANT_COLLECTION", defaultCollection)
		vectorSize := uint64(embedder.DefaultDimensions(embBackend)) //nolint:gosec // dimensions are bounded

		qs, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
			Host:       qdrantHost,
			Port:       qdrantPort,
			Collection: collection,
			VectorSize: vectorSize,
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", qdrantHost, qdrantPort, err)
		}
		store = qs
		qdrantClient = qs.Client()
		closeFn = func() { _ = qs.Close() }
		log.Info("qdrant store ready",
			slog.String("host", qdrantHost),
			slog.Int("port", qdrantPort),
			slog.String("collection", collection),
		)
	} else {
		store = rag.NewMemoryStore()
		log.Info("using in-memory vector store", slog.String("reason", "QDRANT_HOST not set"))
	}

	indexer, err := catalog.NewIndexer(emb, store, 0)
	if err != nil {
		closeFn()
		return nil, err
	}
	chunks, err := indexer.Index(ctx, products, func(msg string) {
		log.Debug(msg)
	})
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("failed to index catalog: %w", err)
	}
	log.Info("catalog indexed", slog.Int("chunks", chunks))

	retriever, err := rag.NewRetriever(emb, store, 0)
	if err != nil {
		closeFn()
		return nil, err
	}
	searcher, err := catalog.NewSearcher(retriever, products)
	if err != nil {
		closeFn()
		return nil, err
	}

	return &catalogDeps{
		searcher: searcher,
		products: products,
		qdrant:   qdrantClient,
		close:    closeFn,
	}, nil
}

// buildRegistry wires the three customer service tools over the catalog
// searcher and the order API client.
func buildRegistry(searcher *catalog.Searcher, ordersClient *orders.Client) (*tools.Registry, error) {
	return tools.NewRegistry(
		tools.NewSearchTool(searcher),
		tools.NewOrderTool(ordersClient),
		tools.NewPriorityTool(ordersClient),
	)
}

// newOrdersClient constructs the order API client from ORDERS_API_URL.
func newOrdersClient() *orders.Client {
	return orders.NewClient(getEnvOrDefault("ORDERS_API_URL", orders.DefaultBaseURL))
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
