package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/catalog"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/embedder"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/logging"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/rag"
)

// NewIndexCmd constructs the `shopai index` command, which loads the product
// catalog CSV and indexes it into the Qdrant vector store ahead of time.
func NewIndexCmd() *cobra.Command {
	var csvPath string
	var chunkSize int

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the product catalog into the vector store",
		Long: `Load the product catalog CSV, embed each product document, and write
the chunks into the Qdrant vector store.

Chunk IDs are derived deterministically from the product row, so re-running
the command refreshes the collection in place instead of duplicating it.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: shopai-products)
  MODEL_PROVIDER       Embedding backend: gemini, ollama, openai (default: gemini)
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  shopai index --csv data/Product_Information_Dataset.csv
  QDRANT_HOST=qdrant.internal shopai index`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if os.Getenv("QDRANT_HOST") == "" {
				return fmt.Errorf("index: QDRANT_HOST is required — the in-memory store is rebuilt on startup and needs no pre-indexing")
			}

			if csvPath == "" {
				csvPath = getEnvOrDefault("CATALOG_CSV", defaultCatalogCSV)
			}

			products, err := catalog.LoadCSVFile(csvPath)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			summary := catalog.Stats(products)
			log.Info("catalog loaded",
				slog.String("path", csvPath),
				slog.Int("rows", summary.Rows),
				slog.Int("categories", summary.Categories),
				slog.Int("rated", summary.Rated),
				slog.Float64("min_price", summary.MinPrice),
				slog.Float64("max_price", summary.MaxPrice),
			)

			if err := embedder.ValidateForCatalog(log); err != nil {
				return fmt.Errorf("index: %w", err)
			}
			emb, err := embedder.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("index: failed to initialise embedder: %w", err)
			}

			embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", getEnvOrDefault("MODEL_PROVIDER", "gemini"))
			qdrantHost := os.Getenv("QDRANT_HOST")
			qdrantPort := getEnvInt("QDRANT_PORT", 6334)
			collection := getEnvOrDefault("QDRANT_COLLECTION", defaultCollection)

			store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
				Host:       qdrantHost,
				Port:       qdrantPort,
				Collection: collection,
				VectorSize: uint64(embedder.DefaultDimensions(embBackend)), //nolint:gosec // dimensions are bounded
				APIKey:     os.Getenv("QDRANT_API_KEY"),
				UseTLS:     os.Getenv("QDRANT_TLS") == "true",
			})
			if err != nil {
				return fmt.Errorf("index: failed to connect to Qdrant at %s:%d: %w", qdrantHost, qdrantPort, err)
			}
			defer store.Close()
			log.Info("qdrant store ready",
				slog.String("host", qdrantHost),
				slog.Int("port", qdrantPort),
				slog.String("collection", collection),
			)

			indexer, err := catalog.NewIndexer(emb, store, chunkSize)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			chunks, err := indexer.Index(ctx, products, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			log.Info("indexing complete",
				slog.Int("products", len(products)),
				slog.Int("chunks", chunks),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "Path to the product catalog CSV (default: $CATALOG_CSV)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Maximum characters per chunk (default: 500)")

	return cmd
}
