package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/agent"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/logging"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/provider"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/server"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/tracing"
)

// NewServeCmd constructs the `shopai serve` command, which starts the HTTP
// server exposing the assistant as a JSON API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the shopai HTTP server",
		Long: `Start the shopai HTTP server on localhost.

The server exposes POST /api/chat for conversational turns (keyed by
sessionId), POST /api/reset to clear a session, and GET /api/health,
GET /api/ready, and GET /metrics for operations.

Examples:
  shopai serve
  shopai serve --port 9090
  MODEL_PROVIDER=openai shopai serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", getEnvOrDefault("MODEL_PROVIDER", "gemini")))

			cat, err := buildCatalog(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer cat.close()

			ordersClient := newOrdersClient()

			registry, err := buildRegistry(cat.searcher, ordersClient)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			historyStore := openHistory(log)
			if historyStore != nil {
				defer func() { _ = historyStore.Close() }()
			}

			pingers := []server.Pinger{
				server.NewLLMPinger(chatModel, getEnvOrDefault("MODEL_PROVIDER", "gemini")),
				server.NewOrdersPinger(ordersClient),
			}
			if cat.qdrant != nil {
				pingers = append(pingers, server.NewQdrantPinger(cat.qdrant))
			}

			srv, err := server.New(&server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("SHOPAI_API_KEY"),
				NewSession: func(ctx context.Context, sessionID string) (server.Chatter, error) {
					return agent.New(ctx, &agent.Config{
						Model:     chatModel,
						Registry:  registry,
						History:   historyStore,
						SessionID: sessionID,
					})
				},
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
