package commands

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/agent"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/logging"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/provider"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/store"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/tracing"
)

// chatBanner is printed when the interactive session starts.
const chatBanner = `Welcome to the e-commerce assistant. You can ask things like:
  - What are the best-rated guitars?
  - What is the status of my order? (ID: 37077)
  - Show me the most popular microphone

Type /reset to clear the conversation, /quit to exit.
`

// NewChatCmd constructs the `shopai chat` command, an interactive REPL that
// drives the assistant from the terminal.
func NewChatCmd() *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the shopping assistant",
		Long: `Start an interactive chat session with the shopping assistant, or send
a single message and print the reply.

The assistant can search the product catalog, look up a customer's orders
by ID, and list orders by priority level.

Examples:
  shopai chat
  shopai chat "what are the best-rated guitars?"
  shopai chat --session alice`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			// Langfuse tracing is opt-in; silently skipped without keys.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("chat: failed to initialise model provider: %w", err)
			}

			cat, err := buildCatalog(ctx, log)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			defer cat.close()

			registry, err := buildRegistry(cat.searcher, newOrdersClient())
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}

			historyStore := openHistory(log)
			if historyStore != nil {
				defer func() { _ = historyStore.Close() }()
			}

			assistant, err := agent.New(ctx, &agent.Config{
				Model:     chatModel,
				Registry:  registry,
				History:   historyStore,
				SessionID: session,
			})
			if err != nil {
				return fmt.Errorf("chat: failed to initialise assistant: %w", err)
			}

			// One-shot mode: send the argument and print the reply.
			if len(args) > 0 {
				fmt.Println(assistant.Process(ctx, strings.Join(args, " ")))
				return nil
			}

			fmt.Print(chatBanner)
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				switch {
				case line == "":
					continue
				case line == "/quit" || line == "/exit":
					return nil
				case line == "/reset":
					assistant.Reset(ctx)
					fmt.Println("Conversation cleared.")
					continue
				}

				fmt.Println(assistant.Process(ctx, line))
				fmt.Println()
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "cli", "Session ID for conversation history")

	return cmd
}

// openHistory opens the conversation history store. SHOPAI_HISTORY_DB
// overrides the default path (~/.shopai/history.db); set it to "disabled"
// to turn persistence off. Failures disable history rather than abort.
func openHistory(log *slog.Logger) store.ConversationStore {
	dbPath := os.Getenv("SHOPAI_HISTORY_DB")
	if dbPath == "disabled" {
		log.Info("history: disabled via SHOPAI_HISTORY_DB=disabled")
		return nil
	}
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil
		}
	}
	hs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil
	}
	log.Info("history: store opened", slog.String("path", dbPath))
	return hs
}
