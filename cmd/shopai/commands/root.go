// Package commands defines all Cobra CLI commands for the shopai binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/audit"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/config"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shopai",
		Short: "shopai — an e-commerce customer service assistant powered by LLMs",
		Long: `shopai is an AI customer service assistant for an e-commerce store.

It answers natural language questions about the product catalog using
semantic search, and looks up customer orders by customer ID or by
priority through the order management API.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.shopai/config.yaml).
See 'shopai --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.shopai/config.yaml)")

	root.AddCommand(
		NewChatCmd(),
		NewServeCmd(),
		NewIndexCmd(),
		NewVersionCmd(),
	)

	return root
}
