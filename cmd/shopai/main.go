// Command shopai is the entry point for the e-commerce shopping assistant.
// It provides a CLI chat interface (via Cobra) and an optional HTTP server
// for interactive use.
package main

import (
	"fmt"
	"os"

	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/cmd/shopai/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
