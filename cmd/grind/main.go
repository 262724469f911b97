package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "grind",
	Short: "Run a coding agent against a task backlog until it is done",
	Long: `grind drives an autonomous coding agent through a task backlog.

Each iteration it selects the next batch of tasks that fits the point
budget, invokes the agent once with those tasks, then re-reads the
backlog to measure progress. The loop ends when every task is resolved,
when too many consecutive iterations make no progress, or when the
iteration budget runs out.

Example:
  grind init            # Scaffold grind.yaml and an example backlog
  grind run             # Run the loop against backlog.yaml
  grind history         # Inspect past runs`,
	Version: Version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
