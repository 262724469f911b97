package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/grindloop/grind/internal/backlog"
	"github.com/grindloop/grind/internal/config"
)

var initForce bool

const exampleBacklog = `# Task backlog for grind. Sizes: S (1 point), M (2), L (4).
tasks:
  - id: T001
    title: Example task
    status: pending
    size: S
    deliverables:
      - A concrete artifact the agent should produce
    verify: How to check the task is done, e.g. "go test ./..."
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold grind.yaml and an example backlog in the current directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		wrote := false
		if created := writeScaffold("grind.yaml", defaultConfigYAML(), initForce); created {
			fmt.Printf("%s Wrote %s\n", green("✓"), cyan("grind.yaml"))
			wrote = true
		}
		if created := writeScaffold("backlog.yaml", []byte(exampleBacklog), initForce); created {
			fmt.Printf("%s Wrote %s\n", green("✓"), cyan("backlog.yaml"))
			wrote = true
		}
		if !wrote {
			fmt.Printf("%s Nothing to do: files exist (use --force to overwrite)\n", gray("→"))
			return
		}

		// Sanity-check the example parses with the same parser run uses.
		if _, _, err := backlog.Load("backlog.yaml"); err != nil {
			fmt.Fprintf(os.Stderr, "Error: generated backlog does not parse: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n%s Next steps:\n", gray("→"))
		fmt.Printf("  %s\n", gray("$EDITOR backlog.yaml  # Replace the example with real tasks"))
		fmt.Printf("  %s\n", gray("grind run"))
	},
}

func defaultConfigYAML() []byte {
	data, err := yaml.Marshal(config.Default())
	if err != nil {
		// Marshaling a plain struct of scalars cannot fail.
		panic(err)
	}
	return data
}

// writeScaffold writes the file unless it already exists. Reports whether
// the file was written.
func writeScaffold(path string, data []byte, force bool) bool {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: writing %s: %v\n", path, err)
		os.Exit(1)
	}
	return true
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
}
