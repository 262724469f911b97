package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/grindloop/grind/internal/backlog"
	"github.com/grindloop/grind/internal/config"
)

var statusConfigPath string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backlog progress without running anything",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(statusConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		spec, warnings, err := backlog.Load(cfg.BacklogPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		agg := spec.Aggregates()
		fmt.Printf("%s %s\n", gray("Backlog:"), cyan(cfg.BacklogPath))
		fmt.Printf("  %d/%d tasks resolved, %d/%d points complete\n\n",
			agg.ResolvedCount, agg.TaskCount, agg.CompletedPoints, agg.TotalPoints)

		for _, task := range spec.Tasks {
			var mark string
			switch task.Status {
			case backlog.StatusPassed:
				mark = green("✓")
			case backlog.StatusFailed:
				mark = red("✗")
			case backlog.StatusInProgress:
				mark = yellow("▸")
			default:
				mark = gray("·")
			}
			fmt.Printf("  %s %s %s %s\n", mark, task.ID, gray("["+string(task.Size)+"]"), task.Title)
		}

		if spec.FullyResolved() {
			fmt.Printf("\n%s Backlog is fully resolved\n", green("✓"))
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusConfigPath, "config", "c", "grind.yaml", "Config file path")
}
