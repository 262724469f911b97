package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/grindloop/grind/internal/config"
	"github.com/grindloop/grind/internal/history"
)

var (
	historyConfigPath string
	historyLimit      int
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past runs, or the iterations of one run",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(historyConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if cfg.HistoryPath == "" {
			fmt.Fprintf(os.Stderr, "Error: history is disabled in the config\n")
			os.Exit(1)
		}

		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		ctx := context.Background()
		if len(args) == 1 {
			showRun(ctx, store, args[0])
			return
		}
		listRuns(ctx, store)
	},
}

func listRuns(ctx context.Context, store *history.Store) {
	runs, err := store.ListRuns(ctx, historyLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	for _, run := range runs {
		status := run.ExitStatus
		if status == "" {
			status = "running"
		}
		fmt.Printf("%s  %s  %s\n", cyan(run.ID), run.StartedAt.Local().Format("2006-01-02 15:04"), statusColor(status))
		fmt.Printf("  %s\n", gray(fmt.Sprintf("%d iterations | backlog %s", run.Iterations, run.BacklogPath)))
	}
}

func showRun(ctx context.Context, store *history.Store, runID string) {
	iters, err := store.RunIterations(ctx, runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(iters) == 0 {
		fmt.Println("No iterations recorded for this run.")
		return
	}

	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	for _, it := range iters {
		fmt.Printf("Iteration %d  %s\n", it.Iteration, gray(it.Duration.Round(time.Second).String()))
		fmt.Printf("  %s\n", gray(fmt.Sprintf("%d tool calls (%d errors) | $%.4f | %d in / %d out tokens",
			it.ToolCalls, it.ToolErrors, it.CostUSD, it.InputTokens, it.OutputTokens)))
		if it.CommitHash != "" {
			fmt.Printf("  %s [%s] %s\n", green("●"), it.CommitHash, it.CommitMessage)
		}
		if it.Error != "" {
			fmt.Printf("  %s %s\n", yellow("⚠"), it.Error)
		}
	}
}

func statusColor(status string) string {
	switch status {
	case "complete":
		return color.New(color.FgGreen).Sprint(status)
	case "stuck", "max_iterations":
		return color.New(color.FgYellow).Sprint(status)
	case "fatal_error":
		return color.New(color.FgRed).Sprint(status)
	default:
		return status
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVarP(&historyConfigPath, "config", "c", "grind.yaml", "Config file path")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to list")
}
