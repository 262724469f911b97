package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/grindloop/grind/internal/agent"
	"github.com/grindloop/grind/internal/config"
	"github.com/grindloop/grind/internal/history"
	"github.com/grindloop/grind/internal/loop"
)

var (
	runConfigPath     string
	runBacklogPath    string
	runWorkDir        string
	runBudget         int
	runMaxIterations  int
	runStuckThreshold int
	runModel          string
	runJSON           bool
	runNoHistory      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent loop until the backlog is done",
	Long: `Run the iteration loop against the configured backlog.

Each iteration selects tasks up to the point budget, invokes the agent
once, and re-reads the backlog. The process exit code reports the
outcome: 0 complete, 1 stuck, 2 iteration budget exhausted, 3 fatal.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(runConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(int(loop.ExitFatal))
		}
		applyRunFlags(cmd, cfg)

		invoker := agent.NewClaudeInvoker()
		invoker.Command = cfg.AgentCommand
		invoker.Model = cfg.AgentModel
		invoker.Timeout = cfg.AgentTimeout

		var sink loop.Sink
		if runJSON {
			sink = newJSONSink(os.Stdout)
		} else {
			sink = newDisplaySink(os.Stdout)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var recorder loop.Recorder
		var store *history.Store
		var runID string
		if cfg.HistoryPath != "" && !runNoHistory {
			store, err = history.Open(cfg.HistoryPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: history disabled: %v\n", err)
			} else {
				defer store.Close()
				runID, err = store.StartRun(ctx, cfg.BacklogPath)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Warning: history disabled: %v\n", err)
					store.Close()
					store = nil
				} else {
					recorder = store.Recorder(runID)
				}
			}
		}

		controller, err := loop.New(loop.Config{
			BacklogPath:    cfg.BacklogPath,
			WorkDir:        cfg.WorkDir,
			MaxIterations:  cfg.MaxIterations,
			StuckThreshold: cfg.StuckThreshold,
			Budget:         cfg.Budget,
			Invoker:        invoker,
			Sink:           sink,
			Recorder:       recorder,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(int(loop.ExitFatal))
		}

		status, runErr := controller.Run(ctx)
		if store != nil {
			if err := store.FinishRun(context.Background(), runID, status); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to record run outcome: %v\n", err)
			}
		}
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		}
		if !runJSON {
			printRunSummary(controller.Results(), status)
		}
		os.Exit(int(status))
	},
}

// applyRunFlags overlays explicitly-set command-line flags on the loaded
// config. Unset flags keep the config (or default) value.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("backlog") {
		cfg.BacklogPath = runBacklogPath
	}
	if cmd.Flags().Changed("work-dir") {
		cfg.WorkDir = runWorkDir
	}
	if cmd.Flags().Changed("budget") {
		cfg.Budget = runBudget
	}
	if cmd.Flags().Changed("max-iterations") {
		cfg.MaxIterations = runMaxIterations
	}
	if cmd.Flags().Changed("stuck-threshold") {
		cfg.StuckThreshold = runStuckThreshold
	}
	if cmd.Flags().Changed("model") {
		cfg.AgentModel = runModel
	}
}

func printRunSummary(results []loop.IterationResult, status loop.ExitStatus) {
	if len(results) == 0 {
		return
	}
	gray := color.New(color.FgHiBlack).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	var total time.Duration
	var tools int
	var cost float64
	for _, r := range results {
		total += r.Duration
		tools += r.Stats.ToolCalls
		cost += r.CostUSD
	}

	fmt.Println()
	fmt.Printf("%s Outcome: %s\n", gray("→"), cyan(status.String()))
	fmt.Printf("  Iterations: %d\n", len(results))
	fmt.Printf("  Wall time:  %s\n", total.Round(time.Second))
	fmt.Printf("  Tool calls: %d\n", tools)
	if cost > 0 {
		fmt.Printf("  Cost:       $%.4f\n", cost)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "grind.yaml", "Config file path")
	runCmd.Flags().StringVar(&runBacklogPath, "backlog", "", "Backlog file (overrides config)")
	runCmd.Flags().StringVar(&runWorkDir, "work-dir", "", "Agent working directory (overrides config)")
	runCmd.Flags().IntVar(&runBudget, "budget", 0, "Task points per iteration (overrides config)")
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "Iteration budget (overrides config)")
	runCmd.Flags().IntVar(&runStuckThreshold, "stuck-threshold", 0, "No-progress iterations before giving up (overrides config)")
	runCmd.Flags().StringVar(&runModel, "model", "", "Agent model override")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Emit lifecycle events as JSON lines")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "Skip recording this run to the history database")
}
