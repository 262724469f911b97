// Package loop drives repeated agent invocations against the backlog until
// it is complete, progress stalls, or the iteration budget runs out.
package loop

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/grindloop/grind/internal/activity"
	"github.com/grindloop/grind/internal/agent"
	"github.com/grindloop/grind/internal/backlog"
	"github.com/grindloop/grind/internal/events"
)

// ExitStatus is the terminal outcome of a run. These four values are the
// process exit codes; no others are ever returned.
type ExitStatus int

const (
	// ExitComplete: every backlog task reached a terminal status.
	ExitComplete ExitStatus = 0
	// ExitStuck: the configured number of consecutive iterations made no
	// backlog progress.
	ExitStuck ExitStatus = 1
	// ExitMaxIterations: the iteration budget was exhausted first.
	ExitMaxIterations ExitStatus = 2
	// ExitFatal: the agent could not be invoked at all, or the backlog
	// could not be read.
	ExitFatal ExitStatus = 3
)

func (s ExitStatus) String() string {
	switch s {
	case ExitComplete:
		return "complete"
	case ExitStuck:
		return "stuck"
	case ExitMaxIterations:
		return "max_iterations"
	case ExitFatal:
		return "fatal_error"
	default:
		return "unknown"
	}
}

// Recorder persists iteration results for later inspection. Recording is
// best-effort: failures are logged, never fatal to the loop.
type Recorder interface {
	RecordIteration(ctx context.Context, result *IterationResult) error
}

// Config holds controller configuration.
type Config struct {
	BacklogPath    string
	WorkDir        string
	MaxIterations  int // default 10
	StuckThreshold int // consecutive no-progress iterations before Stuck; default 3
	Budget         int // points attempted per iteration; default 6
	Invoker        agent.Invoker
	Sink           Sink     // optional lifecycle event sink
	Recorder       Recorder // optional iteration history recorder
}

// Controller runs the iteration loop. One agent invocation is active at a
// time; the controller suspends for its full duration before evaluating
// progress, so no locking is needed around loop state.
type Controller struct {
	cfg     Config
	machine *activity.Machine
	history []IterationResult
}

// New creates a Controller, filling in defaults.
func New(cfg Config) (*Controller, error) {
	if cfg.BacklogPath == "" {
		return nil, fmt.Errorf("backlog path is required")
	}
	if cfg.Invoker == nil {
		return nil, fmt.Errorf("agent invoker is required")
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 10
	}
	if cfg.StuckThreshold == 0 {
		cfg.StuckThreshold = 3
	}
	if cfg.Budget == 0 {
		cfg.Budget = 6
	}
	return &Controller{cfg: cfg, machine: activity.NewMachine()}, nil
}

// Results returns the in-memory iteration history for the final summary.
func (c *Controller) Results() []IterationResult {
	return c.history
}

func (c *Controller) emit(ev Event) {
	if c.cfg.Sink == nil {
		return
	}
	ev.Timestamp = time.Now()
	c.cfg.Sink.Emit(ev)
}

// Run executes the loop until a terminal state is reached. The returned
// error is non-nil only for ExitFatal (unreadable backlog or a process-level
// invocation failure).
func (c *Controller) Run(ctx context.Context) (ExitStatus, error) {
	spec, warnings, err := backlog.Load(c.cfg.BacklogPath)
	if err != nil {
		c.emit(Event{Type: EventFailed, Error: err.Error()})
		return ExitFatal, err
	}
	c.reportWarnings(warnings)

	agg := spec.Aggregates()
	c.emit(Event{
		Type:            EventStarted,
		TotalTasks:      agg.TaskCount,
		ResolvedTasks:   agg.ResolvedCount,
		CompletedPoints: agg.CompletedPoints,
		TotalPoints:     agg.TotalPoints,
	})

	noProgress := 0
	for n := 1; n <= c.cfg.MaxIterations; n++ {
		status, terminal, err := c.iterate(ctx, n, &noProgress)
		if terminal {
			return status, err
		}
	}
	return ExitMaxIterations, nil
}

// iterate runs one loop cycle. terminal=true means the run is over and
// status/err are final.
func (c *Controller) iterate(ctx context.Context, n int, noProgress *int) (ExitStatus, bool, error) {
	// The backlog file is the single source of truth for progress: re-read
	// fresh every iteration, never cached across iterations.
	spec, warnings, err := backlog.Load(c.cfg.BacklogPath)
	if err != nil {
		c.emit(Event{Type: EventFailed, Iteration: n, Error: err.Error()})
		return ExitFatal, true, err
	}
	c.reportWarnings(warnings)

	if spec.FullyResolved() {
		c.emitComplete(spec)
		return ExitComplete, true, nil
	}

	pre := spec.Aggregates()
	sel := backlog.Select(spec, c.cfg.Budget)

	c.emit(Event{
		Type:          EventIteration,
		Iteration:     n,
		ResolvedTasks: pre.ResolvedCount,
		TotalTasks:    pre.TaskCount,
	})

	if sel.Empty() {
		// Nothing fits the budget. Invoking would be pointless, but the
		// cycle still counts toward stagnation so the loop cannot spin
		// forever on an unmatchable backlog.
		*noProgress++
		c.emit(Event{
			Type:      EventIterationDone,
			Iteration: n,
			Error:     "no unresolved task fits the iteration budget",
		})
		return c.checkStagnation(n, *noProgress)
	}

	// Claim the selected work before invoking, persisted immediately so a
	// killed run resumes from the file, not from memory.
	for _, task := range sel.Tasks {
		if task.Status == backlog.StatusPending {
			if err := spec.UpdateStatus(task.ID, backlog.StatusInProgress); err != nil {
				return ExitFatal, true, err
			}
		}
	}
	if err := spec.Save(c.cfg.BacklogPath); err != nil {
		c.emit(Event{Type: EventFailed, Iteration: n, Error: err.Error()})
		return ExitFatal, true, err
	}

	result, invokeErr := c.invoke(ctx, n, sel)
	if invokeErr != nil {
		c.emit(Event{Type: EventFailed, Iteration: n, Error: invokeErr.Error()})
		return ExitFatal, true, invokeErr
	}

	post, _, err := backlog.Load(c.cfg.BacklogPath)
	if err != nil {
		c.emit(Event{Type: EventFailed, Iteration: n, Error: err.Error()})
		return ExitFatal, true, err
	}

	c.emitNewlyPassed(n, spec, post)

	// Progress is strictly "did the resolved-task count increase" — the
	// agent's own success flag has no vote. A turn that reports failure but
	// still landed a task counts as progress; a "successful" turn that
	// moved nothing does not.
	postAgg := post.Aggregates()
	if postAgg.ResolvedCount > pre.ResolvedCount {
		*noProgress = 0
	} else {
		*noProgress++
	}

	iterResult := c.buildResult(n, result)
	c.history = append(c.history, iterResult)
	if c.cfg.Recorder != nil {
		if err := c.cfg.Recorder.RecordIteration(ctx, &iterResult); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to record iteration: %v\n", err)
		}
	}

	c.emit(Event{
		Type:            EventIterationDone,
		Iteration:       n,
		ResolvedTasks:   postAgg.ResolvedCount,
		TotalTasks:      postAgg.TaskCount,
		CompletedPoints: postAgg.CompletedPoints,
		TotalPoints:     postAgg.TotalPoints,
		DurationMs:      iterResult.Duration.Milliseconds(),
		Error:           iterResult.Error,
	})

	if post.FullyResolved() {
		c.emitComplete(post)
		return ExitComplete, true, nil
	}
	return c.checkStagnation(n, *noProgress)
}

// invoke runs one agent turn, wiring the event stream into the activity
// machine and forwarding tool/commit lifecycle events.
func (c *Controller) invoke(ctx context.Context, n int, sel *backlog.Selection) (*agent.Result, error) {
	c.machine.Reset()
	var lastCommit *activity.Commit

	handler := func(ev events.Event) {
		c.machine.Handle(ev)
		switch ev.Kind {
		case events.KindToolEnd:
			c.emit(Event{
				Type:       EventTool,
				Iteration:  n,
				Tool:       ev.Name,
				Category:   string(activity.CategoryFor(ev.Name)),
				DurationMs: ev.Duration.Milliseconds(),
				IsError:    ev.IsError,
			})
			if commit := c.machine.LastCommit(); commit != nil && commit != lastCommit {
				lastCommit = commit
				c.emit(Event{
					Type:          EventCommit,
					Iteration:     n,
					CommitHash:    commit.Hash,
					CommitMessage: commit.Message,
				})
			}
		}
	}

	prompt := buildPrompt(sel, c.cfg.BacklogPath)
	return c.cfg.Invoker.Invoke(ctx, prompt, c.cfg.WorkDir, handler)
}

func (c *Controller) buildResult(n int, result *agent.Result) IterationResult {
	ir := IterationResult{
		Iteration: n,
		Duration:  result.Duration,
		Stats:     collectStats(c.machine),
		CostUSD:   result.CostUSD,
		Usage:     result.Usage,
	}
	if !result.Success {
		ir.Error = result.ErrorMessage
		if ir.Error == "" {
			ir.Error = "agent reported failure"
		}
	}
	if commit := c.machine.LastCommit(); commit != nil {
		ir.CommitHash = commit.Hash
		ir.CommitMessage = commit.Message
	}
	return ir
}

func (c *Controller) emitNewlyPassed(n int, before, after *backlog.Spec) {
	for _, task := range after.Tasks {
		if task.Status != backlog.StatusPassed {
			continue
		}
		prev := before.Find(task.ID)
		if prev == nil || prev.Status != backlog.StatusPassed {
			c.emit(Event{
				Type:      EventTaskComplete,
				Iteration: n,
				TaskID:    task.ID,
				TaskTitle: task.Title,
			})
		}
	}
}

func (c *Controller) emitComplete(spec *backlog.Spec) {
	agg := spec.Aggregates()
	c.emit(Event{
		Type:            EventComplete,
		ResolvedTasks:   agg.ResolvedCount,
		TotalTasks:      agg.TaskCount,
		CompletedPoints: agg.CompletedPoints,
		TotalPoints:     agg.TotalPoints,
	})
}

// checkStagnation decides whether the loop ends after iteration n.
func (c *Controller) checkStagnation(n, noProgress int) (ExitStatus, bool, error) {
	if noProgress >= c.cfg.StuckThreshold {
		c.emit(Event{Type: EventStuck, Iteration: n})
		return ExitStuck, true, nil
	}
	if n == c.cfg.MaxIterations {
		return ExitMaxIterations, true, nil
	}
	return 0, false, nil
}

func (c *Controller) reportWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: backlog: %s\n", w)
	}
}
