package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"golang.org/x/time/rate"

	"github.com/grindloop/grind/internal/loop"
)

// displaySink renders lifecycle events as human-readable terminal lines.
// Tool completions are rate-limited so a fast agent doesn't flood the
// terminal; milestone events always print.
type displaySink struct {
	out        io.Writer
	toolLimit  *rate.Limiter
	suppressed int
}

func newDisplaySink(out io.Writer) *displaySink {
	return &displaySink{
		out: out,
		// At most 5 tool lines per second, small burst for start-of-turn.
		toolLimit: rate.NewLimiter(rate.Limit(5), 10),
	}
}

func (d *displaySink) Emit(ev loop.Event) {
	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	timestamp := ev.Timestamp.Format("15:04:05")

	switch ev.Type {
	case loop.EventStarted:
		fmt.Fprintf(d.out, "%s Backlog: %d/%d tasks resolved, %d/%d points\n",
			gray("→"), ev.ResolvedTasks, ev.TotalTasks, ev.CompletedPoints, ev.TotalPoints)

	case loop.EventIteration:
		fmt.Fprintf(d.out, "\n%s [%s] Iteration %d\n", cyan("▶"), timestamp, ev.Iteration)

	case loop.EventTool:
		if !d.toolLimit.Allow() {
			d.suppressed++
			return
		}
		if d.suppressed > 0 {
			fmt.Fprintf(d.out, "  %s\n", gray(fmt.Sprintf("… %d more tool calls", d.suppressed)))
			d.suppressed = 0
		}
		mark := gray("·")
		if ev.IsError {
			mark = red("✗")
		}
		fmt.Fprintf(d.out, "  %s %s %s\n", mark, ev.Tool, gray(fmt.Sprintf("(%s, %dms)", ev.Category, ev.DurationMs)))

	case loop.EventCommit:
		fmt.Fprintf(d.out, "  %s [%s] %s\n", green("●"), cyan(ev.CommitHash), ev.CommitMessage)

	case loop.EventTaskComplete:
		fmt.Fprintf(d.out, "  %s %s %s\n", green("✓"), ev.TaskID, ev.TaskTitle)

	case loop.EventIterationDone:
		d.suppressed = 0
		line := fmt.Sprintf("Iteration %d done: %d/%d tasks, %d/%d points",
			ev.Iteration, ev.ResolvedTasks, ev.TotalTasks, ev.CompletedPoints, ev.TotalPoints)
		if ev.Error != "" {
			fmt.Fprintf(d.out, "%s %s %s\n", yellow("⚠"), line, gray("("+ev.Error+")"))
		} else {
			fmt.Fprintf(d.out, "%s %s\n", gray("→"), line)
		}

	case loop.EventStuck:
		fmt.Fprintf(d.out, "\n%s Stuck after iteration %d: no recent progress, giving up\n", yellow("⚠"), ev.Iteration)

	case loop.EventComplete:
		fmt.Fprintf(d.out, "\n%s All %d tasks resolved (%d points)\n", green("✓"), ev.TotalTasks, ev.TotalPoints)

	case loop.EventFailed:
		fmt.Fprintf(d.out, "\n%s Fatal: %s\n", red("✗"), ev.Error)
	}
}

// jsonSink writes one JSON object per lifecycle event, for piping into
// other tools.
type jsonSink struct {
	enc *json.Encoder
}

func newJSONSink(out io.Writer) *jsonSink {
	return &jsonSink{enc: json.NewEncoder(out)}
}

func (j *jsonSink) Emit(ev loop.Event) {
	if err := j.enc.Encode(ev); err != nil {
		// Stdout is gone; nothing sensible to do but drop.
		return
	}
}
