package loop

import (
	"time"

	"github.com/grindloop/grind/internal/activity"
	"github.com/grindloop/grind/internal/events"
)

// Stats summarizes the activity observed during one invocation.
type Stats struct {
	ToolCalls  int
	ToolErrors int
	Thoughts   int
	Groups     int
	FinalPhase activity.Phase
}

// IterationResult records the outcome of one loop cycle. It is created once
// per iteration, immutable after creation, and appended to an in-memory
// history used only for the final summary.
type IterationResult struct {
	Iteration     int
	Duration      time.Duration
	Stats         Stats
	Error         string
	CommitHash    string
	CommitMessage string
	CostUSD       float64
	Usage         *events.Usage
}

// collectStats derives invocation stats from the activity machine.
func collectStats(m *activity.Machine) Stats {
	s := Stats{
		Groups:     len(m.Groups()),
		FinalPhase: m.Phase(),
	}
	for _, item := range m.Log() {
		switch item.Type {
		case activity.ItemToolComplete:
			s.ToolCalls++
			if item.IsError {
				s.ToolErrors++
			}
		case activity.ItemThought:
			s.Thoughts++
		}
	}
	return s
}
