package loop

import "time"

// EventType identifies a lifecycle notification from the controller.
type EventType string

const (
	// EventStarted is emitted once when the loop begins.
	EventStarted EventType = "started"
	// EventIteration is emitted at the start of each iteration.
	EventIteration EventType = "iteration"
	// EventTool is emitted for each completed tool invocation.
	EventTool EventType = "tool"
	// EventCommit is emitted when a git commit is detected in agent output.
	EventCommit EventType = "commit"
	// EventTaskComplete is emitted for each task that newly passed.
	EventTaskComplete EventType = "task_complete"
	// EventIterationDone is emitted when an iteration finishes.
	EventIterationDone EventType = "iteration_done"
	// EventStuck is emitted once when stagnation is detected.
	EventStuck EventType = "stuck"
	// EventComplete is emitted once when the backlog is fully resolved.
	EventComplete EventType = "complete"
	// EventFailed is emitted once on a fatal invocation error.
	EventFailed EventType = "failed"
)

// Event is one flat lifecycle record, emitted exactly once at the
// corresponding controller transition. The channel is append-only and
// one-way: there is no acknowledgment protocol.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Iteration int       `json:"iteration,omitempty"`

	// Tool completions.
	Tool       string `json:"tool,omitempty"`
	Category   string `json:"category,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`

	// Commits.
	CommitHash    string `json:"commit_hash,omitempty"`
	CommitMessage string `json:"commit_message,omitempty"`

	// Task completions.
	TaskID    string `json:"task_id,omitempty"`
	TaskTitle string `json:"task_title,omitempty"`

	// Backlog progress snapshot.
	ResolvedTasks   int `json:"resolved_tasks,omitempty"`
	TotalTasks      int `json:"total_tasks,omitempty"`
	CompletedPoints int `json:"completed_points,omitempty"`
	TotalPoints     int `json:"total_points,omitempty"`

	// Failure detail.
	Error string `json:"error,omitempty"`
}

// Sink consumes lifecycle events. Implementations must not block: the
// controller emits synchronously from the loop control flow.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Emit calls f(ev).
func (f SinkFunc) Emit(ev Event) { f(ev) }

// multiSink fans one event out to several sinks in order.
type multiSink []Sink

func (m multiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// MultiSink combines sinks; nil entries are dropped.
func MultiSink(sinks ...Sink) Sink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
