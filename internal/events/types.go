// Package events normalizes provider-specific agent stream records into a
// small canonical event vocabulary and correlates tool invocations with
// their results.
package events

import "time"

// Kind identifies the canonical event variant.
type Kind string

const (
	// KindInit indicates the agent session initialized.
	KindInit Kind = "init"
	// KindToolStart indicates the agent invoked a tool.
	KindToolStart Kind = "tool_start"
	// KindToolEnd indicates a tool invocation produced its result.
	KindToolEnd Kind = "tool_end"
	// KindText indicates an assistant text block (reasoning/narration).
	KindText Kind = "text"
	// KindResult indicates the terminal record for one invocation.
	KindResult Kind = "result"
	// KindError indicates a record that could not be processed.
	KindError Kind = "error"
)

// Usage carries aggregate token accounting from the terminal result record.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Event is the canonical, provider-agnostic representation of one meaningful
// occurrence in the agent's output stream. Exactly the fields for the given
// Kind are populated; everything an event needs is carried inline so each
// one can be processed independently of arrival order. The single exception
// is ToolEnd, which is only fully resolved (Name, Input, Duration) once
// matched to its prior ToolStart by correlation ID.
type Event struct {
	Kind      Kind
	Timestamp time.Time

	// Init
	SessionID string
	Model     string

	// ToolStart / ToolEnd. ID is the correlation ID linking the pair.
	ID    string
	Name  string
	Input map[string]interface{}

	// ToolEnd
	Output   string
	IsError  bool
	Duration time.Duration
	// Orphaned is set on a ToolEnd with no matching ToolStart. It is still
	// emitted (display tooling shows it without a duration) rather than
	// dropped.
	Orphaned bool

	// Text
	Text string

	// Result
	CostUSD float64
	Usage   *Usage

	// Error
	Message string
}

// Handler receives canonical events synchronously, in stream order.
type Handler func(Event)
