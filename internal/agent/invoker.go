// Package agent is the invocation boundary to the external coding agent.
// One Invoke call spawns the agent process, streams its line-delimited JSON
// output through the decode/normalize pipeline, and delivers canonical
// events to the caller synchronously, in stream order.
package agent

import (
	"context"
	"time"

	"github.com/grindloop/grind/internal/events"
)

// Result is the outcome of one completed agent invocation. A Result with
// Success=false is a soft failure: the agent ran its turn but reported an
// error. Process-level failures (spawn, transport) are returned as errors
// from Invoke instead and are fatal to the loop.
type Result struct {
	Success      bool
	Duration     time.Duration
	CostUSD      float64
	Usage        *events.Usage
	ErrorMessage string
}

// Invoker runs one agent turn against a prompt in a working directory.
type Invoker interface {
	Invoke(ctx context.Context, prompt, workDir string, handler events.Handler) (*Result, error)
}
