package events

import "time"

// pendingTool is a tool invocation awaiting its result record.
type pendingTool struct {
	name      string
	input     map[string]interface{}
	startTime time.Time
}

// Correlator matches a tool-invocation-start to its later result across
// message boundaries. It is owned by exactly one agent invocation: construct
// a fresh one per invocation and discard it at invocation end, so stale
// correlations can never leak between iterations.
type Correlator struct {
	pending map[string]pendingTool
	now     func() time.Time
}

// NewCorrelator creates a Correlator with an empty pending map.
func NewCorrelator() *Correlator {
	return &Correlator{
		pending: make(map[string]pendingTool),
		now:     time.Now,
	}
}

// Register records a tool invocation keyed by its correlation ID.
func (c *Correlator) Register(id, name string, input map[string]interface{}) {
	c.pending[id] = pendingTool{name: name, input: input, startTime: c.now()}
}

// Resolve looks up and removes the pending entry for id. On a hit it returns
// the original tool name, input, and elapsed duration. On a miss (an orphaned
// result) ok is false and the zero values are returned.
func (c *Correlator) Resolve(id string) (name string, input map[string]interface{}, elapsed time.Duration, ok bool) {
	p, found := c.pending[id]
	if !found {
		return "", nil, 0, false
	}
	delete(c.pending, id)
	return p.name, p.input, c.now().Sub(p.startTime), true
}

// PendingCount reports how many invocations are still awaiting results.
func (c *Correlator) PendingCount() int {
	return len(c.pending)
}
