package activity

// Phase is the derived operational phase of the current invocation. It is
// never stored as authoritative state: it is recomputed from a snapshot of
// the active tool categories plus whether text or a terminal result has
// been seen.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseReading  Phase = "reading"
	PhaseEditing  Phase = "editing"
	PhaseRunning  Phase = "running"
	PhaseThinking Phase = "thinking"
	PhaseDone     Phase = "done"
)

// phaseSnapshot is the complete input to phase derivation, kept explicit so
// the derivation stays a pure, trivially testable function.
type phaseSnapshot struct {
	activeCategories map[Category]int
	textSeen         bool
	resultSeen       bool
}

// derivePhase computes the phase for a snapshot. Priority, highest first:
// editing > running > reading > thinking > idle. A terminal result wins over
// everything. Meta tools do not elevate the phase.
func derivePhase(s phaseSnapshot) Phase {
	if s.resultSeen {
		return PhaseDone
	}
	if s.activeCategories[CategoryWrite] > 0 {
		return PhaseEditing
	}
	if s.activeCategories[CategoryCommand] > 0 {
		return PhaseRunning
	}
	if s.activeCategories[CategoryRead] > 0 {
		return PhaseReading
	}
	if s.textSeen {
		return PhaseThinking
	}
	return PhaseIdle
}
