package backlog

// Selection is the outcome of budgeted task selection.
type Selection struct {
	// Tasks are the accepted tasks, in_progress first, then pending, each
	// group in declared order.
	Tasks []*Task
	// Points is the summed cost of the accepted tasks. Never exceeds the
	// budget given to Select.
	Points int
	// Remaining is the budget left after selection.
	Remaining int
	// Skipped are unresolved tasks rejected because their cost exceeded the
	// remaining budget at the time they were scanned.
	Skipped []*Task
	// BacklogComplete distinguishes "nothing left to do" from "nothing fit":
	// true when the backlog has no unresolved tasks at all.
	BacklogComplete bool
}

// Empty reports whether nothing was selected even though unresolved work
// remains (the smallest candidate exceeded the budget).
func (sel *Selection) Empty() bool {
	return len(sel.Tasks) == 0 && !sel.BacklogComplete
}

// Select chooses tasks first-fit against a point budget. Two passes over the
// declared order: in_progress tasks first (interrupted work resumes before
// new work starts), then pending. A rejected task does not stop the scan —
// later, smaller tasks may still fit. This is deliberately not bin-packing:
// the author's task ordering encodes dependency sequencing, which is worth
// more than squeezing out every point.
func Select(spec *Spec, budget int) *Selection {
	sel := &Selection{Remaining: budget, BacklogComplete: true}

	scan := func(status Status) {
		for _, task := range spec.Tasks {
			if task.Status != status {
				continue
			}
			sel.BacklogComplete = false
			cost := task.Size.Points()
			if cost <= sel.Remaining {
				sel.Tasks = append(sel.Tasks, task)
				sel.Points += cost
				sel.Remaining -= cost
			} else {
				sel.Skipped = append(sel.Skipped, task)
			}
		}
	}

	scan(StatusInProgress)
	scan(StatusPending)
	return sel
}
