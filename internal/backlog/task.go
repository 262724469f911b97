// Package backlog models the persisted, size-weighted task list that drives
// each iteration, and selects work against a point budget.
package backlog

import (
	"fmt"
	"regexp"
)

// Status is a task's lifecycle state. Transitions only move forward:
// pending → in_progress → {passed, failed}; in_progress is never skipped.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusPassed     Status = "passed"
	StatusFailed     Status = "failed"
)

// ValidStatus reports whether s is a recognized status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusPassed, StatusFailed:
		return true
	}
	return false
}

// canTransition enforces the forward-only status lifecycle.
func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusInProgress
	case StatusInProgress:
		return to == StatusPassed || to == StatusFailed
	}
	return false
}

// Size is a task's abstract cost bucket.
type Size string

const (
	SizeSmall  Size = "S"
	SizeMedium Size = "M"
	SizeLarge  Size = "L"
)

// Points converts a size to its point cost: S=1, M=2, L=4.
func (s Size) Points() int {
	switch s {
	case SizeSmall:
		return 1
	case SizeMedium:
		return 2
	case SizeLarge:
		return 4
	}
	return 0
}

// ValidSize reports whether s is a recognized size value.
func ValidSize(s Size) bool {
	return s == SizeSmall || s == SizeMedium || s == SizeLarge
}

// Task is one unit of work in the backlog.
type Task struct {
	ID           string   `yaml:"id"`
	Title        string   `yaml:"title"`
	Status       Status   `yaml:"status"`
	Size         Size     `yaml:"size"`
	Deliverables []string `yaml:"deliverables,omitempty"`
	Verify       string   `yaml:"verify,omitempty"`
}

// Resolved reports whether the task reached a terminal status.
func (t *Task) Resolved() bool {
	return t.Status == StatusPassed || t.Status == StatusFailed
}

// taskIDPattern matches IDs like T001, T042.
var taskIDPattern = regexp.MustCompile(`^T(\d+)$`)

// Spec is the parsed backlog: an ordered task list. It is parsed fresh from
// the persisted file at the start of each iteration, never cached in memory
// across iterations.
type Spec struct {
	Tasks []*Task `yaml:"tasks"`
}

// Aggregates are point totals derived from the task list. They are a pure
// function of the current contents and are recomputed on every call.
type Aggregates struct {
	TotalPoints     int
	CompletedPoints int // points of passed tasks
	PendingPoints   int // points of pending and in_progress tasks
	ResolvedCount   int // tasks that are passed or failed
	TaskCount       int
}

// Aggregates computes point totals for the spec.
func (s *Spec) Aggregates() Aggregates {
	var agg Aggregates
	for _, t := range s.Tasks {
		pts := t.Size.Points()
		agg.TotalPoints += pts
		agg.TaskCount++
		switch t.Status {
		case StatusPassed:
			agg.CompletedPoints += pts
		case StatusPending, StatusInProgress:
			agg.PendingPoints += pts
		}
		if t.Resolved() {
			agg.ResolvedCount++
		}
	}
	return agg
}

// FullyResolved reports whether every task is passed or failed.
func (s *Spec) FullyResolved() bool {
	for _, t := range s.Tasks {
		if !t.Resolved() {
			return false
		}
	}
	return len(s.Tasks) > 0
}

// Find returns the task with the given ID, or nil.
func (s *Spec) Find(id string) *Task {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// UpdateStatus moves a task to a new status, enforcing the forward-only
// lifecycle. It mutates in-memory state only; callers persist via Save.
func (s *Spec) UpdateStatus(id string, to Status) error {
	task := s.Find(id)
	if task == nil {
		return fmt.Errorf("no such task: %s", id)
	}
	if !ValidStatus(to) {
		return fmt.Errorf("invalid status %q for task %s", to, id)
	}
	if !canTransition(task.Status, to) {
		return fmt.Errorf("invalid status transition for task %s: %s → %s", id, task.Status, to)
	}
	task.Status = to
	return nil
}
