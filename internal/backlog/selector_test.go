package backlog

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingTask(id string, size Size) *Task {
	return &Task{ID: id, Title: id, Status: StatusPending, Size: size}
}

func TestSelectExampleFromBudgetFour(t *testing.T) {
	spec := &Spec{Tasks: []*Task{
		pendingTask("T001", SizeSmall),
		pendingTask("T002", SizeMedium),
		pendingTask("T003", SizeLarge),
	}}

	sel := Select(spec, 4)
	require.Len(t, sel.Tasks, 2)
	assert.Equal(t, "T001", sel.Tasks[0].ID)
	assert.Equal(t, "T002", sel.Tasks[1].ID)
	assert.Equal(t, 3, sel.Points)
	assert.Equal(t, 1, sel.Remaining)
	require.Len(t, sel.Skipped, 1)
	assert.Equal(t, "T003", sel.Skipped[0].ID)
	assert.False(t, sel.BacklogComplete)
}

func TestSelectInProgressBeforePending(t *testing.T) {
	spec := &Spec{Tasks: []*Task{
		pendingTask("T001", SizeMedium),
		{ID: "T002", Status: StatusInProgress, Size: SizeMedium},
	}}

	sel := Select(spec, 2)
	require.Len(t, sel.Tasks, 1)
	assert.Equal(t, "T002", sel.Tasks[0].ID, "interrupted work resumes first regardless of position")
	require.Len(t, sel.Skipped, 1)
	assert.Equal(t, "T001", sel.Skipped[0].ID)
}

func TestSelectContinuesPastRejected(t *testing.T) {
	spec := &Spec{Tasks: []*Task{
		pendingTask("T001", SizeLarge),
		pendingTask("T002", SizeSmall),
	}}

	sel := Select(spec, 2)
	require.Len(t, sel.Tasks, 1)
	assert.Equal(t, "T002", sel.Tasks[0].ID, "first-fit keeps scanning past oversized tasks")
	assert.Equal(t, 1, sel.Remaining)
}

func TestSelectSkipsResolvedTasks(t *testing.T) {
	spec := &Spec{Tasks: []*Task{
		{ID: "T001", Status: StatusPassed, Size: SizeSmall},
		{ID: "T002", Status: StatusFailed, Size: SizeSmall},
		pendingTask("T003", SizeSmall),
	}}

	sel := Select(spec, 10)
	require.Len(t, sel.Tasks, 1)
	assert.Equal(t, "T003", sel.Tasks[0].ID)
}

func TestSelectEmptyVersusComplete(t *testing.T) {
	// Nothing fits: smallest pending exceeds budget.
	over := &Spec{Tasks: []*Task{pendingTask("T001", SizeLarge)}}
	sel := Select(over, 2)
	assert.True(t, sel.Empty())
	assert.False(t, sel.BacklogComplete)
	require.Len(t, sel.Skipped, 1)

	// Nothing left: every task resolved.
	done := &Spec{Tasks: []*Task{{ID: "T001", Status: StatusPassed, Size: SizeSmall}}}
	sel = Select(done, 2)
	assert.False(t, sel.Empty())
	assert.True(t, sel.BacklogComplete)
	assert.Empty(t, sel.Tasks)
}

// The selection never exceeds the budget, for any ordering, sizes, or
// statuses.
func TestSelectNeverExceedsBudget(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	sizes := []Size{SizeSmall, SizeMedium, SizeLarge}
	statuses := []Status{StatusPending, StatusInProgress, StatusPassed, StatusFailed}

	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(12)
		spec := &Spec{}
		for i := 0; i < n; i++ {
			spec.Tasks = append(spec.Tasks, &Task{
				ID:     string(rune('A' + trial%26)),
				Status: statuses[rng.Intn(len(statuses))],
				Size:   sizes[rng.Intn(len(sizes))],
			})
		}
		budget := rng.Intn(10)
		sel := Select(spec, budget)

		total := 0
		for _, task := range sel.Tasks {
			total += task.Size.Points()
		}
		require.Equal(t, total, sel.Points)
		require.LessOrEqual(t, sel.Points, budget,
			"trial %d: selection exceeded budget", trial)
		require.Equal(t, budget-sel.Points, sel.Remaining)
	}
}
