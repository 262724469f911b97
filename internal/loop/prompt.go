package loop

import (
	"fmt"
	"strings"

	"github.com/grindloop/grind/internal/backlog"
)

// buildPrompt renders the selected tasks into the instruction text for one
// agent invocation. The agent is told to record outcomes in the backlog
// file itself; the controller never trusts in-memory state for progress.
func buildPrompt(sel *backlog.Selection, backlogPath string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Work through the following tasks from %s, in order.\n\n", backlogPath)
	for _, task := range sel.Tasks {
		fmt.Fprintf(&b, "%s (%s): %s\n", task.ID, task.Size, task.Title)
		for _, d := range task.Deliverables {
			fmt.Fprintf(&b, "  - %s\n", d)
		}
		if task.Verify != "" {
			fmt.Fprintf(&b, "  verify: %s\n", task.Verify)
		}
	}

	b.WriteString("\nFor each task: implement it, run its verify command if present, ")
	b.WriteString("commit your work, and set the task's status to \"passed\" ")
	b.WriteString("(or \"failed\" if it cannot be completed) in ")
	b.WriteString(backlogPath)
	b.WriteString(". Do not change any other task's status.\n")

	return b.String()
}
