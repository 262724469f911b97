package backlog

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MalformedSpecError reports a structural violation in the persisted backlog:
// a missing required field or a duplicate task ID. It is raised to the
// caller, never silently repaired.
type MalformedSpecError struct {
	TaskID string // ID of the offending task, if known
	Index  int    // position in the task list
	Reason string
}

func (e *MalformedSpecError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("malformed backlog: task %s: %s", e.TaskID, e.Reason)
	}
	return fmt.Sprintf("malformed backlog: task #%d: %s", e.Index+1, e.Reason)
}

// Parse decodes backlog YAML and validates its structure. Warnings cover
// tolerated oddities (non-sequential IDs) that the operator should see but
// that do not fail the parse.
func Parse(data []byte) (*Spec, []string, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, nil, fmt.Errorf("parsing backlog YAML: %w", err)
	}

	seen := make(map[string]bool, len(spec.Tasks))
	var warnings []string
	prevNum := 0

	for i, task := range spec.Tasks {
		if task.ID == "" {
			return nil, nil, &MalformedSpecError{Index: i, Reason: "missing required field: id"}
		}
		if task.Status == "" {
			return nil, nil, &MalformedSpecError{TaskID: task.ID, Index: i, Reason: "missing required field: status"}
		}
		if task.Size == "" {
			return nil, nil, &MalformedSpecError{TaskID: task.ID, Index: i, Reason: "missing required field: size"}
		}
		if !ValidStatus(task.Status) {
			return nil, nil, &MalformedSpecError{TaskID: task.ID, Index: i, Reason: fmt.Sprintf("unknown status %q", task.Status)}
		}
		if !ValidSize(task.Size) {
			return nil, nil, &MalformedSpecError{TaskID: task.ID, Index: i, Reason: fmt.Sprintf("unknown size %q (want S, M, or L)", task.Size)}
		}
		if seen[task.ID] {
			return nil, nil, &MalformedSpecError{TaskID: task.ID, Index: i, Reason: "duplicate task ID"}
		}
		seen[task.ID] = true

		// ID gaps are tolerated, just surfaced.
		if m := taskIDPattern.FindStringSubmatch(task.ID); m != nil {
			num, _ := strconv.Atoi(m[1])
			if prevNum != 0 && num != prevNum+1 {
				warnings = append(warnings,
					fmt.Sprintf("non-sequential task ID %s after T%03d", task.ID, prevNum))
			}
			prevNum = num
		} else {
			warnings = append(warnings, fmt.Sprintf("task ID %s does not match T<number> convention", task.ID))
		}
	}

	return &spec, warnings, nil
}

// Load reads and parses the backlog file at path.
func Load(path string) (*Spec, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading backlog file: %w", err)
	}
	return Parse(data)
}

// Marshal renders the spec back to its persisted YAML form.
func (s *Spec) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling backlog: %w", err)
	}
	return data, nil
}

// Save writes the spec to path. Status mutations are persisted immediately
// after they are applied; the file is the single source of truth.
func (s *Spec) Save(path string) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing backlog file: %w", err)
	}
	return nil
}
