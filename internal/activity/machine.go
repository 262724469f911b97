package activity

import (
	"time"

	"github.com/google/uuid"

	"github.com/grindloop/grind/internal/events"
)

// activityLogCap bounds the rolling activity log. The cap exists purely for
// display and memory reasons; eviction has no semantic effect.
const activityLogCap = 50

// ItemType identifies an entry in the rolling activity log.
type ItemType string

const (
	ItemThought      ItemType = "thought"
	ItemToolStart    ItemType = "tool_start"
	ItemToolComplete ItemType = "tool_complete"
	ItemCommit       ItemType = "commit"
)

// Item is one entry in the rolling activity log.
type Item struct {
	ID        string
	Type      ItemType
	Timestamp time.Time
	Tool      string
	Category  Category
	Text      string
	Duration  time.Duration
	IsError   bool
}

// ActiveTool is a tool invocation that has started but not yet completed.
type ActiveTool struct {
	ID        string
	Name      string
	Category  Category
	StartTime time.Time
	Input     map[string]interface{}
}

// Group accumulates consecutive tool completions sharing a category, so a
// long chain of same-kind calls (say thirty file reads) compresses into one
// entry with a count and aggregate duration. A completion of a different
// category always closes the group and opens a new one, preserving the
// read→write→run shape of the invocation.
type Group struct {
	Category  Category
	Tools     []string
	Total     time.Duration
	HasErrors bool
}

// Machine consumes canonical events for one invocation and maintains the
// derived activity state. It is single-writer: the event callback runs
// synchronously, so no locking is needed within an invocation.
type Machine struct {
	active     map[string]*ActiveTool
	groups     []*Group
	items      []Item
	textSeen   bool
	resultSeen bool
	lastCommit *Commit
	now        func() time.Time
}

// NewMachine creates a Machine with empty state.
func NewMachine() *Machine {
	return &Machine{
		active: make(map[string]*ActiveTool),
		now:    time.Now,
	}
}

// Reset clears all state for the next invocation.
func (m *Machine) Reset() {
	m.active = make(map[string]*ActiveTool)
	m.groups = nil
	m.items = nil
	m.textSeen = false
	m.resultSeen = false
	m.lastCommit = nil
}

// Handle applies one canonical event to the machine state.
func (m *Machine) Handle(ev events.Event) {
	switch ev.Kind {
	case events.KindToolStart:
		m.handleToolStart(ev)
	case events.KindToolEnd:
		m.handleToolEnd(ev)
	case events.KindText:
		m.textSeen = true
		m.appendItem(Item{Type: ItemThought, Text: ev.Text})
	case events.KindResult:
		m.resultSeen = true
	}
}

func (m *Machine) handleToolStart(ev events.Event) {
	cat := CategoryFor(ev.Name)
	m.active[ev.ID] = &ActiveTool{
		ID:        ev.ID,
		Name:      ev.Name,
		Category:  cat,
		StartTime: ev.Timestamp,
		Input:     ev.Input,
	}
	m.appendItem(Item{Type: ItemToolStart, Tool: ev.Name, Category: cat})
}

func (m *Machine) handleToolEnd(ev events.Event) {
	delete(m.active, ev.ID)

	cat := CategoryFor(ev.Name)
	m.appendGroup(cat, ev.Name, ev.Duration, ev.IsError)
	m.appendItem(Item{
		Type:     ItemToolComplete,
		Tool:     ev.Name,
		Category: cat,
		Duration: ev.Duration,
		IsError:  ev.IsError,
	})

	if cat == CategoryCommand {
		command, _ := ev.Input["command"].(string)
		if commit, ok := detectCommit(command, ev.Output); ok {
			m.lastCommit = &commit
			m.appendItem(Item{Type: ItemCommit, Text: commit.Message, Tool: commit.Hash})
		}
	}
}

// appendGroup extends the most recent group when the category matches;
// otherwise it opens a new one.
func (m *Machine) appendGroup(cat Category, tool string, d time.Duration, isError bool) {
	if len(m.groups) > 0 {
		last := m.groups[len(m.groups)-1]
		if last.Category == cat {
			last.Tools = append(last.Tools, tool)
			last.Total += d
			last.HasErrors = last.HasErrors || isError
			return
		}
	}
	m.groups = append(m.groups, &Group{
		Category:  cat,
		Tools:     []string{tool},
		Total:     d,
		HasErrors: isError,
	})
}

func (m *Machine) appendItem(item Item) {
	item.ID = uuid.New().String()
	if item.Timestamp.IsZero() {
		item.Timestamp = m.now()
	}
	m.items = append(m.items, item)
	if len(m.items) > activityLogCap {
		m.items = m.items[len(m.items)-activityLogCap:]
	}
}

// Phase recomputes the current phase from a snapshot of the machine state.
func (m *Machine) Phase() Phase {
	counts := make(map[Category]int, len(m.active))
	for _, tool := range m.active {
		counts[tool.Category]++
	}
	return derivePhase(phaseSnapshot{
		activeCategories: counts,
		textSeen:         m.textSeen,
		resultSeen:       m.resultSeen,
	})
}

// ActiveTools returns the currently running tool invocations.
func (m *Machine) ActiveTools() []*ActiveTool {
	tools := make([]*ActiveTool, 0, len(m.active))
	for _, t := range m.active {
		tools = append(tools, t)
	}
	return tools
}

// Groups returns the completed-tool groups in completion order.
func (m *Machine) Groups() []*Group {
	return m.groups
}

// Log returns the rolling activity log, oldest first, at most 50 entries.
func (m *Machine) Log() []Item {
	return m.items
}

// LastCommit returns the most recently detected commit, or nil.
func (m *Machine) LastCommit() *Commit {
	return m.lastCommit
}
