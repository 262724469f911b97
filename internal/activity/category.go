// Package activity derives a live picture of what the agent is doing from
// the canonical event stream: active tools, grouped completions, a rolling
// activity log, the current operational phase, and the last detected commit.
package activity

// Category classifies tools by the kind of work they represent. Phase
// derivation and completion grouping both key off it.
type Category string

const (
	// CategoryRead covers file inspection and search tools.
	CategoryRead Category = "read"
	// CategoryWrite covers file creation and mutation tools.
	CategoryWrite Category = "write"
	// CategoryCommand covers shell execution tools.
	CategoryCommand Category = "command"
	// CategoryMeta covers planning/bookkeeping tools and anything unknown.
	// Meta tools never elevate the phase above idle/thinking on their own.
	CategoryMeta Category = "meta"
)

// toolCategories maps tool names to their category. Unknown names fall back
// to CategoryMeta.
var toolCategories = map[string]Category{
	"Read":         CategoryRead,
	"Glob":         CategoryRead,
	"Grep":         CategoryRead,
	"LS":           CategoryRead,
	"WebFetch":     CategoryRead,
	"WebSearch":    CategoryRead,
	"NotebookRead": CategoryRead,

	"Write":        CategoryWrite,
	"Edit":         CategoryWrite,
	"MultiEdit":    CategoryWrite,
	"NotebookEdit": CategoryWrite,

	"Bash": CategoryCommand,

	"Task":         CategoryMeta,
	"TodoWrite":    CategoryMeta,
	"ExitPlanMode": CategoryMeta,
}

// CategoryFor returns the category for a tool name.
func CategoryFor(toolName string) Category {
	if c, ok := toolCategories[toolName]; ok {
		return c
	}
	return CategoryMeta
}
