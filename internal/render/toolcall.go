package render

import (
	"fmt"
	"strings"
)

// TodoStyle selects how TodoWrite calls are summarized
type TodoStyle string

const (
	// TodoSummary lists at most TodoLimit items followed by a "(+K more)" line
	TodoSummary TodoStyle = "summary"
	// TodoChecklist lists every item
	TodoChecklist TodoStyle = "checklist"
)

// DefaultTodoLimit is the number of todo items shown in summary style
const DefaultTodoLimit = 5

// ParseTodoStyle validates a style name; empty selects the summary style
func ParseTodoStyle(s string) (TodoStyle, error) {
	switch TodoStyle(s) {
	case "", TodoSummary:
		return TodoSummary, nil
	case TodoChecklist:
		return TodoChecklist, nil
	default:
		return "", fmt.Errorf("unsupported todo style: %s (supported: summary, checklist)", s)
	}
}

// ToolFormatter turns a tool invocation into a short human-readable summary
type ToolFormatter struct {
	TodoStyle TodoStyle
	TodoLimit int
}

// NewToolFormatter creates a formatter; a non-positive limit uses the default
func NewToolFormatter(style TodoStyle, limit int) *ToolFormatter {
	if style == "" {
		style = TodoSummary
	}
	if limit <= 0 {
		limit = DefaultTodoLimit
	}
	return &ToolFormatter{TodoStyle: style, TodoLimit: limit}
}

// Format never fails: unknown tools and malformed arguments fall back to
// the bare "[name]" form.
func (f *ToolFormatter) Format(name string, input map[string]interface{}) string {
	switch name {
	case "Read", "Write", "Edit":
		return fmt.Sprintf("[%s] %s", name, argString(input, "file_path"))
	case "Glob", "Grep":
		return fmt.Sprintf("[%s] %s", name, argString(input, "pattern"))
	case "Bash":
		// commands can hold secrets or whole scripts
		return "[Bash]"
	case "Task":
		return fmt.Sprintf("[Task] %s (%s)", argString(input, "description"), argString(input, "subagent_type"))
	case "TodoWrite":
		return f.formatTodos(input)
	case "WebFetch":
		return fmt.Sprintf("[WebFetch] %s", argString(input, "url"))
	case "WebSearch":
		return fmt.Sprintf("[WebSearch] %s", argString(input, "query"))
	}
	return fmt.Sprintf("[%s]", name)
}

func (f *ToolFormatter) formatTodos(input map[string]interface{}) string {
	todos, _ := input["todos"].([]interface{})
	if len(todos) == 0 {
		return "[TodoWrite]"
	}

	shown := todos
	if f.TodoStyle != TodoChecklist && len(todos) > f.TodoLimit {
		shown = todos[:f.TodoLimit]
	}

	lines := []string{"[TodoWrite]"}
	for _, raw := range shown {
		item, _ := raw.(map[string]interface{})
		checkbox := "[ ]"
		if argString(item, "status") == "completed" {
			checkbox = "[x]"
		}
		lines = append(lines, fmt.Sprintf("  - %s %s", checkbox, argString(item, "content")))
	}
	if hidden := len(todos) - len(shown); hidden > 0 {
		lines = append(lines, fmt.Sprintf("  (+%d more)", hidden))
	}
	return strings.Join(lines, "\n")
}

// argString reads a display value; missing keys and nil render as empty
func argString(input map[string]interface{}, key string) string {
	v, ok := input[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
