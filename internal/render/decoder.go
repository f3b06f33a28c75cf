package render

import (
	"regexp"
	"strings"

	"github.com/mtaran/crdbextract/internal"
)

// Roles the merger knows how to lay out
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// IDESelectionMarker replaces an IDE selection block in visible text
const IDESelectionMarker = "[IDE Selection]"

var (
	ideSelectionRe  = regexp.MustCompile(`(?s)<ide_selection>.*?</ide_selection>`)
	ideOpenedFileRe = regexp.MustCompile(`(?s)<ide_opened_file>.*?</ide_opened_file>`)
	systemReminder  = regexp.MustCompile(`(?s)<system-reminder>.*?</system-reminder>`)
)

// MessagePart is the normalized, renderable form of one event
type MessagePart struct {
	Role      string   `json:"role" yaml:"role"`
	Model     string   `json:"model,omitempty" yaml:"model,omitempty"`
	Text      string   `json:"text,omitempty" yaml:"text,omitempty"`
	Thinking  string   `json:"thinking,omitempty" yaml:"thinking,omitempty"`
	ToolCalls []string `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`
	Timestamp string   `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// IsEmpty reports whether the part has nothing to show
func (p *MessagePart) IsEmpty() bool {
	return p.Text == "" && p.Thinking == "" && len(p.ToolCalls) == 0
}

// Decoder normalizes raw events. It holds no per-call state.
type Decoder struct {
	tools *ToolFormatter
}

// NewDecoder creates a decoder using the given tool formatter
func NewDecoder(tools *ToolFormatter) *Decoder {
	if tools == nil {
		tools = NewToolFormatter(TodoSummary, DefaultTodoLimit)
	}
	return &Decoder{tools: tools}
}

// Decode returns the renderable part for an event, or false when the event
// has nothing to show. This is the only place events are filtered.
func (d *Decoder) Decode(e *internal.RawEvent) (*MessagePart, bool) {
	if e == nil || e.IsBookkeeping() {
		return nil, false
	}

	role := e.Role()
	segments := e.Segments()

	var texts, thoughts, tools []string
	for _, seg := range segments {
		switch seg.Type {
		case internal.SegmentText:
			texts = append(texts, seg.Text)
		case internal.SegmentThinking:
			thoughts = append(thoughts, seg.Thinking)
		case internal.SegmentToolUse:
			name := seg.Name
			if name == "" {
				name = "unknown"
			}
			tools = append(tools, d.tools.Format(name, seg.Input))
		case internal.SegmentToolResult:
			if role == RoleUser {
				return nil, false
			}
		}
	}

	part := &MessagePart{
		Role:      role,
		Model:     ModelTag(e.Model()),
		Text:      CleanText(strings.Join(texts, "\n")),
		Thinking:  strings.TrimSpace(strings.Join(thoughts, "\n")),
		ToolCalls: tools,
		Timestamp: e.Timestamp,
	}
	if part.IsEmpty() {
		return nil, false
	}
	return part, true
}

// Parts decodes a sequence of events, dropping those with nothing to show
func (d *Decoder) Parts(events []*internal.RawEvent) []*MessagePart {
	parts := make([]*MessagePart, 0, len(events))
	for _, e := range events {
		if part, ok := d.Decode(e); ok {
			parts = append(parts, part)
		}
	}
	return parts
}

// CleanText strips IDE and reminder pseudo-tags from visible text
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = ideSelectionRe.ReplaceAllLiteralString(text, IDESelectionMarker)
	text = ideOpenedFileRe.ReplaceAllLiteralString(text, "")
	text = systemReminder.ReplaceAllLiteralString(text, "")
	return strings.TrimSpace(text)
}

// ModelTag shortens a model id to its second hyphen-separated field,
// e.g. "claude-opus-4-5" becomes "opus". Ids without a hyphen are kept.
func ModelTag(model string) string {
	parts := strings.Split(model, "-")
	if len(parts) < 2 {
		return model
	}
	return parts[1]
}
