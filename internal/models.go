package internal

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Event types that never carry a renderable message
const (
	EventTypeQueueOperation      = "queue-operation"
	EventTypeFileHistorySnapshot = "file-history-snapshot"
)

// Content segment types
const (
	SegmentText       = "text"
	SegmentThinking   = "thinking"
	SegmentToolUse    = "tool_use"
	SegmentToolResult = "tool_result"
)

// RawEvent represents one line of a session JSONL file
type RawEvent struct {
	Type          string          `json:"type"`
	SessionID     string          `json:"sessionId,omitempty"`
	AgentID       string          `json:"agentId,omitempty"`
	Cwd           string          `json:"cwd,omitempty"`
	Timestamp     string          `json:"timestamp,omitempty"`
	Message       *RawMessage     `json:"message,omitempty"`
	ToolUseResult json.RawMessage `json:"toolUseResult,omitempty"`
}

// RawMessage is the message payload of an event
type RawMessage struct {
	Role    string          `json:"role,omitempty"`
	Model   string          `json:"model,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// ContentSegment is one typed block of message content
type ContentSegment struct {
	Type     string                 `json:"type"`
	Text     string                 `json:"text,omitempty"`
	Thinking string                 `json:"thinking,omitempty"`
	Name     string                 `json:"name,omitempty"`
	Input    map[string]interface{} `json:"input,omitempty"`
}

// SpawnRef describes a sub-conversation started by an event
type SpawnRef struct {
	AgentID     string
	Description string
}

// Role returns the message role, falling back to the event type
func (e *RawEvent) Role() string {
	if e.Message != nil && e.Message.Role != "" {
		return e.Message.Role
	}
	return e.Type
}

// Model returns the raw model identifier, or empty
func (e *RawEvent) Model() string {
	if e.Message == nil {
		return ""
	}
	return e.Message.Model
}

// Segments returns the message content as typed segments.
// A plain string becomes a single text segment. Anything that is neither a
// string nor a list yields no segments; list items that are not objects
// are dropped, except bare strings which count as text.
func (e *RawEvent) Segments() []ContentSegment {
	if e.Message == nil {
		return nil
	}
	raw := e.Message.Content
	if isNull(raw) {
		return nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return []ContentSegment{{Type: SegmentText, Text: str}}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	segments := make([]ContentSegment, 0, len(items))
	for _, item := range items {
		if isNull(item) {
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			segments = append(segments, ContentSegment{Type: SegmentText, Text: s})
			continue
		}
		seg, ok := parseSegment(item)
		if !ok {
			continue
		}
		segments = append(segments, seg)
	}
	return segments
}

// isNull reports whether raw is empty or the JSON literal null, which
// decodes into a string without error or change.
func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// parseSegment decodes a single content object leniently: a field of the
// wrong shape is treated as absent instead of rejecting the segment.
func parseSegment(item json.RawMessage) (ContentSegment, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return ContentSegment{}, false
	}

	seg := ContentSegment{
		Type:     stringField(fields, "type"),
		Text:     stringField(fields, "text"),
		Thinking: stringField(fields, "thinking"),
		Name:     stringField(fields, "name"),
	}
	if raw, ok := fields["input"]; ok {
		var input map[string]interface{}
		if err := json.Unmarshal(raw, &input); err == nil {
			seg.Input = input
		}
	}
	return seg, true
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Spawn returns the sub-conversation reference carried by this event, if any
func (e *RawEvent) Spawn() (SpawnRef, bool) {
	if len(e.ToolUseResult) == 0 {
		return SpawnRef{}, false
	}
	var result struct {
		AgentID     interface{} `json:"agentId"`
		Description interface{} `json:"description"`
	}
	// toolUseResult is frequently a plain string
	if err := json.Unmarshal(e.ToolUseResult, &result); err != nil {
		return SpawnRef{}, false
	}
	agentID, _ := result.AgentID.(string)
	if agentID == "" {
		return SpawnRef{}, false
	}
	desc, _ := result.Description.(string)
	return SpawnRef{AgentID: agentID, Description: desc}, true
}

// IsBookkeeping reports whether the event is a queue or snapshot marker
func (e *RawEvent) IsBookkeeping() bool {
	switch e.Type {
	case EventTypeQueueOperation, EventTypeFileHistorySnapshot:
		return true
	}
	return false
}

// ShortID returns the first eight characters of an identifier
func ShortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
