package internal

import (
	"encoding/json"
	"reflect"
	"testing"
)

func mustParseEvent(t *testing.T, line string) *RawEvent {
	t.Helper()
	var e RawEvent
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		t.Fatalf("bad fixture %s: %v", line, err)
	}
	return &e
}

func TestRawEvent_Role(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"message role", `{"type":"assistant","message":{"role":"user"}}`, "user"},
		{"falls back to type", `{"type":"assistant","message":{}}`, "assistant"},
		{"no message", `{"type":"system"}`, "system"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustParseEvent(t, tt.line).Role(); got != tt.want {
				t.Errorf("Role() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRawEvent_Segments(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []ContentSegment
	}{
		{
			name: "string content",
			line: `{"message":{"content":"hi"}}`,
			want: []ContentSegment{{Type: SegmentText, Text: "hi"}},
		},
		{
			name: "typed list",
			line: `{"message":{"content":[{"type":"thinking","thinking":"hmm"},{"type":"tool_use","name":"Read","input":{"file_path":"a"}}]}}`,
			want: []ContentSegment{
				{Type: SegmentThinking, Thinking: "hmm"},
				{Type: SegmentToolUse, Name: "Read", Input: map[string]interface{}{"file_path": "a"}},
			},
		},
		{
			name: "bare strings and junk in list",
			line: `{"message":{"content":["plain",42,{"type":"text","text":7}]}}`,
			want: []ContentSegment{{Type: SegmentText, Text: "plain"}, {Type: SegmentText}},
		},
		{
			name: "null items are skipped",
			line: `{"message":{"content":["hello",null,null,{"type":"text","text":"bye"},null]}}`,
			want: []ContentSegment{{Type: SegmentText, Text: "hello"}, {Type: SegmentText, Text: "bye"}},
		},
		{
			name: "null content",
			line: `{"message":{"content":null}}`,
			want: nil,
		},
		{
			name: "input of wrong shape is dropped",
			line: `{"message":{"content":[{"type":"tool_use","name":"Bash","input":"ls"}]}}`,
			want: []ContentSegment{{Type: SegmentToolUse, Name: "Bash"}},
		},
		{
			name: "object content",
			line: `{"message":{"content":{"type":"text"}}}`,
			want: nil,
		},
		{
			name: "no message",
			line: `{"type":"user"}`,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustParseEvent(t, tt.line).Segments()
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Segments() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestRawEvent_Spawn(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   SpawnRef
		wantOK bool
	}{
		{"object", `{"toolUseResult":{"agentId":"a1","description":"d"}}`, SpawnRef{AgentID: "a1", Description: "d"}, true},
		{"no description", `{"toolUseResult":{"agentId":"a1"}}`, SpawnRef{AgentID: "a1"}, true},
		{"string result", `{"toolUseResult":"Error: denied"}`, SpawnRef{}, false},
		{"empty agent", `{"toolUseResult":{"agentId":""}}`, SpawnRef{}, false},
		{"numeric agent", `{"toolUseResult":{"agentId":5}}`, SpawnRef{}, false},
		{"null", `{"toolUseResult":null}`, SpawnRef{}, false},
		{"absent", `{"type":"user"}`, SpawnRef{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mustParseEvent(t, tt.line).Spawn()
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Spawn() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRawEvent_IsBookkeeping(t *testing.T) {
	for _, typ := range []string{EventTypeQueueOperation, EventTypeFileHistorySnapshot} {
		if !(&RawEvent{Type: typ}).IsBookkeeping() {
			t.Errorf("IsBookkeeping(%q) = false", typ)
		}
	}
	if (&RawEvent{Type: "user"}).IsBookkeeping() {
		t.Error("IsBookkeeping(user) = true")
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("ShortID() = %q", got)
	}
	if got := ShortID(" abc "); got != "abc" {
		t.Errorf("ShortID() = %q", got)
	}
}
