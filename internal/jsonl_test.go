package internal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mtaran/crdbextract/testutil"
)

func TestParseJSONL(t *testing.T) {
	var logs bytes.Buffer
	prev := SetLogOutput(&logs)
	defer SetLogOutput(prev)

	input := strings.Join([]string{
		`{"type":"user","sessionId":"s"}`,
		``,
		`{not json`,
		`   `,
		`{"type":"assistant","sessionId":"s"}`,
	}, "\n")

	events, err := ParseJSONL(strings.NewReader(input), "x.jsonl")
	if err != nil {
		t.Fatalf("ParseJSONL() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("ParseJSONL() returned %d events, want 2", len(events))
	}
	if events[0].Type != "user" || events[1].Type != "assistant" {
		t.Errorf("events out of order: %q, %q", events[0].Type, events[1].Type)
	}
	if !strings.Contains(logs.String(), "x.jsonl line 3") {
		t.Errorf("expected warning naming line 3, got %q", logs.String())
	}
}

func TestParseJSONL_LongLine(t *testing.T) {
	long := `{"type":"user","message":{"content":"` + strings.Repeat("a", 2*1024*1024) + `"}}`
	events, err := ParseJSONL(strings.NewReader(long), "long.jsonl")
	if err != nil {
		t.Fatalf("ParseJSONL() error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("ParseJSONL() returned %d events, want 1", len(events))
	}
}

func TestParseJSONL_OversizedLineIsSkipped(t *testing.T) {
	prevMax := maxLineSize
	maxLineSize = 1024
	defer func() { maxLineSize = prevMax }()

	var logs bytes.Buffer
	prev := SetLogOutput(&logs)
	defer SetLogOutput(prev)

	input := strings.Join([]string{
		`{"type":"user","message":{"content":"hi"}}`,
		`{"type":"user","message":{"content":"` + strings.Repeat("a", 4096) + `"}}`,
		`{"type":"assistant","message":{"content":"after"}}`,
	}, "\n")

	events, err := ParseJSONL(strings.NewReader(input), "big.jsonl")
	if err != nil {
		t.Fatalf("ParseJSONL() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("ParseJSONL() returned %d events, want 2", len(events))
	}
	if events[0].Type != "user" || events[1].Type != "assistant" {
		t.Errorf("events = %q, %q", events[0].Type, events[1].Type)
	}
	if !strings.Contains(logs.String(), "big.jsonl line 2: line exceeds 1024 bytes") {
		t.Errorf("expected warning naming line 2, got %q", logs.String())
	}
}

func TestParseJSONL_OversizedLastLine(t *testing.T) {
	prevMax := maxLineSize
	maxLineSize = 64
	defer func() { maxLineSize = prevMax }()

	prev := SetLogOutput(&bytes.Buffer{})
	defer SetLogOutput(prev)

	input := `{"type":"user"}` + "\n" + strings.Repeat("x", 500)
	events, err := ParseJSONL(strings.NewReader(input), "tail.jsonl")
	if err != nil {
		t.Fatalf("ParseJSONL() error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("ParseJSONL() returned %d events, want 1", len(events))
	}
}

func TestReadSessionFile_KeepsLinesAroundOversizedLine(t *testing.T) {
	prevMax := maxLineSize
	maxLineSize = 256
	defer func() { maxLineSize = prevMax }()

	prev := SetLogOutput(&bytes.Buffer{})
	defer SetLogOutput(prev)

	dir := testutil.CreateTempDir(t)
	path := testutil.WriteRaw(t, dir, "s.jsonl",
		`{"type":"user","sessionId":"s","message":{"content":"hi"}}`+"\n"+
			`{"type":"user","sessionId":"s","message":{"content":"`+strings.Repeat("b", 1000)+`"}}`+"\n"+
			`{"type":"assistant","sessionId":"s","message":{"content":"after"}}`+"\n")

	sf, err := ReadSessionFile(path)
	if err != nil || sf == nil {
		t.Fatalf("ReadSessionFile() = %v, %v", sf, err)
	}
	if len(sf.Events) != 2 {
		t.Errorf("Events = %d, want 2", len(sf.Events))
	}
}

func TestReadSessionFile(t *testing.T) {
	dir := testutil.CreateTempDir(t)

	t.Run("main", func(t *testing.T) {
		path := testutil.WriteSession(t, dir, "abc.jsonl",
			testutil.Event{"type": "summary"},
			testutil.UserText("sess-9", "hi").With("cwd", "/w"),
		)
		sf, err := ReadSessionFile(path)
		if err != nil || sf == nil {
			t.Fatalf("ReadSessionFile() = %v, %v", sf, err)
		}
		if sf.SessionID != "sess-9" || sf.IsAgent() || sf.Stem != "abc" {
			t.Errorf("unexpected session file %+v", sf)
		}
		if len(sf.Events) != 2 {
			t.Errorf("Events = %d, want 2", len(sf.Events))
		}
		if sf.Cwd() != "/w" {
			t.Errorf("Cwd() = %q", sf.Cwd())
		}
	})

	t.Run("agent", func(t *testing.T) {
		path := testutil.WriteSession(t, dir, "agent-a1.jsonl",
			testutil.AssistantText("sess-9", "m", "x").With("agentId", "a1"),
		)
		sf, err := ReadSessionFile(path)
		if err != nil || sf == nil {
			t.Fatalf("ReadSessionFile() = %v, %v", sf, err)
		}
		if !sf.IsAgent() || sf.ConversationID() != "a1" {
			t.Errorf("ConversationID() = %q, want a1", sf.ConversationID())
		}
	})

	t.Run("no session id", func(t *testing.T) {
		path := testutil.WriteRaw(t, dir, "none.jsonl", `{"type":"summary"}`+"\n")
		sf, err := ReadSessionFile(path)
		if err != nil || sf != nil {
			t.Errorf("ReadSessionFile() = %v, %v; want nil, nil", sf, err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, err := ReadSessionFile(dir + "/gone.jsonl")
		if _, ok := err.(*StorageError); !ok {
			t.Errorf("ReadSessionFile() error = %T, want *StorageError", err)
		}
	})
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSONL(&buf, map[string]int{"a": 1}, []string{"b"}); err != nil {
		t.Fatalf("WriteJSONL() error = %v", err)
	}
	if got, want := buf.String(), "{\"a\":1}\n[\"b\"]\n"; got != want {
		t.Errorf("WriteJSONL() = %q, want %q", got, want)
	}
}
