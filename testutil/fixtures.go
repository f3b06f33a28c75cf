package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/opt"
	_ "modernc.org/sqlite"
)

// Event builds one session log line
type Event map[string]interface{}

// UserText is a plain user message
func UserText(sessionID, text string) Event {
	return Event{
		"type":      "user",
		"sessionId": sessionID,
		"message":   map[string]interface{}{"role": "user", "content": text},
	}
}

// AssistantText is a plain assistant reply from model
func AssistantText(sessionID, model, text string) Event {
	return Event{
		"type":      "assistant",
		"sessionId": sessionID,
		"message": map[string]interface{}{
			"role":    "assistant",
			"model":   model,
			"content": []interface{}{map[string]interface{}{"type": "text", "text": text}},
		},
	}
}

// Spawn is the tool-result event that starts sub-agent agentID
func Spawn(sessionID, agentID, description string) Event {
	return Event{
		"type":      "user",
		"sessionId": sessionID,
		"message": map[string]interface{}{
			"role":    "user",
			"content": []interface{}{map[string]interface{}{"type": "tool_result", "content": "ok"}},
		},
		"toolUseResult": map[string]interface{}{"agentId": agentID, "description": description},
	}
}

// With returns a copy of e with extra top-level fields, such as agentId,
// cwd or timestamp.
func (e Event) With(kv ...string) Event {
	out := make(Event, len(e)+len(kv)/2)
	for k, v := range e {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

// WriteSession writes events as a JSONL file name in dir and returns its path
func WriteSession(t *testing.T, dir, name string, events ...Event) string {
	t.Helper()
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, string(JSONMarshal(t, e)))
	}
	return WriteRaw(t, dir, name, strings.Join(lines, "\n")+"\n")
}

// WriteRaw writes content verbatim, for malformed or empty logs
func WriteRaw(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture %s: %v", path, err)
	}
	return path
}

// CreateSessionDir writes a main conversation with one inlined agent and
// returns the directory.
func CreateSessionDir(t *testing.T) string {
	t.Helper()
	dir := CreateTempDir(t)
	WriteSession(t, dir, "main-1.jsonl",
		UserText("sess-1", "Investigate the bug").With("cwd", "/work", "timestamp", "2025-01-02T03:04:05Z"),
		AssistantText("sess-1", "claude-sonnet-4-5", "Spawning a helper"),
		Spawn("sess-1", "ag1", "Search the code"),
		AssistantText("sess-1", "claude-sonnet-4-5", "All done"),
	)
	WriteSession(t, dir, "agent-ag1.jsonl",
		AssistantText("sess-1", "claude-haiku-4-5", "Found it").With("agentId", "ag1"),
	)
	return dir
}

// CreateCatalogFixture creates a catalog database holding the given number
// of conversions, oldest first.
func CreateCatalogFixture(t *testing.T, dbPath string, rows int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS conversions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		session_id  TEXT NOT NULL,
		source_path TEXT NOT NULL,
		output_path TEXT NOT NULL,
		format      TEXT NOT NULL,
		agents      INTEGER NOT NULL,
		started     TEXT,
		rendered_at TEXT NOT NULL
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	insertSQL := `INSERT INTO conversions (run_id, session_id, source_path, output_path, format, agents, started, rendered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for i := 0; i < rows; i++ {
		session := "sess-" + string(rune('a'+i))
		if _, err := db.Exec(insertSQL, "run-fixture", session, "/in/"+session+".jsonl", "/out/"+session+".md",
			"md", i, "2025-01-01 00:00", base.Add(time.Duration(i)*time.Minute).Format(time.RFC3339Nano)); err != nil {
			t.Fatalf("Failed to insert conversion: %v", err)
		}
	}
}

// KV is one LevelDB entry
type KV struct {
	Key, Value []byte
}

// CreateLevelDB writes entries into a new LevelDB directory at dir. Chrome
// databases need their own comparer name, so the caller supplies it.
func CreateLevelDB(t *testing.T, dir string, cmp comparer.Comparer, entries ...KV) {
	t.Helper()
	db, err := leveldb.OpenFile(dir, &opt.Options{Comparer: cmp})
	if err != nil {
		t.Fatalf("Failed to create LevelDB: %v", err)
	}
	for _, e := range entries {
		if err := db.Put(e.Key, e.Value, nil); err != nil {
			_ = db.Close()
			t.Fatalf("Failed to write LevelDB entry: %v", err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Failed to close LevelDB: %v", err)
	}
}
