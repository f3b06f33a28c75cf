package render

import (
	"bytes"
	"path"
	"sort"
	"strings"
	"testing"

	"github.com/mtaran/crdbextract/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
)

type goldenCase struct {
	main   []byte
	agents []byte
	want   string
}

func loadGolden(t *testing.T, file string) map[string]*goldenCase {
	t.Helper()
	archive, err := txtar.ParseFile(file)
	require.NoError(t, err)

	cases := make(map[string]*goldenCase)
	for _, f := range archive.Files {
		dir, name := path.Split(f.Name)
		dir = strings.TrimSuffix(dir, "/")
		c, ok := cases[dir]
		if !ok {
			c = &goldenCase{}
			cases[dir] = c
		}
		switch name {
		case "main.jsonl":
			c.main = f.Data
		case "agents.jsonl":
			c.agents = f.Data
		case "want.md":
			c.want = string(f.Data)
		default:
			t.Fatalf("unexpected file %s in %s", f.Name, file)
		}
	}
	return cases
}

func bundleFromGolden(t *testing.T, name string, c *goldenCase) *internal.Bundle {
	t.Helper()
	events, err := internal.ParseJSONL(bytes.NewReader(c.main), name+"/main.jsonl")
	require.NoError(t, err)
	require.NotEmpty(t, events)

	main := &internal.SessionFile{Stem: name, Events: events}
	for _, e := range events {
		if e.SessionID != "" {
			main.SessionID = e.SessionID
			break
		}
	}

	b := &internal.Bundle{Main: main}
	if len(c.agents) == 0 {
		return b
	}

	agentEvents, err := internal.ParseJSONL(bytes.NewReader(c.agents), name+"/agents.jsonl")
	require.NoError(t, err)
	byID := make(map[string]*internal.SessionFile)
	for _, e := range agentEvents {
		agent, ok := byID[e.AgentID]
		if !ok {
			agent = &internal.SessionFile{Stem: "agent-" + e.AgentID, SessionID: e.SessionID, AgentID: e.AgentID}
			byID[e.AgentID] = agent
			b.Agents = append(b.Agents, agent)
		}
		agent.Events = append(agent.Events, e)
	}
	return b
}

func TestRenderer_DocumentGolden(t *testing.T) {
	cases := loadGolden(t, "testdata/documents.txtar")
	require.NotEmpty(t, cases)

	names := make([]string, 0, len(cases))
	for name := range cases {
		names = append(names, name)
	}
	sort.Strings(names)

	r := New(Options{})
	for _, name := range names {
		c := cases[name]
		t.Run(name, func(t *testing.T) {
			got := r.Document(bundleFromGolden(t, name, c))
			assert.Equal(t, strings.TrimRight(c.want, "\n"), strings.TrimRight(got, "\n"))
		})
	}
}

func TestRenderer_DocumentInlinesOnce(t *testing.T) {
	spawn := `{"type":"user","sessionId":"s","message":{"role":"user","content":[{"type":"tool_result"}]},"toolUseResult":{"agentId":"a1","description":"d"}}`
	b := &internal.Bundle{
		Main: &internal.SessionFile{Stem: "x", SessionID: "s", Events: []*internal.RawEvent{
			mustEvent(t, spawn),
			mustEvent(t, `{"type":"assistant","sessionId":"s","message":{"role":"assistant","content":"between"}}`),
			mustEvent(t, spawn),
		}},
		Agents: []*internal.SessionFile{{
			SessionID: "s",
			AgentID:   "a1",
			Events: []*internal.RawEvent{
				mustEvent(t, `{"type":"assistant","sessionId":"s","agentId":"a1","message":{"role":"assistant","content":"agent says"}}`),
			},
		}},
	}

	doc := New(Options{}).Document(b)
	assert.Equal(t, 1, strings.Count(doc, "agent says"))
	assert.Equal(t, 1, strings.Count(doc, "**[Agent: a1]** ended"))
	assert.NotContains(t, doc, "not inlined")
	assert.True(t, strings.Index(doc, "agent says") < strings.Index(doc, "between"))
}

func TestRenderer_DocumentAgentRunSpansUnexpandedSpawn(t *testing.T) {
	assistant := func(agentID, text string) *internal.RawEvent {
		return mustEvent(t, `{"type":"assistant","sessionId":"s","agentId":"`+agentID+`","message":{"role":"assistant","content":"`+text+`"}}`)
	}
	spawn := func(agentID, target string) *internal.RawEvent {
		return mustEvent(t, `{"type":"user","sessionId":"s","agentId":"`+agentID+`","message":{"role":"user","content":[{"type":"tool_result"}]},"toolUseResult":{"agentId":"`+target+`","description":"d"}}`)
	}

	b := &internal.Bundle{
		Main: &internal.SessionFile{Stem: "x", SessionID: "s", Events: []*internal.RawEvent{
			assistant("", "before"),
			spawn("", "zz"),
			assistant("", "after"),
			spawn("", "a1"),
		}},
		Agents: []*internal.SessionFile{{
			SessionID: "s",
			AgentID:   "a1",
			Events: []*internal.RawEvent{
				assistant("a1", "one"),
				spawn("a1", "zz"),
				assistant("a1", "two"),
				spawn("a1", "a1"),
				assistant("a1", "three"),
			},
		}},
	}

	doc := New(Options{}).Document(b)
	assert.Contains(t, doc, "> ### Assistant\n>\n> one\n>\n> two\n>\n> three\n")
	assert.Equal(t, 1, strings.Count(doc, "> ### Assistant"))
	// the main conversation still restarts at every spawn
	assert.Equal(t, 3, strings.Count(doc, "### Assistant"))
}

func TestRenderer_DocumentTodoStyle(t *testing.T) {
	line := `{"type":"assistant","sessionId":"s","message":{"role":"assistant","content":[{"type":"tool_use","name":"TodoWrite","input":{"todos":[
		{"content":"a","status":"completed"},{"content":"b"},{"content":"c"},{"content":"d"},
		{"content":"e"},{"content":"f"},{"content":"g"}]}}]}}`
	b := &internal.Bundle{Main: &internal.SessionFile{Stem: "t", SessionID: "s", Events: []*internal.RawEvent{mustEvent(t, line)}}}

	summary := New(Options{}).Document(b)
	assert.Contains(t, summary, "- [TodoWrite]\n  - [x] a\n")
	assert.Contains(t, summary, "  (+2 more)")
	assert.NotContains(t, summary, "- [ ] f")

	checklist := New(Options{TodoStyle: TodoChecklist}).Document(b)
	assert.Contains(t, checklist, "  - [ ] g")
	assert.NotContains(t, checklist, "more)")
}

func TestStartTime(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{
			name:  "no timestamps",
			lines: []string{`{"type":"user"}`},
			want:  UnknownStart,
		},
		{
			name:  "unparseable",
			lines: []string{`{"type":"user","timestamp":"yesterday"}`},
			want:  UnknownStart,
		},
		{
			name: "earliest wins",
			lines: []string{
				`{"type":"user","timestamp":"2025-03-02T09:00:00Z"}`,
				`{"type":"user","timestamp":"2025-03-01T08:15:59.999Z"}`,
			},
			want: "2025-03-01 08:15",
		},
		{
			name:  "offset is kept",
			lines: []string{`{"type":"user","timestamp":"2025-03-01T08:15:00+02:00"}`},
			want:  "2025-03-01 08:15",
		},
		{
			name:  "no zone",
			lines: []string{`{"type":"user","timestamp":"2025-03-01T08:15:00"}`},
			want:  "2025-03-01 08:15",
		},
		{
			name: "bad values are ignored",
			lines: []string{
				`{"type":"user","timestamp":"garbage"}`,
				`{"type":"user","timestamp":"2024-12-31T23:59:00Z"}`,
			},
			want: "2024-12-31 23:59",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := make([]*internal.RawEvent, 0, len(tt.lines))
			for _, l := range tt.lines {
				events = append(events, mustEvent(t, l))
			}
			assert.Equal(t, tt.want, StartTime(events))
		})
	}
}
