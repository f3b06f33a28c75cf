package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func user(text string) *MessagePart {
	return &MessagePart{Role: RoleUser, Text: text}
}

func assistant(model, thinking, text string, tools ...string) *MessagePart {
	return &MessagePart{Role: RoleAssistant, Model: model, Thinking: thinking, Text: text, ToolCalls: tools}
}

func countHeaders(out string) int {
	n := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(strings.TrimLeft(line, "> "), "### ") {
			n++
		}
	}
	return n
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name   string
		parts  []*MessagePart
		indent string
		want   string
	}{
		{
			name:  "empty input",
			parts: nil,
			want:  "",
		},
		{
			name: "user then assistant with tool",
			parts: []*MessagePart{
				user("Hi"),
				assistant("opus", "", "Hello", "[Read] /tmp/a"),
			},
			want: "### User\n\nHi\n\n### Assistant (opus)\n\nHello\n\n- [Read] /tmp/a\n",
		},
		{
			name: "adjacent tool groups coalesce",
			parts: []*MessagePart{
				assistant("opus", "", "", "[Read] /a"),
				assistant("", "", "", "[Grep] x", "[Glob] *.go"),
			},
			want: "### Assistant (opus)\n\n- [Read] /a\n- [Grep] x\n- [Glob] *.go\n",
		},
		{
			name: "content grouped by kind",
			parts: []*MessagePart{
				assistant("", "first thought", "first text", "[Read] /a"),
				assistant("", "second thought", "second text", "[Bash]"),
			},
			want: "### Assistant\n\n" +
				"> first thought\n\n> second thought\n\n" +
				"first text\n\nsecond text\n\n" +
				"- [Read] /a\n- [Bash]\n",
		},
		{
			name: "last model wins",
			parts: []*MessagePart{
				assistant("haiku", "", "a"),
				assistant("", "", "b"),
				assistant("opus", "", "c"),
				assistant("", "", "d"),
			},
			want: "### Assistant (opus)\n\na\n\nb\n\nc\n\nd\n",
		},
		{
			name: "multi line reasoning and text",
			parts: []*MessagePart{
				assistant("sonnet", "step 1\nstep 2", "line 1\nline 2"),
			},
			want: "### Assistant (sonnet)\n\n> step 1\n> step 2\n\nline 1\nline 2\n",
		},
		{
			name: "consecutive users keep separate headers",
			parts: []*MessagePart{
				user("one"),
				user("two"),
			},
			want: "### User\n\none\n\n### User\n\ntwo\n",
		},
		{
			name: "other roles are skipped and split runs",
			parts: []*MessagePart{
				assistant("", "", "a"),
				{Role: "system", Text: "hidden"},
				assistant("", "", "b"),
			},
			want: "### Assistant\n\na\n\n### Assistant\n\nb\n",
		},
		{
			name: "user without text still gets a header",
			parts: []*MessagePart{
				{Role: RoleUser, Thinking: "odd"},
			},
			want: "### User\n",
		},
		{
			name: "indent prefixes every line",
			parts: []*MessagePart{
				user("Hi"),
				assistant("opus", "hmm", "Hello", "[TodoWrite]\n  - [ ] a"),
			},
			indent: "> ",
			want: "> ### User\n>\n> Hi\n>\n> ### Assistant (opus)\n>\n> > hmm\n>\n> Hello\n>\n" +
				"> - [TodoWrite]\n>   - [ ] a\n>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.parts, tt.indent).String()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMerge_HeaderPerRun(t *testing.T) {
	parts := []*MessagePart{
		user("q1"),
		assistant("", "", "a1"),
		assistant("", "", "", "[Read] /x"),
		assistant("", "", "a2"),
		user("q2"),
		assistant("", "t", ""),
		assistant("", "", "a3"),
	}
	out := Merge(parts, "").String()
	assert.Equal(t, 4, countHeaders(out))
}

func TestMerge_EmptyInputHasNoLines(t *testing.T) {
	b := Merge([]*MessagePart{}, "> ")
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, "", b.String())
}

func TestBlock_String(t *testing.T) {
	b := &Block{Indent: "> > ", Lines: []string{"a", "", "b"}}
	assert.Equal(t, "> > a\n> >\n> > b", b.String())
}
