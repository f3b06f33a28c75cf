package render

import (
	"fmt"
	"strings"
)

// QuotePrefix indents sub-conversation content and reasoning text
const QuotePrefix = "> "

// Block is a run of rendered lines sharing one indentation prefix
type Block struct {
	Indent string
	Lines  []string
}

// Len returns the number of lines in the block
func (b *Block) Len() int {
	return len(b.Lines)
}

// String joins the prefixed lines with newlines. Blank lines carry the
// prefix without trailing spaces so quoted sections stay contiguous.
func (b *Block) String() string {
	if len(b.Lines) == 0 {
		return ""
	}
	blankPrefix := strings.TrimRight(b.Indent, " ")
	out := make([]string, len(b.Lines))
	for i, line := range b.Lines {
		if line == "" {
			out[i] = blankPrefix
		} else {
			out[i] = b.Indent + line
		}
	}
	return strings.Join(out, "\n")
}

// Merge lays out decoded parts. Each user part gets its own header; each
// maximal run of assistant parts is folded under a single header with its
// reasoning, then its text, then one list of every tool call in the run.
func Merge(parts []*MessagePart, indent string) *Block {
	b := &Block{Indent: indent}

	for i := 0; i < len(parts); {
		part := parts[i]
		switch part.Role {
		case RoleUser:
			b.Lines = append(b.Lines, "### User", "")
			if part.Text != "" {
				b.Lines = append(b.Lines, strings.Split(part.Text, "\n")...)
				b.Lines = append(b.Lines, "")
			}
			i++
		case RoleAssistant:
			end := i + 1
			for end < len(parts) && parts[end].Role == RoleAssistant {
				end++
			}
			b.Lines = append(b.Lines, assistantRun(parts[i:end])...)
			i = end
		default:
			i++
		}
	}

	return b
}

func assistantRun(run []*MessagePart) []string {
	var model string
	var thoughts, texts, tools []string
	for _, p := range run {
		if p.Model != "" {
			model = p.Model
		}
		if p.Thinking != "" {
			thoughts = append(thoughts, p.Thinking)
		}
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
		tools = append(tools, p.ToolCalls...)
	}

	header := "### Assistant"
	if model != "" {
		header = fmt.Sprintf("### Assistant (%s)", model)
	}
	lines := []string{header, ""}

	for _, thought := range thoughts {
		for _, line := range strings.Split(thought, "\n") {
			lines = append(lines, QuotePrefix+line)
		}
		lines = append(lines, "")
	}
	for _, text := range texts {
		lines = append(lines, strings.Split(text, "\n")...)
		lines = append(lines, "")
	}
	if len(tools) > 0 {
		for _, tool := range tools {
			summary := strings.Split(tool, "\n")
			lines = append(lines, "- "+summary[0])
			lines = append(lines, summary[1:]...)
		}
		lines = append(lines, "")
	}
	return lines
}
