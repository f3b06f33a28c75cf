package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/mtaran/crdbextract/internal"
)

// UnknownStart is shown when no event carries a usable timestamp
const UnknownStart = "unknown"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Options configures a Renderer
type Options struct {
	TodoStyle TodoStyle
	TodoLimit int
}

// Renderer turns conversation logs into Markdown transcripts
type Renderer struct {
	decoder *Decoder
}

// New creates a Renderer
func New(opts Options) *Renderer {
	return &Renderer{decoder: NewDecoder(NewToolFormatter(opts.TodoStyle, opts.TodoLimit))}
}

// Decoder exposes the renderer's event decoder
func (r *Renderer) Decoder() *Decoder {
	return r.decoder
}

// RenderEvents decodes and merges one contiguous slice of events
func (r *Renderer) RenderEvents(events []*internal.RawEvent, indent string) *Block {
	return Merge(r.decoder.Parts(events), indent)
}

// Document renders a main conversation, inlining each sub-agent at the
// event that spawned it and appending the ones never referenced.
func (r *Renderer) Document(b *internal.Bundle) string {
	a := &assembly{
		renderer: r,
		agents:   make(map[string]*internal.SessionFile, len(b.Agents)),
		inlined:  make(map[string]bool, len(b.Agents)),
	}
	for _, agent := range b.Agents {
		a.agents[agent.AgentID] = agent
	}

	a.header(b)
	a.walk(b.Main.Events, "")

	for _, agent := range b.Agents {
		if a.inlined[agent.AgentID] {
			continue
		}
		a.inlined[agent.AgentID] = true
		a.emit(fmt.Sprintf("## Agent: %s (not inlined)", agent.AgentID), "")
		a.walk(agent.Events, QuotePrefix)
	}

	return strings.Join(a.sections, "\n")
}

// assembly is the state of one Document call
type assembly struct {
	renderer *Renderer
	agents   map[string]*internal.SessionFile
	inlined  map[string]bool
	sections []string
}

func (a *assembly) emit(sections ...string) {
	a.sections = append(a.sections, sections...)
}

func (a *assembly) header(b *internal.Bundle) {
	a.emit(
		fmt.Sprintf("# Conversation: %s", b.Main.Stem),
		"",
		fmt.Sprintf("**Session ID:** `%s`", b.Main.SessionID),
		fmt.Sprintf("**Started:** %s", StartTime(b.Main.Events)),
	)
	if cwd := b.Main.Cwd(); cwd != "" {
		a.emit(fmt.Sprintf("**Working Directory:** `%s`", cwd))
	}
	a.emit(fmt.Sprintf("**Agents spawned:** %d", len(a.agents)), "", "---", "")
}

// walk renders events in chunks split at spawn points. The inlined set is
// shared across the whole document, so each agent appears at most once and
// self-referencing agents cannot recurse forever. The main conversation is
// split at every spawn; an agent's log only where another agent is inlined.
func (a *assembly) walk(events []*internal.RawEvent, indent string) {
	var chunk []*internal.RawEvent
	for _, e := range events {
		chunk = append(chunk, e)

		ref, ok := e.Spawn()
		if !ok {
			continue
		}
		agent, found := a.agents[ref.AgentID]
		expand := found && !a.inlined[ref.AgentID]
		if !expand && indent != "" {
			continue
		}
		a.flush(chunk, indent)
		chunk = nil
		if !expand {
			continue
		}
		a.inlined[ref.AgentID] = true

		child := indent + QuotePrefix
		a.emit(
			child+"---",
			child+fmt.Sprintf("**[Agent: %s]** %s", ref.AgentID, ref.Description),
			strings.TrimRight(child, " "),
		)
		a.walk(agent.Events, child)
		a.emit(
			child+fmt.Sprintf("**[Agent: %s]** ended", ref.AgentID),
			child+"---",
			strings.TrimRight(indent, " "),
		)
	}
	a.flush(chunk, indent)
}

func (a *assembly) flush(chunk []*internal.RawEvent, indent string) {
	if len(chunk) == 0 {
		return
	}
	out := a.renderer.RenderEvents(chunk, indent).String()
	if strings.TrimSpace(out) != "" {
		a.emit(out)
	}
}

// StartTime returns the earliest parseable event timestamp at minute
// precision, or UnknownStart.
func StartTime(events []*internal.RawEvent) string {
	var earliest time.Time
	for _, e := range events {
		if e.Timestamp == "" {
			continue
		}
		t, ok := parseTimestamp(e.Timestamp)
		if !ok {
			continue
		}
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}
	if earliest.IsZero() {
		return UnknownStart
	}
	return earliest.Format("2006-01-02 15:04")
}

func parseTimestamp(ts string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
