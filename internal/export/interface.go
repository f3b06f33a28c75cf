package export

import (
	"fmt"
	"io"

	"github.com/mtaran/crdbextract/internal"
	"github.com/mtaran/crdbextract/internal/render"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(bundle *internal.Bundle, w io.Writer) error
	Extension() string
}

// Formats lists the accepted format names in help order
var Formats = []string{"md", "json", "jsonl", "yaml"}

// NewExporter creates a new exporter based on format
func NewExporter(format string, opts render.Options) (Exporter, error) {
	r := render.New(opts)
	switch format {
	case "jsonl":
		return &JSONLExporter{renderer: r}, nil
	case "md", "markdown":
		return &MarkdownExporter{renderer: r}, nil
	case "yaml":
		return &YAMLExporter{renderer: r}, nil
	case "json":
		return &JSONExporter{renderer: r}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: md, json, jsonl, yaml)", format)
	}
}

// AgentDocument is a sub-agent inside a normalized document
type AgentDocument struct {
	AgentID  string                `json:"agent_id" yaml:"agent_id"`
	File     string                `json:"file,omitempty" yaml:"file,omitempty"`
	Messages []*render.MessagePart `json:"messages" yaml:"messages"`
}

// Document is the normalized form shared by the json and yaml exporters
type Document struct {
	SessionID string                `json:"session_id" yaml:"session_id"`
	File      string                `json:"file" yaml:"file"`
	Started   string                `json:"started" yaml:"started"`
	Cwd       string                `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	Agents    []AgentDocument       `json:"agents" yaml:"agents"`
	Messages  []*render.MessagePart `json:"messages" yaml:"messages"`
}

// NewDocument decodes a bundle into its normalized form
func NewDocument(r *render.Renderer, b *internal.Bundle) *Document {
	dec := r.Decoder()
	doc := &Document{
		SessionID: b.Main.SessionID,
		File:      b.Main.Stem,
		Started:   render.StartTime(b.Main.Events),
		Cwd:       b.Main.Cwd(),
		Agents:    make([]AgentDocument, 0, len(b.Agents)),
		Messages:  nonNil(dec.Parts(b.Main.Events)),
	}
	for _, a := range b.Agents {
		doc.Agents = append(doc.Agents, AgentDocument{
			AgentID:  a.AgentID,
			File:     a.Stem,
			Messages: nonNil(dec.Parts(a.Events)),
		})
	}
	return doc
}

func nonNil(parts []*render.MessagePart) []*render.MessagePart {
	if parts == nil {
		return []*render.MessagePart{}
	}
	return parts
}
