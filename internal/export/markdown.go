package export

import (
	"io"

	"github.com/mtaran/crdbextract/internal"
	"github.com/mtaran/crdbextract/internal/render"
)

// MarkdownExporter writes the readable transcript with sub-agents inlined
type MarkdownExporter struct {
	renderer *render.Renderer
}

// Export writes the transcript followed by a final newline
func (e *MarkdownExporter) Export(bundle *internal.Bundle, w io.Writer) error {
	_, err := io.WriteString(w, e.renderer.Document(bundle)+"\n")
	return err
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
