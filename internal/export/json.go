package export

import (
	"encoding/json"
	"io"

	"github.com/mtaran/crdbextract/internal"
	"github.com/mtaran/crdbextract/internal/render"
)

// JSONExporter exports conversations in JSON format (pretty-printed)
type JSONExporter struct {
	renderer *render.Renderer
}

// Export writes the normalized document as indented JSON
func (e *JSONExporter) Export(bundle *internal.Bundle, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(NewDocument(e.renderer, bundle))
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
