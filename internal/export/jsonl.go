package export

import (
	"fmt"
	"io"

	"github.com/mtaran/crdbextract/internal"
	"github.com/mtaran/crdbextract/internal/render"
)

// JSONLExporter exports conversations in JSONL format (one message per line)
type JSONLExporter struct {
	renderer *render.Renderer
}

// jsonlLine tags a part with the conversation it came from
type jsonlLine struct {
	Conversation string `json:"conversation"`
	*render.MessagePart
}

// Export writes the main conversation's parts, then each agent's
func (e *JSONLExporter) Export(bundle *internal.Bundle, w io.Writer) error {
	dec := e.renderer.Decoder()

	files := append([]*internal.SessionFile{bundle.Main}, bundle.Agents...)
	for _, f := range files {
		id := f.ConversationID()
		for _, part := range dec.Parts(f.Events) {
			if err := internal.WriteJSONL(w, jsonlLine{Conversation: id, MessagePart: part}); err != nil {
				return fmt.Errorf("failed to encode message: %w", err)
			}
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
