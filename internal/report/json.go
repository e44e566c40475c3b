package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/threadcount/internal/model"
)

// JSONWriter outputs runs in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables pretty-printed JSON with two space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// jsonRun adds the outcome counts to the serialized run.
type jsonRun struct {
	*model.Run
	Stats model.RunStats `json:"stats"`
}

// Write outputs the run, its threads and its outcome counts as JSON.
func (w *JSONWriter) Write(run *model.Run) (int, error) {
	var (
		data []byte
		err  error
	)
	payload := jsonRun{Run: run, Stats: run.Stats()}
	if w.indent {
		data, err = json.MarshalIndent(payload, "", "  ")
	} else {
		data, err = json.Marshal(payload)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
