package reporter

import (
	"encoding/json"
	"io"

	"github.com/ppiankov/hdfhub/internal/models"
)

// JSONReporter writes machine-readable JSON
type JSONReporter struct {
	writer io.Writer
	pretty bool
}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter(writer io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		pretty: pretty,
	}
}

// Generate writes an execution record
func (r *JSONReporter) Generate(exec *models.ExecJSON) error {
	return r.write(exec)
}

// GenerateSummaries writes status counts for one or more records
func (r *JSONReporter) GenerateSummaries(summaries []Summary) error {
	return r.write(summaries)
}

func (r *JSONReporter) write(v any) error {
	var data []byte
	var err error

	if r.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return err
	}

	_, err = r.writer.Write(data)
	if err != nil {
		return err
	}

	// Add trailing newline for terminal output
	_, err = r.writer.Write([]byte("\n"))
	return err
}
