package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is the tabular form every report extract is reduced to before
// rendering. Rows are keyed by header so sparse records stay aligned.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// CSVExporter encodes a Dataset as CSV.
type CSVExporter struct{}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes the dataset. Cells missing from a row render empty so
// every record carries the full column set.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv export has no columns")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// Spreadsheet tools on Windows expect CRLF line endings.
	w.UseCRLF = true
	if err := w.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	record := make([]string, len(data.Headers))
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
