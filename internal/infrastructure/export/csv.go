package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/garyjia/expense-manager/internal/application/port"
)

// CSVWriter writes RFC 4180 CSV
type CSVWriter struct{}

func (CSVWriter) Format() string      { return "csv" }
func (CSVWriter) ContentType() string { return "text/csv" }
func (CSVWriter) Extension() string   { return ".csv" }

func (CSVWriter) Write(w io.Writer, rows []port.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		if err := cw.Write(record(r)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

var _ port.ReportWriter = CSVWriter{}
