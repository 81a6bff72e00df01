package port

import (
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// ExportRow is one expense line in a report export
type ExportRow struct {
	Title    string
	Amount   decimal.Decimal
	Currency string
	Status   string
	Employee string
	Category string
	Store    string
	Date     time.Time
}

// ReportWriter renders export rows in one file format
type ReportWriter interface {
	Format() string
	ContentType() string
	Extension() string
	Write(w io.Writer, rows []ExportRow) error
}
