// Package export renders expense reports as CSV or XLSX.
package export

import "github.com/garyjia/expense-manager/internal/application/port"

// Header is the column order shared by every format
var Header = []string{"Title", "Amount", "Status", "Employee", "Category", "Store", "Date"}

const dateLayout = "2006-01-02"

func record(r port.ExportRow) []string {
	return []string{
		r.Title,
		r.Amount.StringFixed(2),
		r.Status,
		r.Employee,
		r.Category,
		r.Store,
		r.Date.Format(dateLayout),
	}
}
