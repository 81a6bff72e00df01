package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/garyjia/expense-manager/internal/application/port"
)

var rows = []port.ExportRow{
	{
		Title:    "Flight, BLR to DEL",
		Amount:   decimal.RequireFromString("4500.5"),
		Status:   "APPROVED",
		Employee: "Demo Employee",
		Category: "Travel",
		Store:    "HQ",
		Date:     time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
	},
	{
		Title:    "Stationery",
		Amount:   decimal.RequireFromString("120"),
		Status:   "PENDING",
		Employee: "Demo Admin",
		Category: "Uncategorized",
		Date:     time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC),
	},
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVWriter{}.Write(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{"Flight, BLR to DEL", "4500.50", "APPROVED", "Demo Employee", "Travel", "HQ", "2026-03-02"}, records[1])
	assert.Equal(t, "", records[2][5])
}

func TestXLSXWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSXWriter{}.Write(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, Header, got[0])
	assert.Equal(t, "Flight, BLR to DEL", got[1][0])
	assert.Equal(t, "4500.5", got[1][1])
	assert.Equal(t, "2026-03-03", got[2][6])
}

func TestWriterMetadata(t *testing.T) {
	assert.Equal(t, "csv", CSVWriter{}.Format())
	assert.Equal(t, ".xlsx", XLSXWriter{}.Extension())
	assert.Contains(t, XLSXWriter{}.ContentType(), "spreadsheetml")
}
