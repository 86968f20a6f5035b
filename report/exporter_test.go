package report_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/askard/lendingstore-go/lendingstore"
	"github.com/askard/lendingstore-go/report"
)

func sampleLoans() []lendingstore.LoanDetails {
	borrowed := time.Date(2026, time.July, 3, 10, 30, 0, 0, time.UTC)
	due := time.Date(2026, time.July, 17, 0, 0, 0, 0, time.UTC)
	returned := time.Date(2026, time.July, 10, 16, 45, 0, 0, time.UTC)

	return []lendingstore.LoanDetails{
		{
			Loan: lendingstore.Loan{
				ID:           1,
				BorrowedDate: borrowed,
				DueDate:      due,
				ReturnedDate: &returned,
			},
			BookTitle:    "The Go Programming Language",
			BorrowerName: "Ada Reader",
		},
		{
			Loan: lendingstore.Loan{
				ID:           2,
				BorrowedDate: borrowed,
				DueDate:      due,
			},
			BookTitle:    "Domain-Driven Design",
			BorrowerName: "Bob Reader",
		},
	}
}

func Test_ParseFormat(t *testing.T) {
	// act + assert
	format, err := report.ParseFormat("csv")
	assert.NoError(t, err)
	assert.Equal(t, report.FormatCSV, format)

	format, err = report.ParseFormat("")
	assert.NoError(t, err)
	assert.Equal(t, report.FormatCSV, format, "the default format is csv")

	format, err = report.ParseFormat("XLSX")
	assert.NoError(t, err)
	assert.Equal(t, report.FormatXLSX, format, "format names are case-insensitive")

	format, err = report.ParseFormat("spreadsheet")
	assert.NoError(t, err)
	assert.Equal(t, report.FormatXLSX, format, "spreadsheet is an alias for xlsx")

	_, err = report.ParseFormat("pdf")
	assert.ErrorIs(t, err, report.ErrUnknownFormat)
}

func Test_Export_CSV(t *testing.T) {
	// setup
	exporter := report.NewLoanReportExporter()

	// act
	file, err := exporter.Export(sampleLoans(), report.FormatCSV)

	// assert
	assert.NoError(t, err, "error exporting the csv report")
	assert.Equal(t, "text/csv", file.MIMEType)
	assert.Equal(t, "borrows.csv", file.Filename)

	lines := strings.Split(strings.TrimRight(string(file.Content), "\n"), "\n")
	require.Len(t, lines, 3, "header plus one line per loan")
	assert.Equal(t, "ID,Book Title,Borrower Name,Borrowed Date,Due Date,Returned Date", lines[0])
	assert.Equal(t,
		"1,The Go Programming Language,Ada Reader,2026-07-03T10:30:00Z,2026-07-17T00:00:00Z,2026-07-10T16:45:00Z",
		lines[1], "dates are rendered as full RFC 3339 timestamps")
	assert.Equal(t, "2,Domain-Driven Design,Bob Reader,2026-07-03T10:30:00Z,2026-07-17T00:00:00Z,", lines[2],
		"an open loan has an empty returned date")
}

func Test_Export_CSV_When_ThereAreNoLoans(t *testing.T) {
	// setup
	exporter := report.NewLoanReportExporter()

	// act
	file, err := exporter.Export(nil, report.FormatCSV)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "ID,Book Title,Borrower Name,Borrowed Date,Due Date,Returned Date\n",
		string(file.Content), "an empty report still carries the header")
}

func Test_Export_XLSX(t *testing.T) {
	// setup
	exporter := report.NewLoanReportExporter()

	// act
	file, err := exporter.Export(sampleLoans(), report.FormatXLSX)

	// assert
	assert.NoError(t, err, "error exporting the xlsx report")
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", file.MIMEType)
	assert.Equal(t, "borrows.xlsx", file.Filename)

	workbook, err := excelize.OpenReader(bytes.NewReader(file.Content))
	require.NoError(t, err, "exported content must be a readable workbook")

	defer func() { _ = workbook.Close() }()

	assert.Equal(t, []string{"Borrows"}, workbook.GetSheetList())

	rows, err := workbook.GetRows("Borrows")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per loan")
	assert.Equal(t, []string{"ID", "Book Title", "Borrower Name", "Borrowed Date", "Due Date", "Returned Date"}, rows[0])
	assert.Equal(t, []string{
		"1", "The Go Programming Language", "Ada Reader",
		"2026-07-03T10:30:00Z", "2026-07-17T00:00:00Z", "2026-07-10T16:45:00Z",
	}, rows[1])

	secondRow := rows[2]
	assert.Equal(t, "2", secondRow[0])
	assert.Equal(t, "Domain-Driven Design", secondRow[1])
}

func Test_Export_When_FormatIsUnknown(t *testing.T) {
	// setup
	exporter := report.NewLoanReportExporter()

	// act
	_, err := exporter.Export(sampleLoans(), report.Format("pdf"))

	// assert
	assert.ErrorIs(t, err, report.ErrUnknownFormat)
}
