// Package report renders loan listings into downloadable files for the
// periodic lending report, currently as CSV or as an XLSX spreadsheet.
package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/askard/lendingstore-go/lendingstore"
)

const (
	baseFilename = "borrows"

	mimeTypeCSV  = "text/csv"
	mimeTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	xlsxSheetName = "Borrows"
)

var ErrUnknownFormat = errors.New("unknown report format")

// headerRow is the fixed column layout of the lending report.
var headerRow = []string{"ID", "Book Title", "Borrower Name", "Borrowed Date", "Due Date", "Returned Date"}

// Format selects the file format of an exported report.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat parses a user-supplied format name. "spreadsheet" is accepted as
// an alias for xlsx, matching what report consumers historically requested.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", "":
		return FormatCSV, nil
	case "xlsx", "spreadsheet":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// File is a rendered report ready to be served as a download.
type File struct {
	Content  []byte
	MIMEType string
	Filename string
}

// Exporter renders loan listings into downloadable report files.
type Exporter interface {
	Export(loans []lendingstore.LoanDetails, format Format) (File, error)
}

// LoanReportExporter is the default Exporter over the fixed lending report
// column layout.
type LoanReportExporter struct{}

// NewLoanReportExporter creates a report exporter.
func NewLoanReportExporter() *LoanReportExporter {
	return &LoanReportExporter{}
}

// Export renders the given loans in the requested format. The row order of the
// input is preserved; an empty input yields a file with just the header row.
func (e *LoanReportExporter) Export(loans []lendingstore.LoanDetails, format Format) (File, error) {
	switch format {
	case FormatCSV:
		return e.exportCSV(loans)
	case FormatXLSX:
		return e.exportXLSX(loans)
	default:
		return File{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func (e *LoanReportExporter) exportCSV(loans []lendingstore.LoanDetails) (File, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headerRow); err != nil {
		return File{}, fmt.Errorf("writing csv header: %w", err)
	}

	for _, loan := range loans {
		if err := writer.Write(reportRow(loan)); err != nil {
			return File{}, fmt.Errorf("writing csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return File{}, fmt.Errorf("flushing csv: %w", err)
	}

	return File{
		Content:  buf.Bytes(),
		MIMEType: mimeTypeCSV,
		Filename: baseFilename + ".csv",
	}, nil
}

func (e *LoanReportExporter) exportXLSX(loans []lendingstore.LoanDetails) (File, error) {
	workbook := excelize.NewFile()

	sheetIndex, err := workbook.NewSheet(xlsxSheetName)
	if err != nil {
		return File{}, fmt.Errorf("creating xlsx sheet: %w", err)
	}
	workbook.SetActiveSheet(sheetIndex)

	if err = workbook.DeleteSheet("Sheet1"); err != nil {
		return File{}, fmt.Errorf("removing default xlsx sheet: %w", err)
	}

	if err = setSheetRow(workbook, 1, headerRow); err != nil {
		return File{}, err
	}

	for i, loan := range loans {
		if err = setSheetRow(workbook, i+2, reportRow(loan)); err != nil {
			return File{}, err
		}
	}

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		return File{}, fmt.Errorf("writing xlsx: %w", err)
	}

	return File{
		Content:  buf.Bytes(),
		MIMEType: mimeTypeXLSX,
		Filename: baseFilename + ".xlsx",
	}, nil
}

func setSheetRow(workbook *excelize.File, rowNumber int, cells []string) error {
	cellName, err := excelize.CoordinatesToCellName(1, rowNumber)
	if err != nil {
		return fmt.Errorf("computing xlsx cell name: %w", err)
	}

	row := make([]any, len(cells))
	for i, cell := range cells {
		row[i] = cell
	}

	if err = workbook.SetSheetRow(xlsxSheetName, cellName, &row); err != nil {
		return fmt.Errorf("writing xlsx row: %w", err)
	}

	return nil
}

func reportRow(loan lendingstore.LoanDetails) []string {
	return []string{
		strconv.FormatInt(loan.ID, 10),
		loan.BookTitle,
		loan.BorrowerName,
		formatDate(loan.BorrowedDate),
		formatDate(loan.DueDate),
		formatOptionalDate(loan.ReturnedDate),
	}
}

// Dates are rendered as RFC 3339 timestamps, preserving the time of day the
// store recorded.
func formatDate(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}

	return t.Format(time.RFC3339)
}
