package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions configures the XLSX reader.
type XLSXOptions struct {
	// SheetIndex selects the sheet; negative values count from the end
	// (-1 is the last sheet).
	SheetIndex int
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // number of header rows to skip
	SkipFooter int    // number of trailing rows to drop
}

// ReadXLSX reads an XLSX file and returns the selected sheet's rows as
// string slices with surrounding whitespace trimmed from every cell.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	return readSheet(f, opts)
}

// ReadXLSXBytes is ReadXLSX for an in-memory workbook.
func ReadXLSXBytes(data []byte, opts XLSXOptions) ([][]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open workbook")
	}
	return readSheet(f, opts)
}

func readSheet(f *xlsx.File, opts XLSXOptions) ([][]string, error) {
	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	end := len(sheet.Rows) - opts.SkipFooter
	var rows [][]string
	for i := opts.SkipRows; i < end; i++ {
		rows = append(rows, rowToStrings(sheet.Rows[i]))
	}
	return rows, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	idx := opts.SheetIndex
	if idx < 0 {
		idx += len(f.Sheets)
	}
	if idx < 0 || idx >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[idx], nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}
