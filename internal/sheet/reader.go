package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ReadRows reads the first sheet of an xlsx workbook as raw cell values.
// Raw values keep date serials and unformatted numbers intact for the
// resolvers instead of display strings. An unreadable file is a whole-batch
// failure; callers report it once and produce no partial results.
func ReadRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("sheet.ReadRows: open %s: %w", path, err)
	}
	defer f.Close()

	return rowsFromFile(f)
}

// ReadRowsFrom reads the first sheet of a workbook streamed from r, e.g. a
// multipart upload.
func ReadRowsFrom(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("sheet.ReadRowsFrom: open: %w", err)
	}
	defer f.Close()

	return rowsFromFile(f)
}

func rowsFromFile(f *excelize.File) ([][]string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("sheet: workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("sheet: read rows from %q: %w", sheets[0], err)
	}
	return rows, nil
}
