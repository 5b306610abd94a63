package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/warp/stock-engine/stock"
)

// ErrNoSheet is returned for a workbook without worksheets.
var ErrNoSheet = errors.New("workbook has no sheets")

// ReadImportRows reads (article, in, out) triples from the first sheet of an
// xlsx workbook. The header row is skipped, as are rows with no content.
// Each row keeps its 1-based sheet row number for error reporting.
// Cell values are read raw, so quantity parsing is left to the engine.
func ReadImportRows(r io.Reader) ([]stock.ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) <= stock.HeaderRows {
		return []stock.ImportRow{}, nil
	}

	result := make([]stock.ImportRow, 0, len(rows)-stock.HeaderRows)
	for i, row := range rows[stock.HeaderRows:] {
		if blank(row) {
			continue
		}
		result = append(result, stock.ImportRow{
			Article: column(row, 0),
			In:      column(row, 1),
			Out:     column(row, 2),
			Row:     i + stock.HeaderRows + 1,
		})
	}
	return result, nil
}

func column(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
