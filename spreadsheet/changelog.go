package spreadsheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/warp/stock-engine/stock"
)

// ChangeLogSheetName is the worksheet holding one change-log entry.
const ChangeLogSheetName = "Detalji unosa"

// firstLineRow is where entry lines start: title, info, blank, table header.
const firstLineRow = 5

// WriteChangeLogEntry renders one change-log entry as an xlsx workbook:
// a title row, a Tip/Broj stavki/Vrijeme row, then an Artikl/Ulaz/Izlaz table.
func WriteChangeLogEntry(w io.Writer, entry stock.ChangeLogEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = ChangeLogSheetName
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	values := map[string]any{
		"A1": fmt.Sprintf("Detalji unosa - %s", entry.Date.Time().Format("02.01.2006")),
		"A2": fmt.Sprintf("Tip: %s", entry.Type),
		"B2": fmt.Sprintf("Broj stavki: %d", entry.LineCount),
		"C2": fmt.Sprintf("Vrijeme: %s", entry.Timestamp.Format("02. 01. 2006. 15:04:05")),
		"A4": "Artikl",
		"B4": "Ulaz",
		"C4": "Izlaz",
	}
	for ref, v := range values {
		if err := f.SetCellValue(sheet, ref, v); err != nil {
			return err
		}
	}
	if err := f.MergeCell(sheet, "A1", "C1"); err != nil {
		return err
	}

	title, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      solidFill(colorHeader),
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorder("000000"),
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "C1", title); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A2", "C2", bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A4", "C4", header); err != nil {
		return err
	}

	lineStyles, err := newLineStyles(f)
	if err != nil {
		return err
	}
	for i, l := range entry.Lines {
		row := firstLineRow + i
		name := l.Name
		if name == "" {
			name = l.Slug.String()
		}
		styles := lineStyles[row%2]
		for col, v := range []any{name, number(l.In), number(l.Out)} {
			ref := cell(col+1, row)
			if err := f.SetCellValue(sheet, ref, v); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, ref, ref, styles[col]); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "C", 15); err != nil {
		return err
	}
	return f.Write(w)
}

// newLineStyles returns [row parity][column] style IDs; even rows are striped.
func newLineStyles(f *excelize.File) ([2][3]int, error) {
	var ids [2][3]int
	border := thinBorder("000000")
	for parity := 0; parity < 2; parity++ {
		var fill excelize.Fill
		if parity == 0 {
			fill = solidFill(colorStripe)
		}
		defs := []excelize.Style{
			{Alignment: &excelize.Alignment{Horizontal: "left"}, Border: border, Fill: fill},
			{Font: &excelize.Font{Color: colorIn}, Alignment: &excelize.Alignment{Horizontal: "center"}, Border: border, Fill: fill},
			{Font: &excelize.Font{Color: colorOut}, Alignment: &excelize.Alignment{Horizontal: "center"}, Border: border, Fill: fill},
		}
		for col := range defs {
			id, err := f.NewStyle(&defs[col])
			if err != nil {
				return ids, err
			}
			ids[parity][col] = id
		}
	}
	return ids, nil
}
