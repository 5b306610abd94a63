package spreadsheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/warp/stock-engine/stock"
)

// ReportSheetName is the worksheet holding the stock report.
const ReportSheetName = "Stanje artikala"

// Report layout: three fixed columns, then one Ulaz/Izlaz/Stanje triple per day.
const (
	fixedColumns = 3
	dayColumns   = 3
	headerRows   = 2
)

// signedFormat shows a leading sign and leaves zero blank.
var signedFormat = `+General;-General;""`

type reportStyles struct {
	header, subHeader        int
	article, articleStriped  int
	opening                  int
	in, inStriped            int
	out, outStriped, balance int
}

// WriteStockReport renders sheet as an xlsx workbook into w. Row 1 carries
// merged day headers, row 2 the column captions, then one row per article.
// Outgoing quantities are written negative; zero movements are left blank.
func WriteStockReport(w io.Writer, sheet stock.StockSheet) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReportSheetName); err != nil {
		return err
	}
	styles, err := newReportStyles(f)
	if err != nil {
		return fmt.Errorf("failed to create report styles: %w", err)
	}

	lastCol := fixedColumns + dayColumns*len(sheet.Days)
	if err := writeReportHeader(f, sheet, styles, lastCol); err != nil {
		return err
	}

	for i, row := range sheet.Rows {
		if err := writeReportRow(f, headerRows+1+i, row, styles); err != nil {
			return err
		}
	}

	if err := layoutReport(f, len(sheet.Days)); err != nil {
		return err
	}
	if err := f.SetPanes(ReportSheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      2,
		YSplit:      headerRows,
		TopLeftCell: "C3",
		ActivePane:  "bottomRight",
	}); err != nil {
		return err
	}

	return f.Write(w)
}

func writeReportHeader(f *excelize.File, sheet stock.StockSheet, styles reportStyles, lastCol int) error {
	captions := []string{"Artikl", "Šifra", "Početno stanje"}
	for i, c := range captions {
		if err := f.SetCellValue(ReportSheetName, cell(i+1, 2), c); err != nil {
			return err
		}
	}

	for i, day := range sheet.Days {
		first := fixedColumns + 1 + i*dayColumns
		title := fmt.Sprintf("%s - %s", day.Time().Format("02.01."), WeekdayName(day))
		if err := f.SetCellValue(ReportSheetName, cell(first, 1), title); err != nil {
			return err
		}
		if err := f.MergeCell(ReportSheetName, cell(first, 1), cell(first+dayColumns-1, 1)); err != nil {
			return err
		}
		for j, c := range []string{"Ulaz", "Izlaz", "Stanje"} {
			if err := f.SetCellValue(ReportSheetName, cell(first+j, 2), c); err != nil {
				return err
			}
		}
	}

	if err := f.SetCellStyle(ReportSheetName, cell(1, 1), cell(lastCol, 1), styles.header); err != nil {
		return err
	}
	return f.SetCellStyle(ReportSheetName, cell(1, 2), cell(lastCol, 2), styles.subHeader)
}

func writeReportRow(f *excelize.File, rowNum int, row stock.SheetRow, styles reportStyles) error {
	striped := rowNum%2 == 0
	pick := func(plain, stripe int) int {
		if striped {
			return stripe
		}
		return plain
	}

	set := func(col int, value any, style int) error {
		ref := cell(col, rowNum)
		if value != nil {
			if err := f.SetCellValue(ReportSheetName, ref, value); err != nil {
				return err
			}
		}
		return f.SetCellStyle(ReportSheetName, ref, ref, style)
	}

	if err := set(1, row.Article.Name, pick(styles.article, styles.articleStriped)); err != nil {
		return err
	}
	if err := set(2, row.Article.Code, styles.opening); err != nil {
		return err
	}
	if err := set(3, number(row.Opening), styles.opening); err != nil {
		return err
	}

	for i, c := range row.Cells {
		first := fixedColumns + 1 + i*dayColumns
		var in, out any
		if !c.In.IsZero() {
			in = number(c.In)
		}
		if !c.Out.IsZero() {
			out = -number(c.Out)
		}
		if err := set(first, in, pick(styles.in, styles.inStriped)); err != nil {
			return err
		}
		if err := set(first+1, out, pick(styles.out, styles.outStriped)); err != nil {
			return err
		}
		if err := set(first+2, number(c.Balance), styles.balance); err != nil {
			return err
		}
	}
	return nil
}

func layoutReport(f *excelize.File, days int) error {
	widths := []struct {
		col   string
		width float64
	}{{"A", 25}, {"B", 15}, {"C", 18}}
	for _, w := range widths {
		if err := f.SetColWidth(ReportSheetName, w.col, w.col, w.width); err != nil {
			return err
		}
	}
	if days > 0 {
		first, _ := excelize.ColumnNumberToName(fixedColumns + 1)
		last, _ := excelize.ColumnNumberToName(fixedColumns + dayColumns*days)
		if err := f.SetColWidth(ReportSheetName, first, last, 12); err != nil {
			return err
		}
	}
	if err := f.SetRowHeight(ReportSheetName, 1, 30); err != nil {
		return err
	}
	return f.SetRowHeight(ReportSheetName, 2, 25)
}

func newReportStyles(f *excelize.File) (reportStyles, error) {
	var s reportStyles
	border := thinBorder(colorBorder)
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	left := &excelize.Alignment{Horizontal: "left", Vertical: "center"}

	defs := []struct {
		dst   *int
		style excelize.Style
	}{
		{&s.header, excelize.Style{
			Font: &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11}, Fill: solidFill(colorHeader),
			Alignment: center, Border: border,
		}},
		{&s.subHeader, excelize.Style{
			Font: &excelize.Font{Bold: true, Color: "374151", Size: 10}, Fill: solidFill(colorSubHead),
			Alignment: center, Border: border,
		}},
		{&s.article, excelize.Style{
			Font: &excelize.Font{Bold: true, Color: "111827", Size: 10}, Alignment: left, Border: border,
		}},
		{&s.articleStriped, excelize.Style{
			Font: &excelize.Font{Bold: true, Color: "111827", Size: 10}, Alignment: left, Border: border,
			Fill: solidFill(colorStripe),
		}},
		{&s.opening, excelize.Style{
			Font: &excelize.Font{Bold: true, Color: "1F2937", Size: 10}, Fill: solidFill(colorBalance),
			Alignment: center, Border: border,
		}},
		{&s.in, excelize.Style{
			Font: &excelize.Font{Color: colorIn, Size: 10}, Alignment: center, Border: border,
			CustomNumFmt: &signedFormat,
		}},
		{&s.inStriped, excelize.Style{
			Font: &excelize.Font{Color: colorIn, Size: 10}, Alignment: center, Border: border,
			CustomNumFmt: &signedFormat, Fill: solidFill(colorStripe),
		}},
		{&s.out, excelize.Style{
			Font: &excelize.Font{Color: colorOut, Size: 10}, Alignment: center, Border: border,
			CustomNumFmt: &signedFormat,
		}},
		{&s.outStriped, excelize.Style{
			Font: &excelize.Font{Color: colorOut, Size: 10}, Alignment: center, Border: border,
			CustomNumFmt: &signedFormat, Fill: solidFill(colorStripe),
		}},
		{&s.balance, excelize.Style{
			Font: &excelize.Font{Bold: true, Color: "1F2937", Size: 10}, Fill: solidFill(colorBalance),
			Alignment: center, Border: border,
		}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(&d.style)
		if err != nil {
			return s, err
		}
		*d.dst = id
	}
	return s, nil
}
