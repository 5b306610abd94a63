/*
Package spreadsheet converts between xlsx workbooks and stock engine values.

PURPOSE:
  Thin excelize adapters at the edge of the engine. Nothing here computes
  balances; it reads import rows and renders values the stock package
  already produced.

FILES:
  import.go:    First sheet of an uploaded workbook to []stock.ImportRow
  report.go:    stock.StockSheet to the "Stanje artikala" report
  changelog.go: stock.ChangeLogEntry to the "Detalji unosa" sheet

SEE ALSO:
  - stock/reconcile.go: Consumes ImportRow
  - stock/sheet.go: Produces StockSheet
*/
package spreadsheet

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/stock-engine/stock"
)

// ContentType is the MIME type of every workbook written here.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	colorBorder  = "D1D5DB"
	colorStripe  = "F8FAFC"
	colorIn      = "059669"
	colorOut     = "DC2626"
	colorHeader  = "4F46E5"
	colorSubHead = "F3F4F6"
	colorBalance = "F9FAFB"
)

// weekdayNames are the capitalized Croatian day names used in report headers.
var weekdayNames = [...]string{
	time.Monday:    "Ponedjeljak",
	time.Tuesday:   "Utorak",
	time.Wednesday: "Srijeda",
	time.Thursday:  "Četvrtak",
	time.Friday:    "Petak",
	time.Saturday:  "Subota",
	time.Sunday:    "Nedjelja",
}

// WeekdayName returns the Croatian name of d's weekday.
func WeekdayName(d stock.Date) string {
	return weekdayNames[d.Weekday()]
}

// ReportFileName names a stock report covering period.
func ReportFileName(period stock.Period) string {
	return fmt.Sprintf("Stanje-artikala_%s_%s.xlsx", period.Start, period.End)
}

// ChangeLogFileName names the export of one change-log entry.
func ChangeLogFileName(entry stock.ChangeLogEntry) string {
	return fmt.Sprintf("Unos_%s_%s.xlsx", entry.Date.Time().Format("02-01-2006"), entry.Type)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func number(d decimal.Decimal) float64 {
	return stock.Round4(d).InexactFloat64()
}

func thinBorder(color string) []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: color, Style: 1},
		{Type: "top", Color: color, Style: 1},
		{Type: "right", Color: color, Style: 1},
		{Type: "bottom", Color: color, Style: 1},
	}
}

func solidFill(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
}
