package stock

import "github.com/shopspring/decimal"

// =============================================================================
// STOCK SHEET - Weekly view and report grid
// =============================================================================

// SheetCell is one article on one day: movements and end-of-day balance.
type SheetCell struct {
	Date    Date
	In      decimal.Decimal
	Out     decimal.Decimal
	Balance decimal.Decimal
}

// SheetRow is one article across the period. Opening is the balance at the
// end of the day before the period starts.
type SheetRow struct {
	Article Article
	Opening decimal.Decimal
	Cells   []SheetCell
}

// Closing returns the balance at the end of the period.
func (r SheetRow) Closing() decimal.Decimal {
	if len(r.Cells) == 0 {
		return r.Opening
	}
	return r.Cells[len(r.Cells)-1].Balance
}

// StockSheet is the positional report layout: per article an opening balance
// followed by one In/Out/Balance triple per calendar day.
type StockSheet struct {
	Period Period
	Days   []Date
	Rows   []SheetRow
}

// BuildStockSheet folds baseline (records before period.Start) into opening
// balances, then walks every day of the period over window. Days without a
// record still get a cell carrying the previous balance forward.
func BuildStockSheet(articles []Article, baseline, window []DailyRecord, period Period) StockSheet {
	days := period.Days()
	byDate := make(map[Date][]DailyRecord)
	for _, rec := range window {
		if period.Contains(rec.Date) {
			byDate[rec.Date] = append(byDate[rec.Date], rec)
		}
	}

	openingDay := period.Start.AddDays(-1)
	sorted := SortArticles(articles)
	rows := make([]SheetRow, 0, len(sorted))
	for _, a := range sorted {
		row := SheetRow{
			Article: a,
			Opening: BalanceAsOf(a.Slug, openingDay, baseline),
			Cells:   make([]SheetCell, 0, len(days)),
		}
		balance := row.Opening
		for _, day := range days {
			cell := SheetCell{Date: day, In: decimal.Zero, Out: decimal.Zero}
			for _, rec := range byDate[day] {
				d := DailyDelta(a.Slug, rec)
				cell.In = Add4(cell.In, d.In)
				cell.Out = Add4(cell.Out, d.Out)
			}
			balance = Add4(balance, Sub4(cell.In, cell.Out))
			cell.Balance = balance
			row.Cells = append(row.Cells, cell)
		}
		rows = append(rows, row)
	}

	return StockSheet{Period: period, Days: days, Rows: rows}
}
