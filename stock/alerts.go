package stock

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ALERT EVALUATOR - Low-stock projection
// =============================================================================

// Alert reports an article whose stock is below its threshold.
type Alert struct {
	ArticleID    ArticleID
	Slug         ArticleSlug
	Code         string
	Name         string
	CurrentStock decimal.Decimal
	MinStock     decimal.Decimal
}

// EvaluateAlerts returns the articles whose rounded balance is strictly below
// their threshold, in article order. Missing balances count as zero. When
// alerts are disabled in settings the result is empty.
func EvaluateAlerts(settings AppSettings, articles []Article, balances map[ArticleSlug]decimal.Decimal) []Alert {
	alerts := []Alert{}
	if !settings.StockAlerts.Enabled {
		return alerts
	}
	for _, a := range SortArticles(articles) {
		current := Round4(balances[a.Slug])
		threshold := a.Threshold()
		if current.LessThan(threshold) {
			alerts = append(alerts, Alert{
				ArticleID:    a.ID,
				Slug:         a.Slug,
				Code:         a.Code,
				Name:         a.Name,
				CurrentStock: current,
				MinStock:     threshold,
			})
		}
	}
	return alerts
}

// Alerts evaluates the current alert set as of asOf with explicit settings.
func (l *Ledger) Alerts(ctx context.Context, settings AppSettings, asOf Date) ([]Alert, error) {
	articles, balances, err := l.CurrentBalances(ctx, asOf)
	if err != nil {
		return nil, err
	}
	return EvaluateAlerts(settings, articles, balances), nil
}
