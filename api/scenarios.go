/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario seeds the default bar catalog
	and commits daily records through the reconciler, so balances, alerts,
	statistics and the change log all reflect the loaded data.

AVAILABLE SCENARIOS:

	default-catalog: Default catalog, no records
	opening-week:    Monday delivery followed by six days of sales
	low-stock:       Every other article drained below its minimum
	sales-history:   Six months of daily sales with weekly deliveries
	corrections:     A record overwritten and another deleted

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Seed the catalog via factory
 3. Commit daily records relative to today
 4. Confirm overwrites where the scenario needs them

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "opening-week"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase handler
  - factory/catalog.go: Default catalog definitions
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/stock-engine/stock"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "default-catalog",
		Name:        "Default Catalog",
		Description: "Bar catalog with minimum stock levels and no movements",
		Category:    "catalog",
	},
	{
		ID:          "opening-week",
		Name:        "Opening Week",
		Description: "Delivery on Monday last week, sales every day after",
		Category:    "records",
	},
	{
		ID:          "low-stock",
		Name:        "Low Stock",
		Description: "Every other article sits below its minimum stock",
		Category:    "alerts",
	},
	{
		ID:          "sales-history",
		Name:        "Sales History",
		Description: "Six months of daily sales with weekly deliveries",
		Category:    "statistics",
	},
	{
		ID:          "corrections",
		Name:        "Corrections",
		Description: "A record replaced after confirmation and another deleted",
		Category:    "audit",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.getCurrentScenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "default-catalog":
		load = h.loadDefaultCatalogScenario
	case "opening-week":
		load = h.loadOpeningWeekScenario
	case "low-stock":
		load = h.loadLowStockScenario
	case "sales-history":
		load = h.loadSalesHistoryScenario
	case "corrections":
		load = h.loadCorrectionsScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setCurrentScenario("")

	if err := load(ctx); err != nil {
		h.writeDomainError(w, "Failed to load scenario", err)
		return
	}

	h.setCurrentScenario(req.ScenarioID)
	h.logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

func (h *Handler) getCurrentScenario() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.currentScenario
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadDefaultCatalogScenario(ctx context.Context) error {
	_, err := h.seedDefaultCatalog(ctx)
	return err
}

// loadOpeningWeekScenario delivers every article on Monday of last week and
// sells a varying amount on each following day.
func (h *Handler) loadOpeningWeekScenario(ctx context.Context) error {
	articles, err := h.seedDefaultCatalog(ctx)
	if err != nil {
		return err
	}

	monday := stock.WeekOf(h.today()).Start.AddDays(-7)
	delivery := make([]stock.MovementLine, len(articles))
	for j, a := range articles {
		delivery[j] = movement(a.Slug, deliveryFor(a), decimal.Zero)
	}
	if err := h.commitDay(ctx, monday, delivery); err != nil {
		return err
	}

	for i := 1; i < 7; i++ {
		lines := make([]stock.MovementLine, len(articles))
		for j, a := range articles {
			lines[j] = movement(a.Slug, decimal.Zero, dailySales(a, i, j))
		}
		if err := h.commitDay(ctx, monday.AddDays(i), lines); err != nil {
			return err
		}
	}
	return nil
}

// loadLowStockScenario fills every article exactly to its minimum, then
// sells one unit of every other article.
func (h *Handler) loadLowStockScenario(ctx context.Context) error {
	articles, err := h.seedDefaultCatalog(ctx)
	if err != nil {
		return err
	}

	today := h.today()
	fill := make([]stock.MovementLine, len(articles))
	var sales []stock.MovementLine
	for j, a := range articles {
		fill[j] = movement(a.Slug, a.Threshold(), decimal.Zero)
		if j%2 == 0 {
			sales = append(sales, movement(a.Slug, decimal.Zero, decimal.NewFromInt(1)))
		}
	}
	if err := h.commitDay(ctx, today.AddDays(-2), fill); err != nil {
		return err
	}
	return h.commitDay(ctx, today.AddDays(-1), sales)
}

// loadSalesHistoryScenario commits one record per day for the last six
// months: a delivery every Monday and sales every day.
func (h *Handler) loadSalesHistoryScenario(ctx context.Context) error {
	articles, err := h.seedDefaultCatalog(ctx)
	if err != nil {
		return err
	}

	today := h.today()
	i := 0
	for d := today.AddMonths(-6); d.Before(today); d = d.AddDays(1) {
		lines := make([]stock.MovementLine, len(articles))
		for j, a := range articles {
			in := decimal.Zero
			if d.Weekday() == time.Monday {
				in = deliveryFor(a)
			}
			lines[j] = movement(a.Slug, in, dailySales(a, i, j))
		}
		if err := h.commitDay(ctx, d, lines); err != nil {
			return err
		}
		i++
	}
	return nil
}

// loadCorrectionsScenario leaves a CREATE, UPDATE and DELETE in the change log.
func (h *Handler) loadCorrectionsScenario(ctx context.Context) error {
	articles, err := h.seedDefaultCatalog(ctx)
	if err != nil {
		return err
	}
	first, second := articles[0], articles[1]
	today := h.today()

	if err := h.commitDay(ctx, today.AddDays(-3), []stock.MovementLine{
		movement(first.Slug, decimal.NewFromInt(48), decimal.Zero),
		movement(second.Slug, decimal.NewFromInt(24), decimal.Zero),
	}); err != nil {
		return err
	}
	if err := h.commitDay(ctx, today.AddDays(-2), []stock.MovementLine{
		movement(first.Slug, decimal.Zero, decimal.NewFromInt(12)),
	}); err != nil {
		return err
	}
	// the second day was miscounted and is replaced
	if err := h.commitDay(ctx, today.AddDays(-2), []stock.MovementLine{
		movement(first.Slug, decimal.Zero, decimal.NewFromInt(10)),
		movement(second.Slug, decimal.Zero, decimal.NewFromInt(3)),
	}); err != nil {
		return err
	}
	if err := h.commitDay(ctx, today.AddDays(-1), []stock.MovementLine{
		movement(second.Slug, decimal.Zero, decimal.NewFromInt(30)),
	}); err != nil {
		return err
	}
	_, err = h.Reconciler.CommitDelete(ctx, today.AddDays(-1))
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) seedDefaultCatalog(ctx context.Context) ([]stock.Article, error) {
	return h.Catalog.Seed(ctx, h.Factory.DefaultCatalog())
}

// commitDay plans lines for date and commits them, confirming overwrites.
func (h *Handler) commitDay(ctx context.Context, date stock.Date, lines []stock.MovementLine) error {
	plan, err := h.Reconciler.Entry(ctx, date, lines)
	if err != nil {
		return err
	}
	_, err = h.Reconciler.Commit(ctx, plan.Confirm())
	return err
}

func movement(slug stock.ArticleSlug, in, out decimal.Decimal) stock.MovementLine {
	return stock.MovementLine{Slug: slug, In: in, Out: out}
}

// deliveryFor is four times the article's minimum stock.
func deliveryFor(a stock.Article) decimal.Decimal {
	return stock.Round4(a.Threshold().Mul(decimal.NewFromInt(4)))
}

// dailySales varies between a tenth and a half of the minimum stock,
// depending on the day and the article position.
func dailySales(a stock.Article, day, pos int) decimal.Decimal {
	tenths := int64((day*3+pos*5)%5 + 1)
	return stock.Round4(a.Threshold().Mul(decimal.New(tenths, -1)))
}
