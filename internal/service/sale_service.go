package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"recipestock/internal/dto"
	"recipestock/internal/model"
	"recipestock/internal/repository"
	"recipestock/internal/stocklevel"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultPOSSystem   = "manual"
	dateLayout         = "2006-01-02"
	maxReportDays      = 366
	topReportRecipes   = 20
	defaultTrendPeriod = "30d"
)

// trendPeriods maps a trend period to the number of days before today it
// reaches back.
var trendPeriods = map[string]int{"7d": 7, "30d": 30, "90d": 90, "1y": 365}

// SaleService is the consumption engine plus the read side of the sale ledger.
type SaleService interface {
	ProcessSale(ctx context.Context, req dto.ProcessSaleRequest) (*dto.SaleResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error)
	List(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error)
	Recent(ctx context.Context, n int) ([]dto.SaleResponse, error)
	DailySummary(ctx context.Context, now time.Time) (*dto.DailySummary, error)
	PeriodReport(ctx context.Context, start, end time.Time) (*dto.PeriodReport, error)
	RevenueTrend(ctx context.Context, period string, now time.Time) (*dto.RevenueTrend, error)
}

type saleService struct {
	// mu serialises ProcessSale within the process; row locks cover other replicas.
	mu sync.Mutex

	sales       repository.SaleRepository
	ingredients repository.IngredientRepository
	recipes     repository.RecipeRepository
	movements   repository.StockMovementRepository
	alerts      AlertNotifier
	now         func() time.Time
}

func NewSaleService(
	sales repository.SaleRepository,
	ingredients repository.IngredientRepository,
	recipes repository.RecipeRepository,
	movements repository.StockMovementRepository,
	alerts AlertNotifier,
) SaleService {
	return &saleService{
		sales:       sales,
		ingredients: ingredients,
		recipes:     recipes,
		movements:   movements,
		alerts:      alerts,
		now:         time.Now,
	}
}

// requirement is the total amount of one ingredient a sale consumes.
// Lines naming the same ingredient are merged so the stock check sees the sum.
type requirement struct {
	ingredientID uuid.UUID
	name         string
	unit         string
	required     decimal.Decimal
}

func requirements(lines []model.RecipeLine, qty decimal.Decimal) []requirement {
	var out []requirement
	idx := make(map[uuid.UUID]int, len(lines))
	for _, l := range lines {
		need := l.QuantityNeeded.Mul(qty)
		if i, ok := idx[l.IngredientID]; ok {
			out[i].required = out[i].required.Add(need)
			continue
		}
		idx[l.IngredientID] = len(out)
		out = append(out, requirement{
			ingredientID: l.IngredientID,
			name:         l.IngredientName,
			unit:         l.Unit,
			required:     need,
		})
	}
	return out
}

// ── ProcessSale ──────────────────────────────────────────────────────────────
// One transaction, serialised by mu:
//   1. Reject non-positive quantity before touching storage
//   2. Resolve recipe under a share lock (not found / inactive / empty)
//   3. Lock every referenced ingredient in id order and collect all shortfalls
//   4. Deduct, write one sale movement per ingredient, append the sale
//   5. COMMIT, then enqueue alerts for ingredients whose level changed into
//      critical or out of stock

func (s *saleService) ProcessSale(ctx context.Context, req dto.ProcessSaleRequest) (*dto.SaleResponse, error) {
	if req.Quantity <= 0 {
		return nil, invalid(ErrInvalidQuantity, fmt.Sprintf("got %d", req.Quantity))
	}
	qty := decimal.NewFromInt(int64(req.Quantity))

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		sale    *model.Sale
		touched []model.Ingredient
	)
	err := runTx(ctx, s.sales.DB(), func(tx *gorm.DB) error {
		recipe, err := s.recipes.FindByIDForShareTx(tx, req.RecipeID)
		if err != nil {
			if isNotFound(err) {
				return notFound(ErrRecipeNotFound, req.RecipeID)
			}
			return fmt.Errorf("load recipe: %w", err)
		}
		if !recipe.IsActive {
			return invalid(ErrRecipeInactive, recipe.Name)
		}
		if len(recipe.Lines) == 0 {
			return invalid(ErrEmptyRecipe, recipe.Name)
		}

		needs := requirements(recipe.Lines, qty)
		ids := make([]uuid.UUID, len(needs))
		for i, n := range needs {
			if !n.required.IsPositive() {
				return invalid(ErrInvalidQuantity, fmt.Sprintf("recipe line %s has a non-positive quantity", n.name))
			}
			ids[i] = n.ingredientID
		}
		live, err := lockIngredients(tx, s.ingredients, ids)
		if err != nil {
			return err
		}
		var shortfalls []Shortfall
		for _, n := range needs {
			ing, ok := live[n.ingredientID]
			if !ok {
				shortfalls = append(shortfalls, Shortfall{
					IngredientID:   n.ingredientID,
					IngredientName: n.name,
					Required:       n.required,
					Available:      decimal.Zero,
					Reason:         ShortfallMissing,
				})
				continue
			}
			if ing.CurrentStock.LessThan(n.required) {
				shortfalls = append(shortfalls, Shortfall{
					IngredientID:   ing.ID,
					IngredientName: n.name,
					Required:       n.required,
					Available:      ing.CurrentStock,
					Reason:         ShortfallInsufficient,
				})
			}
		}
		if len(shortfalls) > 0 {
			return &InsufficientStockError{RecipeID: recipe.ID, Shortfalls: shortfalls}
		}

		now := s.now().UTC()
		sale = &model.Sale{
			ID:            uuid.New(),
			RecipeID:      recipe.ID,
			RecipeName:    recipe.Name,
			QuantitySold:  req.Quantity,
			SalePrice:     recipe.SellingPrice.Mul(qty),
			POSSystem:     strings.TrimSpace(req.POSSystem),
			TransactionID: strings.TrimSpace(req.TransactionID),
			SoldAt:        now,
		}
		if sale.POSSystem == "" {
			sale.POSSystem = defaultPOSSystem
		}
		if sale.TransactionID == "" {
			sale.TransactionID = fmt.Sprintf("TXN-%s-%s", now.Format("20060102150405"), sale.ID.String()[:8])
		}

		for i, n := range needs {
			ing := live[n.ingredientID]
			before := ing.CurrentStock
			levelBefore := ing.Level()
			after := before.Sub(n.required)
			if err := s.ingredients.UpdateStockTx(tx, ing.ID, after, now); err != nil {
				return fmt.Errorf("deduct %s: %w", ing.Name, err)
			}
			ing.CurrentStock = after
			ing.UpdatedAt = now

			mv := model.NewMovement(ing, model.MovementSale, before, after, "sale "+sale.TransactionID)
			mv.ReferenceID = &sale.ID
			if err := s.movements.CreateTx(tx, &mv); err != nil {
				return fmt.Errorf("record movement: %w", err)
			}

			sale.Deductions = append(sale.Deductions, model.SaleDeduction{
				Position:       i,
				IngredientID:   n.ingredientID,
				IngredientName: n.name,
				Quantity:       n.required,
				Unit:           n.unit,
			})
			if ing.Level() != levelBefore {
				touched = append(touched, *ing)
			}
		}

		if err := s.sales.CreateTx(tx, sale); err != nil {
			return fmt.Errorf("append sale: %w", err)
		}
		return nil
	})
	if err != nil {
		err = persist("process sale", err)
		logRejectedSale(req, err)
		return nil, err
	}

	log.Info().
		Str("sale_id", sale.ID.String()).
		Str("recipe", sale.RecipeName).
		Int("quantity", sale.QuantitySold).
		Str("sale_price", sale.SalePrice.StringFixed(2)).
		Msg("sale recorded")

	s.notifyLowStock(ctx, touched)
	return saleToResponse(sale), nil
}

func logRejectedSale(req dto.ProcessSaleRequest, err error) {
	var pe *PersistenceError
	ev := log.Warn()
	if errors.As(err, &pe) {
		ev = log.Error()
	}
	ev.Err(err).
		Str("recipe_id", req.RecipeID.String()).
		Int("quantity", req.Quantity).
		Msg("sale rejected")
}

func (s *saleService) notifyLowStock(ctx context.Context, ingredients []model.Ingredient) {
	if s.alerts == nil {
		return
	}
	for i := range ingredients {
		ing := &ingredients[i]
		if !stocklevel.NeedsAlert(ing.Level()) {
			continue
		}
		if err := s.alerts.EnqueueStockAlert(ctx, alertFor(ing)); err != nil {
			log.Error().Err(err).Str("ingredient", ing.Name).Msg("failed to enqueue stock alert")
		}
	}
}

// ── Ledger reads ─────────────────────────────────────────────────────────────

func (s *saleService) Get(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound(ErrSaleNotFound, id)
		}
		return nil, persist("get sale", err)
	}
	return saleToResponse(sale), nil
}

func (s *saleService) List(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	var rf repository.SaleFilter
	if filter.Date != "" {
		day, err := time.ParseInLocation(dateLayout, filter.Date, time.Local)
		if err != nil {
			return nil, invalid(ErrInvalidValue, "date must be YYYY-MM-DD")
		}
		from, to := dayBounds(day)
		rf.From, rf.To = &from, &to
	}
	if filter.RecipeID != "" {
		id, err := uuid.Parse(filter.RecipeID)
		if err != nil {
			return nil, invalid(ErrInvalidValue, "recipe_id must be a UUID")
		}
		rf.RecipeID = &id
	}
	rf.Page, rf.Limit = repository.NormalizePage(filter.Page, filter.Limit, 50)

	sales, total, err := s.sales.List(ctx, rf)
	if err != nil {
		return nil, persist("list sales", err)
	}
	data := make([]dto.SaleResponse, len(sales))
	for i := range sales {
		data[i] = *saleToResponse(&sales[i])
	}
	return &dto.SaleListResponse{
		Data:       data,
		Total:      total,
		Page:       rf.Page,
		Limit:      rf.Limit,
		TotalPages: totalPages(total, rf.Limit),
	}, nil
}

// Recent returns the n latest sales, newest first.
func (s *saleService) Recent(ctx context.Context, n int) ([]dto.SaleResponse, error) {
	if n <= 0 {
		n = 10
	}
	if n > 100 {
		n = 100
	}
	sales, err := s.sales.Recent(ctx, n)
	if err != nil {
		return nil, persist("recent sales", err)
	}
	out := make([]dto.SaleResponse, len(sales))
	for i := range sales {
		out[i] = *saleToResponse(&sales[i])
	}
	return out, nil
}

// DailySummary aggregates the sales of now's calendar day, in now's location.
func (s *saleService) DailySummary(ctx context.Context, now time.Time) (*dto.DailySummary, error) {
	from, to := dayBounds(now)
	sales, err := s.sales.Between(ctx, from, to)
	if err != nil {
		return nil, persist("daily summary", err)
	}
	t := repository.Totals(sales)
	return &dto.DailySummary{
		Date:       from.Format(dateLayout),
		OrderCount: t.Orders,
		ItemsSold:  t.Items,
		Revenue:    t.Revenue,
		ByRecipe:   recipeSummaries(t.ByRecipe),
	}, nil
}

func recipeSummaries(rows []repository.RecipeTotals) []dto.RecipeSalesSummary {
	out := make([]dto.RecipeSalesSummary, len(rows))
	for i, r := range rows {
		out[i] = dto.RecipeSalesSummary{
			RecipeID:   r.RecipeID,
			RecipeName: r.RecipeName,
			Orders:     r.Orders,
			Quantity:   r.Quantity,
			Revenue:    r.Revenue,
		}
	}
	return out
}

// PeriodReport aggregates the calendar days start..end inclusive, bucketed
// in start's location.
func (s *saleService) PeriodReport(ctx context.Context, start, end time.Time) (*dto.PeriodReport, error) {
	from, _ := dayBounds(start)
	_, to := dayBounds(end.In(start.Location()))
	if !to.After(from) {
		return nil, invalid(ErrInvalidValue, "end_date must not be before start_date")
	}
	if from.AddDate(0, 0, maxReportDays).Before(to) {
		return nil, invalid(ErrInvalidValue, fmt.Sprintf("report range is limited to %d days", maxReportDays))
	}
	sales, err := s.sales.Between(ctx, from, to)
	if err != nil {
		return nil, persist("period report", err)
	}

	t := repository.Totals(sales)
	report := &dto.PeriodReport{
		StartDate:    from.Format(dateLayout),
		EndDate:      to.AddDate(0, 0, -1).Format(dateLayout),
		OrderCount:   t.Orders,
		ItemsSold:    t.Items,
		Revenue:      t.Revenue,
		AverageOrder: decimal.Zero,
		Days:         []dto.DaySales{},
		Hours:        []dto.HourSales{},
		TopRecipes:   recipeSummaries(t.ByRecipe),
	}
	if t.Orders > 0 {
		report.AverageOrder = t.Revenue.Div(decimal.NewFromInt(t.Orders)).Round(2)
	}

	loc := from.Location()
	dayIdx := make(map[string]int)
	var hours [24]dto.HourSales
	for _, sl := range sales {
		at := sl.SoldAt.In(loc)
		key := at.Format(dateLayout)
		i, ok := dayIdx[key]
		if !ok {
			i = len(report.Days)
			dayIdx[key] = i
			report.Days = append(report.Days, dto.DaySales{Date: key, Revenue: decimal.Zero})
		}
		d := &report.Days[i]
		d.Orders++
		d.ItemsSold += int64(sl.QuantitySold)
		d.Revenue = d.Revenue.Add(sl.SalePrice)

		h := &hours[at.Hour()]
		if h.Orders == 0 {
			h.Revenue = decimal.Zero
		}
		h.Orders++
		h.Revenue = h.Revenue.Add(sl.SalePrice)
	}
	for hour, h := range hours {
		if h.Orders > 0 {
			h.Hour = hour
			report.Hours = append(report.Hours, h)
		}
	}

	sort.SliceStable(report.TopRecipes, func(a, b int) bool {
		return report.TopRecipes[a].Revenue.GreaterThan(report.TopRecipes[b].Revenue)
	})
	if len(report.TopRecipes) > topReportRecipes {
		report.TopRecipes = report.TopRecipes[:topReportRecipes]
	}
	return report, nil
}

// RevenueTrend returns daily revenue from period days before now's day up to
// and including it. An empty period means 30d.
func (s *saleService) RevenueTrend(ctx context.Context, period string, now time.Time) (*dto.RevenueTrend, error) {
	if period == "" {
		period = defaultTrendPeriod
	}
	days, ok := trendPeriods[period]
	if !ok {
		return nil, invalid(ErrInvalidValue, fmt.Sprintf("period must be one of 7d, 30d, 90d, 1y; got %q", period))
	}
	today, to := dayBounds(now)
	from := today.AddDate(0, 0, -days)
	sales, err := s.sales.Between(ctx, from, to)
	if err != nil {
		return nil, persist("revenue trend", err)
	}

	trend := &dto.RevenueTrend{Period: period, Points: make([]dto.TrendPoint, 0, days+1)}
	idx := make(map[string]int, days+1)
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		idx[key] = len(trend.Points)
		trend.Points = append(trend.Points, dto.TrendPoint{Date: key, Revenue: decimal.Zero})
	}
	loc := now.Location()
	for _, sl := range sales {
		i, ok := idx[sl.SoldAt.In(loc).Format(dateLayout)]
		if !ok {
			continue
		}
		p := &trend.Points[i]
		p.Orders++
		p.Revenue = p.Revenue.Add(sl.SalePrice)
	}
	return trend, nil
}

// dayBounds returns [midnight, next midnight) of t's calendar day.
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
