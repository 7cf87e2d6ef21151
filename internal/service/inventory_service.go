package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"recipestock/internal/dto"
	"recipestock/internal/model"
	"recipestock/internal/repository"
	"recipestock/internal/stocklevel"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	defaultExpiryWindowDays = 7
	topValueItems           = 10
)

// InventoryService covers whole-inventory views and batch stock edits.
type InventoryService interface {
	Alerts(ctx context.Context) ([]dto.StockAlert, error)
	Expiring(ctx context.Context, days int) ([]dto.ExpiringItem, error)
	Report(ctx context.Context) (*dto.InventoryReport, error)
	Stocktake(ctx context.Context, req dto.StocktakeRequest) (*dto.StocktakeResponse, error)
	BulkUpdate(ctx context.Context, req dto.BulkUpdateRequest) (*dto.BulkUpdateResponse, error)
	Movements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error)
}

type inventoryService struct {
	ingredients repository.IngredientRepository
	movements   repository.StockMovementRepository
	costs       repository.CostHistoryRepository
	now         func() time.Time
}

func NewInventoryService(
	ingredients repository.IngredientRepository,
	movements repository.StockMovementRepository,
	costs repository.CostHistoryRepository,
) InventoryService {
	return &inventoryService{ingredients: ingredients, movements: movements, costs: costs, now: time.Now}
}

// Alerts lists every ingredient classified Low or worse, most severe first.
func (s *inventoryService) Alerts(ctx context.Context) ([]dto.StockAlert, error) {
	all, err := s.ingredients.ListAll(ctx)
	if err != nil {
		return nil, persist("list ingredients", err)
	}
	alerts := make([]dto.StockAlert, 0)
	for i := range all {
		switch all[i].Level() {
		case stocklevel.OutOfStock, stocklevel.Critical, stocklevel.Low:
			alerts = append(alerts, alertFor(&all[i]))
		}
	}
	sort.SliceStable(alerts, func(a, b int) bool {
		return alerts[a].Status.SeverityRank > alerts[b].Status.SeverityRank
	})
	return alerts, nil
}

// Expiring lists ingredients expiring within days (default 7), soonest first.
// Already expired items are included with a negative DaysLeft.
func (s *inventoryService) Expiring(ctx context.Context, days int) ([]dto.ExpiringItem, error) {
	if days <= 0 {
		days = defaultExpiryWindowDays
	}
	now := s.now().UTC()
	list, err := s.ingredients.ListExpiringBefore(ctx, now.AddDate(0, 0, days))
	if err != nil {
		return nil, persist("list expiring", err)
	}
	out := make([]dto.ExpiringItem, 0, len(list))
	for _, ing := range list {
		out = append(out, dto.ExpiringItem{
			IngredientID: ing.ID,
			Name:         ing.Name,
			CurrentStock: ing.CurrentStock,
			Unit:         ing.Unit,
			ExpiryDate:   *ing.ExpiryDate,
			DaysLeft:     daysUntil(now, *ing.ExpiryDate),
		})
	}
	return out, nil
}

func daysUntil(now, t time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}

func (s *inventoryService) Report(ctx context.Context) (*dto.InventoryReport, error) {
	all, err := s.ingredients.ListAll(ctx)
	if err != nil {
		return nil, persist("list ingredients", err)
	}
	now := s.now().UTC()
	horizon := now.AddDate(0, 0, defaultExpiryWindowDays)

	report := &dto.InventoryReport{
		GeneratedAt: now,
		TotalItems:  len(all),
		LevelCounts: make(map[stocklevel.Level]int, len(stocklevel.Levels)),
	}
	for _, l := range stocklevel.Levels {
		report.LevelCounts[l] = 0
	}

	byCategory := make(map[string]*dto.CategoryStats)
	var order []string
	valued := make([]dto.ValuedItem, 0, len(all))
	for i := range all {
		ing := &all[i]
		value := ing.StockValue()
		report.TotalValue = report.TotalValue.Add(value)
		report.LevelCounts[ing.Level()]++

		cs, ok := byCategory[ing.Category]
		if !ok {
			cs = &dto.CategoryStats{Category: ing.Category}
			byCategory[ing.Category] = cs
			order = append(order, ing.Category)
		}
		cs.Items++
		cs.Quantity = cs.Quantity.Add(ing.CurrentStock)
		cs.Value = cs.Value.Add(value)

		if ing.ExpiryDate != nil && !ing.ExpiryDate.After(horizon) {
			report.ExpiringSoon++
		}
		valued = append(valued, dto.ValuedItem{IngredientID: ing.ID, Name: ing.Name, Value: value})
	}

	sort.Strings(order)
	for _, c := range order {
		report.Categories = append(report.Categories, *byCategory[c])
	}
	sort.SliceStable(valued, func(a, b int) bool { return valued[a].Value.GreaterThan(valued[b].Value) })
	if len(valued) > topValueItems {
		valued = valued[:topValueItems]
	}
	report.TopValueItems = valued
	return report, nil
}

// ── Batch edits ──────────────────────────────────────────────────────────────

// Stocktake sets counted quantities in one transaction and reports the
// difference from the recorded figure for every counted ingredient.
func (s *inventoryService) Stocktake(ctx context.Context, req dto.StocktakeRequest) (*dto.StocktakeResponse, error) {
	if len(req.Counts) == 0 {
		return nil, invalid(ErrMissingField, "counts")
	}
	for _, c := range req.Counts {
		if c.ActualQuantity.IsNegative() {
			return nil, invalid(ErrInvalidValue, fmt.Sprintf("negative count for %s", c.IngredientID))
		}
	}

	now := s.now().UTC()
	resp := &dto.StocktakeResponse{CompletedAt: now}
	reason := req.Note
	if reason == "" {
		reason = "stocktake"
	}

	ids := make([]uuid.UUID, len(req.Counts))
	for i, c := range req.Counts {
		ids[i] = c.IngredientID
	}
	err := runTx(ctx, s.ingredients.DB(), func(tx *gorm.DB) error {
		locked, err := lockIngredients(tx, s.ingredients, ids)
		if err != nil {
			return err
		}
		for _, c := range req.Counts {
			ing, ok := locked[c.IngredientID]
			if !ok {
				return notFound(ErrIngredientNotFound, c.IngredientID)
			}
			before := ing.CurrentStock
			diff := c.ActualQuantity.Sub(before)
			resp.Lines = append(resp.Lines, dto.StocktakeLine{
				IngredientID: ing.ID,
				Name:         ing.Name,
				Expected:     before,
				Actual:       c.ActualQuantity,
				Difference:   diff,
			})
			if diff.IsZero() {
				continue
			}
			if err := s.ingredients.UpdateStockTx(tx, ing.ID, c.ActualQuantity, now); err != nil {
				return err
			}
			ing.CurrentStock = c.ActualQuantity
			mv := model.NewMovement(ing, model.MovementStocktake, before, c.ActualQuantity, reason)
			if err := s.movements.CreateTx(tx, &mv); err != nil {
				return err
			}
			resp.Adjusted++
		}
		return nil
	})
	if err != nil {
		return nil, persist("stocktake", err)
	}
	log.Info().Int("counted", len(resp.Lines)).Int("adjusted", resp.Adjusted).Msg("stocktake completed")
	return resp, nil
}

// BulkUpdate applies typed edits to many ingredients. Every item is validated
// before the transaction starts and the batch is applied all-or-nothing.
func (s *inventoryService) BulkUpdate(ctx context.Context, req dto.BulkUpdateRequest) (*dto.BulkUpdateResponse, error) {
	if len(req.Items) == 0 {
		return nil, invalid(ErrMissingField, "items")
	}
	seen := make(map[uuid.UUID]bool, len(req.Items))
	for _, it := range req.Items {
		if seen[it.IngredientID] {
			return nil, invalid(ErrInvalidValue, fmt.Sprintf("ingredient %s listed twice", it.IngredientID))
		}
		seen[it.IngredientID] = true
		if it.CostPerUnit == nil && it.CurrentStock == nil && it.MinStockLevel == nil && it.MaxStockLevel == nil {
			return nil, invalid(ErrMissingField, fmt.Sprintf("no changes for %s", it.IngredientID))
		}
		if anyNegative(it.CostPerUnit, it.CurrentStock, it.MinStockLevel, it.MaxStockLevel) {
			return nil, invalid(ErrInvalidValue, fmt.Sprintf("negative value for %s", it.IngredientID))
		}
	}

	reason := req.Reason
	if reason == "" {
		reason = "bulk update"
	}
	now := s.now().UTC()
	ids := make([]uuid.UUID, len(req.Items))
	for i, it := range req.Items {
		ids[i] = it.IngredientID
	}
	err := runTx(ctx, s.ingredients.DB(), func(tx *gorm.DB) error {
		locked, err := lockIngredients(tx, s.ingredients, ids)
		if err != nil {
			return err
		}
		for _, it := range req.Items {
			ing, ok := locked[it.IngredientID]
			if !ok {
				return notFound(ErrIngredientNotFound, it.IngredientID)
			}
			prevStock, prevCost := ing.CurrentStock, ing.CostPerUnit
			if it.CostPerUnit != nil {
				ing.CostPerUnit = *it.CostPerUnit
			}
			if it.CurrentStock != nil {
				ing.CurrentStock = *it.CurrentStock
			}
			if it.MinStockLevel != nil {
				ing.MinStockLevel = *it.MinStockLevel
			}
			if it.MaxStockLevel != nil {
				ing.MaxStockLevel = *it.MaxStockLevel
			}
			if !ing.CurrentStock.Equal(prevStock) {
				mv := model.NewMovement(ing, model.MovementBulkUpdate, prevStock, ing.CurrentStock, reason)
				if err := s.movements.CreateTx(tx, &mv); err != nil {
					return err
				}
			}
			if !ing.CostPerUnit.Equal(prevCost) {
				h := model.NewCostHistory(ing.ID, prevCost, ing.CostPerUnit, "bulk_update")
				if err := s.costs.CreateTx(tx, &h); err != nil {
					return err
				}
			}
			ing.UpdatedAt = now
			if err := s.ingredients.SaveTx(tx, ing); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, persist("bulk update", err)
	}
	log.Info().Int("items", len(req.Items)).Str("reason", reason).Msg("bulk update applied")
	return &dto.BulkUpdateResponse{Updated: len(req.Items)}, nil
}

func (s *inventoryService) Movements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	var rf repository.StockMovementFilter
	if filter.IngredientID != "" {
		id, err := uuid.Parse(filter.IngredientID)
		if err != nil {
			return nil, invalid(ErrInvalidValue, "ingredient_id must be a UUID")
		}
		rf.IngredientID = &id
	}
	rf.Type = filter.Type
	rf.Page, rf.Limit = repository.NormalizePage(filter.Page, filter.Limit, 100)

	list, total, err := s.movements.List(ctx, rf)
	if err != nil {
		return nil, persist("list movements", err)
	}
	data := make([]dto.MovementResponse, len(list))
	for i := range list {
		data[i] = movementToResponse(&list[i])
	}
	return &dto.MovementListResponse{Data: data, Total: total, Page: rf.Page, Limit: rf.Limit}, nil
}
