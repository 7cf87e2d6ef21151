package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"recipestock/internal/dto"
	"recipestock/internal/model"
	"recipestock/internal/repository"
	"recipestock/internal/stocklevel"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// AlertNotifier receives ingredients that need attention. The Redis
// dispatcher implements it; a nil notifier disables alerts.
type AlertNotifier interface {
	EnqueueStockAlert(ctx context.Context, alert dto.StockAlert) error
}

// lockIngredients takes row locks on ids in ascending id order, so two
// transactions sharing rows always lock them in the same sequence. Unknown
// ids are left out of the map.
func lockIngredients(tx *gorm.DB, repo repository.IngredientRepository, ids []uuid.UUID) (map[uuid.UUID]*model.Ingredient, error) {
	ordered := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			ordered = append(ordered, id)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i][:], ordered[j][:]) < 0
	})

	locked := make(map[uuid.UUID]*model.Ingredient, len(ordered))
	for _, id := range ordered {
		ing, err := repo.FindByIDForUpdateTx(tx, id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("lock ingredient %s: %w", id, err)
		}
		locked[id] = ing
	}
	return locked, nil
}

func isNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

func stockDescription(i *model.Ingredient) stocklevel.Description {
	return stocklevel.Describe(i.CurrentStock, i.MinStockLevel, i.MaxStockLevel)
}

func anyNegative(values ...*decimal.Decimal) bool {
	for _, v := range values {
		if v != nil && v.IsNegative() {
			return true
		}
	}
	return false
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// ── Mappers ──────────────────────────────────────────────────────────────────

func ingredientToResponse(i *model.Ingredient) *dto.IngredientResponse {
	return &dto.IngredientResponse{
		ID:              i.ID,
		Name:            i.Name,
		Category:        i.Category,
		Supplier:        i.Supplier,
		Type:            i.Type,
		Unit:            i.Unit,
		CostPerUnit:     i.CostPerUnit,
		CurrentStock:    i.CurrentStock,
		MinStockLevel:   i.MinStockLevel,
		MaxStockLevel:   i.MaxStockLevel,
		ExpiryDate:      i.ExpiryDate,
		SKU:             i.SKU,
		Description:     i.Description,
		StorageLocation: i.StorageLocation,
		SupplierContact: i.SupplierContact,
		StockLevel:      stockDescription(i),
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
		LastRestockedAt: i.LastRestockedAt,
	}
}

func recipeToResponse(r *model.Recipe) *dto.RecipeResponse {
	lines := make([]dto.RecipeLineResponse, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = dto.RecipeLineResponse{
			Position:       l.Position,
			IngredientID:   l.IngredientID,
			IngredientName: l.IngredientName,
			QuantityNeeded: l.QuantityNeeded,
			Unit:           l.Unit,
			Cost:           l.Cost,
		}
	}
	return &dto.RecipeResponse{
		ID:              r.ID,
		Name:            r.Name,
		Description:     r.Description,
		Category:        r.Category,
		SellingPrice:    r.SellingPrice,
		PreparationTime: r.PreparationTime,
		ServingSize:     r.ServingSize,
		IsActive:        r.IsActive,
		Lines:           lines,
		TotalCost:       r.TotalCost(),
		ProfitMargin:    r.ProfitMargin(),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func saleToResponse(s *model.Sale) *dto.SaleResponse {
	deductions := make([]dto.SaleDeductionResponse, len(s.Deductions))
	for i, d := range s.Deductions {
		deductions[i] = dto.SaleDeductionResponse{
			IngredientID:   d.IngredientID,
			IngredientName: d.IngredientName,
			Quantity:       d.Quantity,
			Unit:           d.Unit,
		}
	}
	return &dto.SaleResponse{
		ID:            s.ID,
		TransactionID: s.TransactionID,
		RecipeID:      s.RecipeID,
		RecipeName:    s.RecipeName,
		QuantitySold:  s.QuantitySold,
		SalePrice:     s.SalePrice,
		POSSystem:     s.POSSystem,
		SoldAt:        s.SoldAt,
		Deductions:    deductions,
	}
}

func movementToResponse(m *model.StockMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:             m.ID,
		IngredientID:   m.IngredientID,
		IngredientName: m.IngredientName,
		Type:           m.Type,
		Quantity:       m.Quantity,
		StockBefore:    m.StockBefore,
		StockAfter:     m.StockAfter,
		Reason:         m.Reason,
		ReferenceID:    m.ReferenceID,
		CreatedAt:      m.CreatedAt,
	}
}

func alertFor(i *model.Ingredient) dto.StockAlert {
	return dto.StockAlert{
		IngredientID:  i.ID,
		Name:          i.Name,
		Category:      i.Category,
		Unit:          i.Unit,
		CurrentStock:  i.CurrentStock,
		MinStockLevel: i.MinStockLevel,
		Status:        stockDescription(i),
	}
}
