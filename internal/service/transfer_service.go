package service

import (
	"context"
	"fmt"
	"time"

	"recipestock/internal/dto"
	"recipestock/internal/model"
	"recipestock/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// TransferService exports and imports the three collections as one document.
type TransferService interface {
	Export(ctx context.Context) (*dto.InventoryDocument, error)
	Import(ctx context.Context, doc dto.InventoryDocument) (*dto.ImportResult, error)
}

type transferService struct {
	ingredients repository.IngredientRepository
	recipes     repository.RecipeRepository
	sales       repository.SaleRepository
	movements   repository.StockMovementRepository
	costs       repository.CostHistoryRepository
	now         func() time.Time
}

func NewTransferService(
	ingredients repository.IngredientRepository,
	recipes repository.RecipeRepository,
	sales repository.SaleRepository,
	movements repository.StockMovementRepository,
	costs repository.CostHistoryRepository,
) TransferService {
	return &transferService{
		ingredients: ingredients,
		recipes:     recipes,
		sales:       sales,
		movements:   movements,
		costs:       costs,
		now:         time.Now,
	}
}

func (s *transferService) Export(ctx context.Context) (*dto.InventoryDocument, error) {
	ingredients, err := s.ingredients.ListAll(ctx)
	if err != nil {
		return nil, persist("export ingredients", err)
	}
	recipes, err := s.recipes.ListAll(ctx)
	if err != nil {
		return nil, persist("export recipes", err)
	}
	sales, err := s.sales.ListAll(ctx)
	if err != nil {
		return nil, persist("export sales", err)
	}

	now := s.now().UTC()
	doc := &dto.InventoryDocument{
		ExportedAt:  now,
		Ingredients: dto.Collection[model.Ingredient]{Version: dto.DocumentVersion, Items: ingredients},
		Recipes:     dto.Collection[model.Recipe]{Version: dto.DocumentVersion, Items: recipes},
		Sales:       dto.Collection[model.Sale]{Version: dto.DocumentVersion, Items: sales},
	}
	for _, i := range ingredients {
		if i.UpdatedAt.After(doc.Ingredients.LastSavedAt) {
			doc.Ingredients.LastSavedAt = i.UpdatedAt
		}
	}
	for _, r := range recipes {
		if r.UpdatedAt.After(doc.Recipes.LastSavedAt) {
			doc.Recipes.LastSavedAt = r.UpdatedAt
		}
	}
	for _, sl := range sales {
		if sl.SoldAt.After(doc.Sales.LastSavedAt) {
			doc.Sales.LastSavedAt = sl.SoldAt
		}
	}
	return doc, nil
}

// Import upserts ingredients and recipes by id and appends sales that are not
// already in the ledger; existing sales are never overwritten. Stock and cost
// changes on existing ingredients are recorded as import movements.
func (s *transferService) Import(ctx context.Context, doc dto.InventoryDocument) (*dto.ImportResult, error) {
	for name, v := range map[string]string{
		"ingredients": doc.Ingredients.Version,
		"recipes":     doc.Recipes.Version,
		"sales":       doc.Sales.Version,
	} {
		if v != "" && v != dto.DocumentVersion {
			return nil, invalid(ErrInvalidValue, fmt.Sprintf("%s: unsupported version %q", name, v))
		}
	}
	seen := make(map[uuid.UUID]bool, len(doc.Ingredients.Items))
	ids := make([]uuid.UUID, len(doc.Ingredients.Items))
	for i, ing := range doc.Ingredients.Items {
		if anyNegative(&ing.CurrentStock, &ing.CostPerUnit, &ing.MinStockLevel, &ing.MaxStockLevel) {
			return nil, invalid(ErrInvalidValue, fmt.Sprintf("ingredient %q has a negative stock, cost or level", ing.Name))
		}
		if seen[ing.ID] {
			return nil, invalid(ErrInvalidValue, fmt.Sprintf("ingredient %s appears twice", ing.ID))
		}
		seen[ing.ID] = true
		ids[i] = ing.ID
	}
	for _, rec := range doc.Recipes.Items {
		if rec.SellingPrice.IsNegative() {
			return nil, invalid(ErrInvalidValue, fmt.Sprintf("recipe %q has a negative selling_price", rec.Name))
		}
		for _, l := range rec.Lines {
			if !l.QuantityNeeded.IsPositive() {
				return nil, invalid(ErrInvalidQuantity, fmt.Sprintf("recipe %q: quantity_needed for %q must be positive", rec.Name, l.IngredientName))
			}
		}
	}
	for _, sl := range doc.Sales.Items {
		if sl.QuantitySold <= 0 {
			return nil, invalid(ErrInvalidQuantity, fmt.Sprintf("sale %s", sl.ID))
		}
		if sl.SalePrice.IsNegative() {
			return nil, invalid(ErrInvalidValue, fmt.Sprintf("sale %s has a negative sale_price", sl.ID))
		}
	}

	res := &dto.ImportResult{}
	err := runTx(ctx, s.ingredients.DB(), func(tx *gorm.DB) error {
		locked, err := lockIngredients(tx, s.ingredients, ids)
		if err != nil {
			return err
		}
		for i := range doc.Ingredients.Items {
			ing := doc.Ingredients.Items[i]
			if err := s.ingredients.UpsertTx(tx, &ing); err != nil {
				return fmt.Errorf("ingredient %q: %w", ing.Name, err)
			}
			if existing, ok := locked[ing.ID]; ok {
				if err := s.recordImport(tx, existing, &ing); err != nil {
					return err
				}
			}
			res.Ingredients++
		}

		for i := range doc.Recipes.Items {
			rec := doc.Recipes.Items[i]
			if err := s.recipes.UpsertTx(tx, &rec); err != nil {
				return fmt.Errorf("recipe %q: %w", rec.Name, err)
			}
			if err := s.recipes.ReplaceLinesTx(tx, rec.ID, rec.Lines); err != nil {
				return fmt.Errorf("recipe %q lines: %w", rec.Name, err)
			}
			res.Recipes++
		}

		for i := range doc.Sales.Items {
			sl := doc.Sales.Items[i]
			exists, err := s.sales.ExistsTx(tx, sl.ID)
			if err != nil {
				return err
			}
			if exists {
				res.SkippedSales++
				continue
			}
			for j := range sl.Deductions {
				sl.Deductions[j].SaleID = sl.ID
			}
			if err := s.sales.CreateTx(tx, &sl); err != nil {
				return fmt.Errorf("sale %s: %w", sl.ID, err)
			}
			res.Sales++
		}
		return nil
	})
	if err != nil {
		return nil, persist("import", err)
	}
	log.Info().
		Int("ingredients", res.Ingredients).
		Int("recipes", res.Recipes).
		Int("sales", res.Sales).
		Int("skipped_sales", res.SkippedSales).
		Msg("inventory document imported")
	return res, nil
}

func (s *transferService) recordImport(tx *gorm.DB, before, after *model.Ingredient) error {
	if !before.CurrentStock.Equal(after.CurrentStock) {
		mv := model.NewMovement(after, model.MovementImport, before.CurrentStock, after.CurrentStock, "import")
		if err := s.movements.CreateTx(tx, &mv); err != nil {
			return err
		}
	}
	if !before.CostPerUnit.Equal(after.CostPerUnit) {
		h := model.NewCostHistory(after.ID, before.CostPerUnit, after.CostPerUnit, "import")
		if err := s.costs.CreateTx(tx, &h); err != nil {
			return err
		}
	}
	return nil
}
