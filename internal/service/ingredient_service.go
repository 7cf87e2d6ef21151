package service

import (
	"context"
	"strings"
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

var (
	defaultMinStock = decimal.NewFromInt(5)
	defaultMaxStock = decimal.NewFromInt(100)
)

const defaultUnit = "units"

// IngredientService owns the ingredient catalogue and every direct stock edit.
type IngredientService interface {
	Add(ctx context.Context, req dto.CreateIngredientRequest) (*dto.IngredientResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.IngredientResponse, error)
	List(ctx context.Context, filter dto.IngredientFilter) (*dto.IngredientListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateIngredientRequest) (*dto.IngredientResponse, error)
	Restock(ctx context.Context, id uuid.UUID, req dto.RestockRequest) (*dto.IngredientResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CostHistory(ctx context.Context, id uuid.UUID, limit int) ([]dto.CostHistoryResponse, error)
}

type ingredientService struct {
	repo      repository.IngredientRepository
	movements repository.StockMovementRepository
	costs     repository.CostHistoryRepository
}

func NewIngredientService(
	repo repository.IngredientRepository,
	movements repository.StockMovementRepository,
	costs repository.CostHistoryRepository,
) IngredientService {
	return &ingredientService{repo: repo, movements: movements, costs: costs}
}

func (s *ingredientService) Add(ctx context.Context, req dto.CreateIngredientRequest) (*dto.IngredientResponse, error) {
	if err := missingFields(map[string]string{
		"name":     req.Name,
		"category": req.Category,
		"supplier": req.Supplier,
	}); err != nil {
		return nil, err
	}
	if req.CostPerUnit.IsNegative() || req.CurrentStock.IsNegative() {
		return nil, invalid(ErrInvalidValue, "cost and stock must be non-negative")
	}

	ing := &model.Ingredient{
		Name:            strings.TrimSpace(req.Name),
		Category:        strings.TrimSpace(req.Category),
		Supplier:        strings.TrimSpace(req.Supplier),
		Type:            req.Type,
		Unit:            strings.TrimSpace(req.Unit),
		CostPerUnit:     req.CostPerUnit,
		CurrentStock:    req.CurrentStock,
		MinStockLevel:   defaultMinStock,
		MaxStockLevel:   defaultMaxStock,
		ExpiryDate:      utcPtr(req.ExpiryDate),
		SKU:             req.SKU,
		Description:     req.Description,
		StorageLocation: req.StorageLocation,
		SupplierContact: req.SupplierContact,
	}
	if ing.Unit == "" {
		ing.Unit = defaultUnit
	}
	if req.MinStockLevel != nil {
		ing.MinStockLevel = *req.MinStockLevel
	}
	if req.MaxStockLevel != nil {
		ing.MaxStockLevel = *req.MaxStockLevel
	}
	if ing.MinStockLevel.IsNegative() || ing.MaxStockLevel.IsNegative() {
		return nil, invalid(ErrInvalidValue, "stock levels must be non-negative")
	}

	if err := s.repo.Create(ctx, ing); err != nil {
		return nil, persist("add ingredient", err)
	}
	log.Info().Str("ingredient_id", ing.ID.String()).Str("name", ing.Name).Msg("ingredient added")
	return ingredientToResponse(ing), nil
}

func (s *ingredientService) Get(ctx context.Context, id uuid.UUID) (*dto.IngredientResponse, error) {
	ing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return ingredientToResponse(ing), nil
}

func (s *ingredientService) find(ctx context.Context, id uuid.UUID) (*model.Ingredient, error) {
	ing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound(ErrIngredientNotFound, id)
		}
		return nil, persist("find ingredient", err)
	}
	return ing, nil
}

func (s *ingredientService) List(ctx context.Context, filter dto.IngredientFilter) (*dto.IngredientListResponse, error) {
	if filter.Level != "" && !stocklevel.Valid(filter.Level) {
		return nil, invalid(ErrInvalidValue, "unknown stock level "+filter.Level)
	}
	filter.Page, filter.Limit = repository.NormalizePage(filter.Page, filter.Limit, 50)

	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, persist("list ingredients", err)
	}
	data := make([]dto.IngredientResponse, len(list))
	for i := range list {
		data[i] = *ingredientToResponse(&list[i])
	}
	return &dto.IngredientListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages(total, filter.Limit),
	}, nil
}

// Update applies a partial edit. A stock change writes an adjustment movement
// and a cost change writes a cost history row, both in the same transaction.
func (s *ingredientService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateIngredientRequest) (*dto.IngredientResponse, error) {
	var out *model.Ingredient
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		ing, err := s.repo.FindByIDForUpdateTx(tx, id)
		if err != nil {
			if isNotFound(err) {
				return notFound(ErrIngredientNotFound, id)
			}
			return err
		}
		if err := applyIngredientEdit(ing, req); err != nil {
			return err
		}
		prevStock, prevCost := ing.CurrentStock, ing.CostPerUnit
		if req.CurrentStock != nil {
			ing.CurrentStock = *req.CurrentStock
		}
		if req.CostPerUnit != nil {
			ing.CostPerUnit = *req.CostPerUnit
		}

		reason := req.Reason
		if reason == "" {
			reason = "manual edit"
		}
		if err := s.recordChanges(tx, ing, prevStock, prevCost, model.MovementAdjustment, reason, "manual"); err != nil {
			return err
		}
		ing.UpdatedAt = time.Now().UTC()
		if err := s.repo.SaveTx(tx, ing); err != nil {
			return err
		}
		out = ing
		return nil
	})
	if err != nil {
		return nil, persist("update ingredient", err)
	}
	return ingredientToResponse(out), nil
}

// applyIngredientEdit validates and copies every field except stock and cost,
// which callers handle so they can record the change.
func applyIngredientEdit(ing *model.Ingredient, req dto.UpdateIngredientRequest) error {
	for name, v := range map[string]*string{"name": req.Name, "category": req.Category, "supplier": req.Supplier} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return &ValidationError{Err: ErrMissingField, Detail: name, Fields: map[string]string{name: "required"}}
		}
	}
	if anyNegative(req.CostPerUnit, req.CurrentStock, req.MinStockLevel, req.MaxStockLevel) {
		return invalid(ErrInvalidValue, "quantities and costs must be non-negative")
	}

	if req.Name != nil {
		ing.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		ing.Category = strings.TrimSpace(*req.Category)
	}
	if req.Supplier != nil {
		ing.Supplier = strings.TrimSpace(*req.Supplier)
	}
	if req.Type != nil {
		ing.Type = *req.Type
	}
	if req.Unit != nil && strings.TrimSpace(*req.Unit) != "" {
		ing.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.MinStockLevel != nil {
		ing.MinStockLevel = *req.MinStockLevel
	}
	if req.MaxStockLevel != nil {
		ing.MaxStockLevel = *req.MaxStockLevel
	}
	if req.ClearExpiryDate {
		ing.ExpiryDate = nil
	} else if req.ExpiryDate != nil {
		ing.ExpiryDate = utcPtr(req.ExpiryDate)
	}
	if req.SKU != nil {
		ing.SKU = req.SKU
	}
	if req.Description != nil {
		ing.Description = *req.Description
	}
	if req.StorageLocation != nil {
		ing.StorageLocation = *req.StorageLocation
	}
	if req.SupplierContact != nil {
		ing.SupplierContact = *req.SupplierContact
	}
	return nil
}

// recordChanges writes a movement when stock moved and a cost history row
// when the unit cost changed.
func (s *ingredientService) recordChanges(tx *gorm.DB, ing *model.Ingredient, prevStock, prevCost decimal.Decimal, kind, reason, costReason string) error {
	if !ing.CurrentStock.Equal(prevStock) {
		mv := model.NewMovement(ing, kind, prevStock, ing.CurrentStock, reason)
		if err := s.movements.CreateTx(tx, &mv); err != nil {
			return err
		}
	}
	if !ing.CostPerUnit.Equal(prevCost) {
		h := model.NewCostHistory(ing.ID, prevCost, ing.CostPerUnit, costReason)
		if err := s.costs.CreateTx(tx, &h); err != nil {
			return err
		}
	}
	return nil
}

func (s *ingredientService) Restock(ctx context.Context, id uuid.UUID, req dto.RestockRequest) (*dto.IngredientResponse, error) {
	if !req.Quantity.IsPositive() {
		return nil, invalid(ErrInvalidQuantity, "restock quantity must be positive")
	}
	var out *model.Ingredient
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		ing, err := s.repo.FindByIDForUpdateTx(tx, id)
		if err != nil {
			if isNotFound(err) {
				return notFound(ErrIngredientNotFound, id)
			}
			return err
		}
		now := time.Now().UTC()
		before := ing.CurrentStock
		ing.CurrentStock = before.Add(req.Quantity)
		ing.LastRestockedAt = &now
		ing.UpdatedAt = now

		reason := req.Note
		if reason == "" {
			reason = "restock"
		}
		mv := model.NewMovement(ing, model.MovementRestock, before, ing.CurrentStock, reason)
		if err := s.movements.CreateTx(tx, &mv); err != nil {
			return err
		}
		if err := s.repo.SaveTx(tx, ing); err != nil {
			return err
		}
		out = ing
		return nil
	})
	if err != nil {
		return nil, persist("restock", err)
	}
	log.Info().
		Str("ingredient", out.Name).
		Str("quantity", req.Quantity.String()).
		Str("stock", out.CurrentStock.String()).
		Msg("ingredient restocked")
	return ingredientToResponse(out), nil
}

// Delete removes the ingredient. Recipes keep their snapshots; a later sale of
// such a recipe reports the ingredient as missing.
func (s *ingredientService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return notFound(ErrIngredientNotFound, id)
		}
		return persist("delete ingredient", err)
	}
	log.Info().Str("ingredient_id", id.String()).Msg("ingredient deleted")
	return nil
}

func (s *ingredientService) CostHistory(ctx context.Context, id uuid.UUID, limit int) ([]dto.CostHistoryResponse, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.costs.ListByIngredient(ctx, id, limit)
	if err != nil {
		return nil, persist("cost history", err)
	}
	out := make([]dto.CostHistoryResponse, len(rows))
	for i, h := range rows {
		out[i] = dto.CostHistoryResponse{
			ID:            h.ID,
			IngredientID:  h.IngredientID,
			CostBefore:    h.CostBefore,
			CostAfter:     h.CostAfter,
			ChangePercent: h.ChangePercent,
			Reason:        h.Reason,
			CreatedAt:     h.CreatedAt,
		}
	}
	return out, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
