package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recipestock/internal/dto"
	"recipestock/internal/model"
	"recipestock/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cost analysis factors applied on top of the ingredient cost.
var (
	laborFactor    = decimal.RequireFromString("0.30")
	overheadFactor = decimal.RequireFromString("0.20")
	highMargin     = decimal.NewFromInt(60)
	mediumMargin   = decimal.NewFromInt(30)
	hundred        = decimal.NewFromInt(100)
)

// Profitability bands.
const (
	ProfitabilityHigh   = "high"
	ProfitabilityMedium = "medium"
	ProfitabilityLow    = "low"
)

// RecipeService is the recipe catalogue. Line costs are snapshots taken when a
// line is authored; selling a recipe never re-resolves them.
type RecipeService interface {
	Create(ctx context.Context, req dto.CreateRecipeRequest) (*dto.RecipeResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.RecipeResponse, error)
	List(ctx context.Context, filter dto.RecipeFilter) (*dto.RecipeListResponse, error)
	UpdateMetadata(ctx context.Context, id uuid.UUID, req dto.UpdateRecipeRequest) (*dto.RecipeResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error

	AddLine(ctx context.Context, id uuid.UUID, in dto.RecipeLineInput) (*dto.RecipeResponse, error)
	UpdateLine(ctx context.Context, id uuid.UUID, position int, req dto.UpdateRecipeLineRequest) (*dto.RecipeResponse, error)
	RemoveLine(ctx context.Context, id uuid.UUID, position int) (*dto.RecipeResponse, error)
	Recalculate(ctx context.Context, id uuid.UUID) (*dto.RecipeResponse, error)

	CostAnalysis(ctx context.Context, id uuid.UUID) (*dto.RecipeCostAnalysis, error)
	Availability(ctx context.Context, id uuid.UUID) (*dto.RecipeAvailability, error)
}

type recipeService struct {
	repo        repository.RecipeRepository
	ingredients repository.IngredientRepository
	sales       repository.SaleRepository
}

func NewRecipeService(
	repo repository.RecipeRepository,
	ingredients repository.IngredientRepository,
	sales repository.SaleRepository,
) RecipeService {
	return &recipeService{repo: repo, ingredients: ingredients, sales: sales}
}

// snapshot resolves the live ingredient through db and builds a line from it.
func (s *recipeService) snapshot(db *gorm.DB, in dto.RecipeLineInput) (model.RecipeLine, error) {
	if !in.QuantityNeeded.IsPositive() {
		return model.RecipeLine{}, invalid(ErrInvalidQuantity, "quantity_needed must be positive")
	}
	ing, err := s.ingredients.FindByIDTx(db, in.IngredientID)
	if err != nil {
		if isNotFound(err) {
			return model.RecipeLine{}, notFound(ErrIngredientNotFound, in.IngredientID)
		}
		return model.RecipeLine{}, persist("resolve ingredient", err)
	}
	return model.SnapshotLine(ing, in.QuantityNeeded), nil
}

func (s *recipeService) Create(ctx context.Context, req dto.CreateRecipeRequest) (*dto.RecipeResponse, error) {
	if err := missingFields(map[string]string{
		"name":     req.Name,
		"category": req.Category,
	}); err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, &ValidationError{Err: ErrEmptyRecipe, Detail: "at least one ingredient line is required", Fields: map[string]string{"lines": "min"}}
	}
	if req.SellingPrice.IsNegative() {
		return nil, invalid(ErrInvalidValue, "selling_price must be non-negative")
	}

	rec := &model.Recipe{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		Category:        strings.TrimSpace(req.Category),
		SellingPrice:    req.SellingPrice,
		PreparationTime: req.PreparationTime,
		ServingSize:     req.ServingSize,
		IsActive:        true,
	}
	if rec.ServingSize <= 0 {
		rec.ServingSize = 1
	}
	if req.IsActive != nil {
		rec.IsActive = *req.IsActive
	}
	for i, in := range req.Lines {
		line, err := s.snapshot(s.ingredients.DB().WithContext(ctx), in)
		if err != nil {
			return nil, err
		}
		line.Position = i
		rec.Lines = append(rec.Lines, line)
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, persist("create recipe", err)
	}
	log.Info().
		Str("recipe_id", rec.ID.String()).
		Str("name", rec.Name).
		Int("lines", len(rec.Lines)).
		Msg("recipe created")
	return recipeToResponse(rec), nil
}

func (s *recipeService) find(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound(ErrRecipeNotFound, id)
		}
		return nil, persist("find recipe", err)
	}
	return rec, nil
}

func (s *recipeService) Get(ctx context.Context, id uuid.UUID) (*dto.RecipeResponse, error) {
	rec, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return recipeToResponse(rec), nil
}

func (s *recipeService) List(ctx context.Context, filter dto.RecipeFilter) (*dto.RecipeListResponse, error) {
	filter.Page, filter.Limit = repository.NormalizePage(filter.Page, filter.Limit, 50)
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, persist("list recipes", err)
	}
	data := make([]dto.RecipeResponse, len(list))
	for i := range list {
		data[i] = *recipeToResponse(&list[i])
	}
	return &dto.RecipeListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages(total, filter.Limit),
	}, nil
}

// UpdateMetadata edits everything except the lines. It is allowed after the
// recipe has been sold.
func (s *recipeService) UpdateMetadata(ctx context.Context, id uuid.UUID, req dto.UpdateRecipeRequest) (*dto.RecipeResponse, error) {
	rec, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, invalid(ErrMissingField, "name")
		}
		rec.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		if strings.TrimSpace(*req.Category) == "" {
			return nil, invalid(ErrMissingField, "category")
		}
		rec.Category = strings.TrimSpace(*req.Category)
	}
	if req.Description != nil {
		rec.Description = *req.Description
	}
	if req.SellingPrice != nil {
		if req.SellingPrice.IsNegative() {
			return nil, invalid(ErrInvalidValue, "selling_price must be non-negative")
		}
		rec.SellingPrice = *req.SellingPrice
	}
	if req.PreparationTime != nil {
		rec.PreparationTime = *req.PreparationTime
	}
	if req.ServingSize != nil {
		if *req.ServingSize < 1 {
			return nil, invalid(ErrInvalidValue, "serving_size must be at least 1")
		}
		rec.ServingSize = *req.ServingSize
	}
	if req.IsActive != nil {
		rec.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateMetadata(ctx, rec); err != nil {
		return nil, persist("update recipe", err)
	}
	return recipeToResponse(rec), nil
}

// Delete removes the recipe and its lines. Past sales keep their snapshots.
func (s *recipeService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return notFound(ErrRecipeNotFound, id)
		}
		return persist("delete recipe", err)
	}
	log.Info().Str("recipe_id", id.String()).Msg("recipe deleted")
	return nil
}

// ── Line editing ─────────────────────────────────────────────────────────────

// editLines rewrites the recipe's lines under a row lock. The sold check runs
// in the same transaction; sales hold a share lock on the recipe, so an edit
// and a first sale never interleave.
func (s *recipeService) editLines(ctx context.Context, id uuid.UUID, edit func(tx *gorm.DB, rec *model.Recipe) ([]model.RecipeLine, error)) (*dto.RecipeResponse, error) {
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		rec, err := s.repo.FindByIDForUpdateTx(tx, id)
		if err != nil {
			if isNotFound(err) {
				return notFound(ErrRecipeNotFound, id)
			}
			return fmt.Errorf("lock recipe: %w", err)
		}
		sold, err := s.sales.CountByRecipeTx(tx, id)
		if err != nil {
			return fmt.Errorf("count sales: %w", err)
		}
		if sold > 0 {
			return ErrRecipeLocked
		}
		lines, err := edit(tx, rec)
		if err != nil {
			return err
		}
		if err := s.repo.ReplaceLinesTx(tx, rec.ID, lines); err != nil {
			return err
		}
		rec.UpdatedAt = time.Now().UTC()
		return s.repo.TouchTx(tx, rec)
	})
	if err != nil {
		return nil, persist("save recipe lines", err)
	}
	fresh, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return recipeToResponse(fresh), nil
}

func linePosition(rec *model.Recipe, position int) error {
	if position < 0 || position >= len(rec.Lines) {
		return invalid(ErrInvalidValue, fmt.Sprintf("line %d does not exist", position))
	}
	return nil
}

func (s *recipeService) AddLine(ctx context.Context, id uuid.UUID, in dto.RecipeLineInput) (*dto.RecipeResponse, error) {
	return s.editLines(ctx, id, func(tx *gorm.DB, rec *model.Recipe) ([]model.RecipeLine, error) {
		line, err := s.snapshot(tx, in)
		if err != nil {
			return nil, err
		}
		return append(rec.Lines, line), nil
	})
}

// UpdateLine changes the quantity and re-snapshots that line's cost from the
// live ingredient. Other lines are left untouched.
func (s *recipeService) UpdateLine(ctx context.Context, id uuid.UUID, position int, req dto.UpdateRecipeLineRequest) (*dto.RecipeResponse, error) {
	return s.editLines(ctx, id, func(tx *gorm.DB, rec *model.Recipe) ([]model.RecipeLine, error) {
		if err := linePosition(rec, position); err != nil {
			return nil, err
		}
		line, err := s.snapshot(tx, dto.RecipeLineInput{
			IngredientID:   rec.Lines[position].IngredientID,
			QuantityNeeded: req.QuantityNeeded,
		})
		if err != nil {
			return nil, err
		}
		lines := append([]model.RecipeLine(nil), rec.Lines...)
		lines[position] = line
		return lines, nil
	})
}

// RemoveLine may leave an empty draft, which cannot be sold.
func (s *recipeService) RemoveLine(ctx context.Context, id uuid.UUID, position int) (*dto.RecipeResponse, error) {
	return s.editLines(ctx, id, func(_ *gorm.DB, rec *model.Recipe) ([]model.RecipeLine, error) {
		if err := linePosition(rec, position); err != nil {
			return nil, err
		}
		lines := make([]model.RecipeLine, 0, len(rec.Lines)-1)
		lines = append(lines, rec.Lines[:position]...)
		return append(lines, rec.Lines[position+1:]...), nil
	})
}

// Recalculate re-snapshots every line's cost from current ingredient prices.
// Lines whose ingredient no longer exists keep their old snapshot.
func (s *recipeService) Recalculate(ctx context.Context, id uuid.UUID) (*dto.RecipeResponse, error) {
	return s.editLines(ctx, id, func(tx *gorm.DB, rec *model.Recipe) ([]model.RecipeLine, error) {
		lines := append([]model.RecipeLine(nil), rec.Lines...)
		for i, l := range lines {
			ing, err := s.ingredients.FindByIDTx(tx, l.IngredientID)
			if err != nil {
				if isNotFound(err) {
					continue
				}
				return nil, fmt.Errorf("resolve ingredient: %w", err)
			}
			lines[i].Cost = l.QuantityNeeded.Mul(ing.CostPerUnit)
		}
		return lines, nil
	})
}

// ── Derived queries ──────────────────────────────────────────────────────────

func (s *recipeService) CostAnalysis(ctx context.Context, id uuid.UUID) (*dto.RecipeCostAnalysis, error) {
	rec, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return AnalyzeCost(rec), nil
}

// AnalyzeCost adds labour and overhead to the ingredient cost and bands the
// resulting margin.
func AnalyzeCost(rec *model.Recipe) *dto.RecipeCostAnalysis {
	ingredientCost := rec.TotalCost()
	labor := ingredientCost.Mul(laborFactor)
	overhead := ingredientCost.Mul(overheadFactor)
	total := ingredientCost.Add(labor).Add(overhead)
	gross := rec.SellingPrice.Sub(total)

	pct := decimal.Zero
	if rec.SellingPrice.IsPositive() {
		pct = gross.Div(rec.SellingPrice).Mul(hundred).Round(2)
	}
	band := ProfitabilityLow
	switch {
	case pct.GreaterThanOrEqual(highMargin):
		band = ProfitabilityHigh
	case pct.GreaterThanOrEqual(mediumMargin):
		band = ProfitabilityMedium
	}

	return &dto.RecipeCostAnalysis{
		RecipeID:       rec.ID,
		RecipeName:     rec.Name,
		SellingPrice:   rec.SellingPrice,
		IngredientCost: ingredientCost,
		LaborCost:      labor,
		OverheadCost:   overhead,
		TotalCost:      total,
		GrossMargin:    gross,
		MarginPercent:  pct,
		Profitability:  band,
	}
}

// Availability reports, per ingredient, whether live stock covers one serving
// and how many servings could be sold right now.
func (s *recipeService) Availability(ctx context.Context, id uuid.UUID) (*dto.RecipeAvailability, error) {
	rec, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &dto.RecipeAvailability{RecipeID: rec.ID, RecipeName: rec.Name}
	needs := requirements(rec.Lines, decimal.NewFromInt(1))
	if len(needs) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(needs))
	for i, n := range needs {
		ids[i] = n.ingredientID
	}
	found, err := s.ingredients.FindByIDs(ctx, ids)
	if err != nil {
		return nil, persist("resolve ingredients", err)
	}
	live := make(map[uuid.UUID]model.Ingredient, len(found))
	for _, ing := range found {
		live[ing.ID] = ing
	}

	var maxServings *decimal.Decimal
	for _, n := range needs {
		la := dto.LineAvailability{
			IngredientID:   n.ingredientID,
			IngredientName: n.name,
			QuantityNeeded: n.required,
			Available:      decimal.Zero,
		}
		servings := decimal.Zero
		if ing, ok := live[n.ingredientID]; ok {
			la.Available = ing.CurrentStock
			la.Sufficient = !ing.CurrentStock.LessThan(n.required)
			if n.required.IsPositive() {
				servings = ing.CurrentStock.Div(n.required).Floor()
			}
		} else {
			la.Missing = true
		}
		if maxServings == nil || servings.LessThan(*maxServings) {
			maxServings = &servings
		}
		out.Lines = append(out.Lines, la)
	}
	out.MaxServings = maxServings.IntPart()
	out.CanMake = rec.IsActive && out.MaxServings > 0
	return out, nil
}
