package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Request DTOs ──────────────────────────────────────────────────────────────

type RecipeLineInput struct {
	IngredientID   uuid.UUID       `json:"ingredient_id"`
	QuantityNeeded decimal.Decimal `json:"quantity_needed"`
}

// CreateRecipeRequest is the addRecipe input. Name, category and at least one
// line are enforced by the service.
type CreateRecipeRequest struct {
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Category        string            `json:"category"`
	SellingPrice    decimal.Decimal   `json:"selling_price"    validate:"min=0"`
	PreparationTime int               `json:"preparation_time" validate:"min=0"`
	ServingSize     int               `json:"serving_size"     validate:"min=0"`
	IsActive        *bool             `json:"is_active"`
	Lines           []RecipeLineInput `json:"lines"`
}

// UpdateRecipeRequest edits metadata only; lines have their own endpoints.
type UpdateRecipeRequest struct {
	Name            *string          `json:"name"             validate:"omitempty,min=1"`
	Description     *string          `json:"description"`
	Category        *string          `json:"category"         validate:"omitempty,min=1"`
	SellingPrice    *decimal.Decimal `json:"selling_price"`
	PreparationTime *int             `json:"preparation_time" validate:"omitempty,min=0"`
	ServingSize     *int             `json:"serving_size"     validate:"omitempty,min=1"`
	IsActive        *bool            `json:"is_active"`
}

type UpdateRecipeLineRequest struct {
	QuantityNeeded decimal.Decimal `json:"quantity_needed"`
}

type RecipeFilter struct {
	Name     string `form:"name"`
	Category string `form:"category"`
	Active   string `form:"active"` // "true" | "false" | "" (all)
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// ── Response DTOs ─────────────────────────────────────────────────────────────

type RecipeLineResponse struct {
	Position       int             `json:"position"`
	IngredientID   uuid.UUID       `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	QuantityNeeded decimal.Decimal `json:"quantity_needed"`
	Unit           string          `json:"unit"`
	Cost           decimal.Decimal `json:"cost"`
}

type RecipeResponse struct {
	ID              uuid.UUID            `json:"id"`
	Name            string               `json:"name"`
	Description     string               `json:"description"`
	Category        string               `json:"category"`
	SellingPrice    decimal.Decimal      `json:"selling_price"`
	PreparationTime int                  `json:"preparation_time"`
	ServingSize     int                  `json:"serving_size"`
	IsActive        bool                 `json:"is_active"`
	Lines           []RecipeLineResponse `json:"lines"`
	TotalCost       decimal.Decimal      `json:"total_cost"`
	ProfitMargin    decimal.Decimal      `json:"profit_margin"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type RecipeListResponse struct {
	Data       []RecipeResponse `json:"data"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

type RecipeCostAnalysis struct {
	RecipeID       uuid.UUID       `json:"recipe_id"`
	RecipeName     string          `json:"recipe_name"`
	SellingPrice   decimal.Decimal `json:"selling_price"`
	IngredientCost decimal.Decimal `json:"ingredient_cost"`
	LaborCost      decimal.Decimal `json:"labor_cost"`
	OverheadCost   decimal.Decimal `json:"overhead_cost"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	GrossMargin    decimal.Decimal `json:"gross_margin"`
	MarginPercent  decimal.Decimal `json:"margin_percent"`
	Profitability  string          `json:"profitability"` // high | medium | low
}

type LineAvailability struct {
	IngredientID   uuid.UUID       `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	QuantityNeeded decimal.Decimal `json:"quantity_needed"`
	Available      decimal.Decimal `json:"available"`
	Missing        bool            `json:"missing"`
	Sufficient     bool            `json:"sufficient"`
}

type RecipeAvailability struct {
	RecipeID    uuid.UUID          `json:"recipe_id"`
	RecipeName  string             `json:"recipe_name"`
	CanMake     bool               `json:"can_make"`
	MaxServings int64              `json:"max_servings"`
	Lines       []LineAvailability `json:"lines"`
}
