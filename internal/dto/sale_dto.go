package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Request DTOs ──────────────────────────────────────────────────────────────

// ProcessSaleRequest is the processSale input. Quantity is checked by the
// engine so that zero and negative values surface as InvalidQuantity.
type ProcessSaleRequest struct {
	RecipeID      uuid.UUID `json:"recipe_id"`
	Quantity      int       `json:"quantity"`
	POSSystem     string    `json:"pos_system"     validate:"max=64"`
	TransactionID string    `json:"transaction_id" validate:"max=128"`
}

type SaleFilter struct {
	Date     string `form:"date"` // YYYY-MM-DD, interpreted in server local time
	RecipeID string `form:"recipe_id"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// ── Response DTOs ─────────────────────────────────────────────────────────────

type SaleDeductionResponse struct {
	IngredientID   uuid.UUID       `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit"`
}

type SaleResponse struct {
	ID            uuid.UUID               `json:"id"`
	TransactionID string                  `json:"transaction_id"`
	RecipeID      uuid.UUID               `json:"recipe_id"`
	RecipeName    string                  `json:"recipe_name"`
	QuantitySold  int                     `json:"quantity_sold"`
	SalePrice     decimal.Decimal         `json:"sale_price"`
	POSSystem     string                  `json:"pos_system"`
	SoldAt        time.Time               `json:"sold_at"`
	Deductions    []SaleDeductionResponse `json:"ingredients_deducted"`
}

type SaleListResponse struct {
	Data       []SaleResponse `json:"data"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

type RecipeSalesSummary struct {
	RecipeID   uuid.UUID       `json:"recipe_id"`
	RecipeName string          `json:"recipe_name"`
	Orders     int64           `json:"orders"`
	Quantity   int64           `json:"quantity"`
	Revenue    decimal.Decimal `json:"revenue"`
}

type DailySummary struct {
	Date       string               `json:"date"`
	OrderCount int64                `json:"order_count"`
	ItemsSold  int64                `json:"items_sold"`
	Revenue    decimal.Decimal      `json:"revenue"`
	ByRecipe   []RecipeSalesSummary `json:"by_recipe"`
}

type DaySales struct {
	Date      string          `json:"date"`
	Orders    int64           `json:"orders"`
	ItemsSold int64           `json:"items_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type HourSales struct {
	Hour    int             `json:"hour"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// PeriodReport covers the calendar days StartDate..EndDate inclusive. Days
// and Hours only list buckets that had sales.
type PeriodReport struct {
	StartDate    string               `json:"start_date"`
	EndDate      string               `json:"end_date"`
	OrderCount   int64                `json:"order_count"`
	ItemsSold    int64                `json:"items_sold"`
	Revenue      decimal.Decimal      `json:"revenue"`
	AverageOrder decimal.Decimal      `json:"average_order"`
	Days         []DaySales           `json:"daily_breakdown"`
	Hours        []HourSales          `json:"hourly_breakdown"`
	TopRecipes   []RecipeSalesSummary `json:"top_recipes"`
}

type TrendPoint struct {
	Date    string          `json:"date"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// RevenueTrend has one point per calendar day, days without sales included.
type RevenueTrend struct {
	Period string       `json:"period"`
	Points []TrendPoint `json:"trends"`
}
