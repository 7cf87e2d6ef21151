package dto

import (
	"time"

	"recipestock/internal/stocklevel"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Request DTOs ──────────────────────────────────────────────────────────────

// BulkUpdateItem is one typed edit; nil fields are left unchanged.
type BulkUpdateItem struct {
	IngredientID  uuid.UUID        `json:"ingredient_id"   validate:"required"`
	CostPerUnit   *decimal.Decimal `json:"cost_per_unit"`
	CurrentStock  *decimal.Decimal `json:"current_stock"`
	MinStockLevel *decimal.Decimal `json:"min_stock_level"`
	MaxStockLevel *decimal.Decimal `json:"max_stock_level"`
}

type BulkUpdateRequest struct {
	Items  []BulkUpdateItem `json:"items"  validate:"required,min=1,dive"`
	Reason string           `json:"reason" validate:"max=255"`
}

type StocktakeCount struct {
	IngredientID   uuid.UUID       `json:"ingredient_id"   validate:"required"`
	ActualQuantity decimal.Decimal `json:"actual_quantity" validate:"min=0"`
}

type StocktakeRequest struct {
	Counts []StocktakeCount `json:"counts" validate:"required,min=1,dive"`
	Note   string           `json:"note"   validate:"max=255"`
}

type MovementFilter struct {
	IngredientID string `form:"ingredient_id"`
	Type         string `form:"type"`
	Page         int    `form:"page,default=1"    validate:"min=1"`
	Limit        int    `form:"limit,default=100" validate:"min=1,max=500"`
}

// ── Response DTOs ─────────────────────────────────────────────────────────────

type StockAlert struct {
	IngredientID  uuid.UUID              `json:"ingredient_id"`
	Name          string                 `json:"name"`
	Category      string                 `json:"category"`
	Unit          string                 `json:"unit"`
	CurrentStock  decimal.Decimal        `json:"current_stock"`
	MinStockLevel decimal.Decimal        `json:"min_stock_level"`
	Status        stocklevel.Description `json:"status"`
}

type ExpiringItem struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	Name         string          `json:"name"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	Unit         string          `json:"unit"`
	ExpiryDate   time.Time       `json:"expiry_date"`
	DaysLeft     int             `json:"days_left"`
}

type CategoryStats struct {
	Category string          `json:"category"`
	Items    int             `json:"items"`
	Quantity decimal.Decimal `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

type ValuedItem struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	Name         string          `json:"name"`
	Value        decimal.Decimal `json:"value"`
}

type InventoryReport struct {
	GeneratedAt   time.Time                `json:"generated_at"`
	TotalItems    int                      `json:"total_items"`
	TotalValue    decimal.Decimal          `json:"total_value"`
	LevelCounts   map[stocklevel.Level]int `json:"level_counts"`
	Categories    []CategoryStats          `json:"categories"`
	ExpiringSoon  int                      `json:"expiring_soon"`
	TopValueItems []ValuedItem             `json:"top_value_items"`
}

type StocktakeLine struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	Name         string          `json:"name"`
	Expected     decimal.Decimal `json:"expected"`
	Actual       decimal.Decimal `json:"actual"`
	Difference   decimal.Decimal `json:"difference"`
}

type StocktakeResponse struct {
	Lines       []StocktakeLine `json:"lines"`
	Adjusted    int             `json:"adjusted"`
	CompletedAt time.Time       `json:"completed_at"`
}

type BulkUpdateResponse struct {
	Updated int `json:"updated"`
}

type MovementResponse struct {
	ID             uuid.UUID       `json:"id"`
	IngredientID   uuid.UUID       `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Type           string          `json:"type"`
	Quantity       decimal.Decimal `json:"quantity"`
	StockBefore    decimal.Decimal `json:"stock_before"`
	StockAfter     decimal.Decimal `json:"stock_after"`
	Reason         string          `json:"reason"`
	ReferenceID    *uuid.UUID      `json:"reference_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type MovementListResponse struct {
	Data  []MovementResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
