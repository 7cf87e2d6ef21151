package dto

import (
	"time"

	"recipestock/internal/stocklevel"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Request DTOs ──────────────────────────────────────────────────────────────

// CreateIngredientRequest carries the fields accepted by addIngredient.
// Name, category and supplier are checked by the service so that a missing
// field surfaces as a domain validation error.
type CreateIngredientRequest struct {
	Name            string           `json:"name"`
	Category        string           `json:"category"`
	Supplier        string           `json:"supplier"`
	Type            string           `json:"type"`
	Unit            string           `json:"unit"`
	CostPerUnit     decimal.Decimal  `json:"cost_per_unit"     validate:"min=0"`
	CurrentStock    decimal.Decimal  `json:"current_stock"     validate:"min=0"`
	MinStockLevel   *decimal.Decimal `json:"min_stock_level"`
	MaxStockLevel   *decimal.Decimal `json:"max_stock_level"`
	ExpiryDate      *time.Time       `json:"expiry_date"`
	SKU             *string          `json:"sku"               validate:"omitempty,max=64"`
	Description     string           `json:"description"`
	StorageLocation string           `json:"storage_location"`
	SupplierContact string           `json:"supplier_contact"`
}

// UpdateIngredientRequest is a partial update; nil fields are left unchanged.
type UpdateIngredientRequest struct {
	Name            *string          `json:"name"`
	Category        *string          `json:"category"`
	Supplier        *string          `json:"supplier"`
	Type            *string          `json:"type"`
	Unit            *string          `json:"unit"`
	CostPerUnit     *decimal.Decimal `json:"cost_per_unit"`
	CurrentStock    *decimal.Decimal `json:"current_stock"`
	MinStockLevel   *decimal.Decimal `json:"min_stock_level"`
	MaxStockLevel   *decimal.Decimal `json:"max_stock_level"`
	ExpiryDate      *time.Time       `json:"expiry_date"`
	ClearExpiryDate bool             `json:"clear_expiry_date"`
	SKU             *string          `json:"sku"`
	Description     *string          `json:"description"`
	StorageLocation *string          `json:"storage_location"`
	SupplierContact *string          `json:"supplier_contact"`
	Reason          string           `json:"reason"`
}

type RestockRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"required,gt=0"`
	Note     string          `json:"note"     validate:"max=255"`
}

type IngredientFilter struct {
	Name     string `form:"name"`
	Category string `form:"category"`
	Supplier string `form:"supplier"`
	Level    string `form:"level"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// ── Response DTOs ─────────────────────────────────────────────────────────────

type IngredientResponse struct {
	ID              uuid.UUID              `json:"id"`
	Name            string                 `json:"name"`
	Category        string                 `json:"category"`
	Supplier        string                 `json:"supplier"`
	Type            string                 `json:"type"`
	Unit            string                 `json:"unit"`
	CostPerUnit     decimal.Decimal        `json:"cost_per_unit"`
	CurrentStock    decimal.Decimal        `json:"current_stock"`
	MinStockLevel   decimal.Decimal        `json:"min_stock_level"`
	MaxStockLevel   decimal.Decimal        `json:"max_stock_level"`
	ExpiryDate      *time.Time             `json:"expiry_date,omitempty"`
	SKU             *string                `json:"sku,omitempty"`
	Description     string                 `json:"description"`
	StorageLocation string                 `json:"storage_location"`
	SupplierContact string                 `json:"supplier_contact"`
	StockLevel      stocklevel.Description `json:"stock_level"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	LastRestockedAt *time.Time             `json:"last_restocked_at,omitempty"`
}

type IngredientListResponse struct {
	Data       []IngredientResponse `json:"data"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"total_pages"`
}

type CostHistoryResponse struct {
	ID            uuid.UUID       `json:"id"`
	IngredientID  uuid.UUID       `json:"ingredient_id"`
	CostBefore    decimal.Decimal `json:"cost_before"`
	CostAfter     decimal.Decimal `json:"cost_after"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Reason        string          `json:"reason"`
	CreatedAt     time.Time       `json:"created_at"`
}
