package model

import (
	"time"

	"recipestock/internal/stocklevel"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ingredient is a stockable raw material. CurrentStock is never driven below
// zero by a sale; direct edits may set it to any non-negative value.
type Ingredient struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string          `gorm:"index;not null" json:"name"`
	Category        string          `gorm:"index;not null" json:"category"`
	Supplier        string          `gorm:"not null" json:"supplier"`
	Type            string          `gorm:"not null;default:''" json:"type"` // freshness / grade tag
	Unit            string          `gorm:"not null;default:'units'" json:"unit"`
	CostPerUnit     decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"cost_per_unit"`
	CurrentStock    decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"current_stock"`
	MinStockLevel   decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"min_stock_level"`
	MaxStockLevel   decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"max_stock_level"`
	ExpiryDate      *time.Time      `json:"expiry_date,omitempty"`
	SKU             *string         `gorm:"index" json:"sku,omitempty"`
	Description     string          `json:"description"`
	StorageLocation string          `json:"storage_location"`
	SupplierContact string          `json:"supplier_contact"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	LastRestockedAt *time.Time      `json:"last_restocked_at,omitempty"`
}

func (i *Ingredient) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Level classifies the ingredient's current stock.
func (i Ingredient) Level() stocklevel.Level {
	return stocklevel.Classify(i.CurrentStock, i.MinStockLevel, i.MaxStockLevel)
}

// StockValue is current stock valued at cost.
func (i Ingredient) StockValue() decimal.Decimal {
	return i.CurrentStock.Mul(i.CostPerUnit)
}
