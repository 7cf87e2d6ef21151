package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Movement types.
const (
	MovementSale       = "sale"
	MovementRestock    = "restock"
	MovementAdjustment = "adjustment"
	MovementStocktake  = "stocktake"
	MovementBulkUpdate = "bulk_update"
	MovementImport     = "import"
)

// StockMovement records every change to an ingredient's stock.
// Rows are never updated or deleted. IngredientID is not a foreign key so the
// history outlives the ingredient.
type StockMovement struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	IngredientID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	IngredientName string          `gorm:"not null"`
	Type           string          `gorm:"not null;index"`
	Quantity       decimal.Decimal `gorm:"type:decimal(12,3);not null"` // positive = in, negative = out
	StockBefore    decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	StockAfter     decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Reason         string
	ReferenceID    *uuid.UUID `gorm:"type:uuid"` // sale id when Type is sale
	CreatedAt      time.Time
}

func (m *StockMovement) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// NewMovement fills quantity from the before/after pair.
func NewMovement(ing *Ingredient, kind string, before, after decimal.Decimal, reason string) StockMovement {
	return StockMovement{
		IngredientID:   ing.ID,
		IngredientName: ing.Name,
		Type:           kind,
		Quantity:       after.Sub(before),
		StockBefore:    before,
		StockAfter:     after,
		Reason:         reason,
	}
}
