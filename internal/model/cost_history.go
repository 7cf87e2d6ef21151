package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CostHistory records each change of an ingredient's cost per unit.
// Rows are immutable.
type CostHistory struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	IngredientID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	CostBefore    decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	CostAfter     decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	ChangePercent decimal.Decimal `gorm:"type:decimal(8,2);not null"`
	Reason        string          `gorm:"not null;default:'manual'"` // manual | bulk_update | import
	CreatedAt     time.Time
}

// TableName keeps the table name singular-plural consistent with the migrations.
func (CostHistory) TableName() string { return "cost_history" }

func (h *CostHistory) BeforeCreate(_ *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// NewCostHistory computes the percentage change; a zero previous cost yields 0%.
func NewCostHistory(ingredientID uuid.UUID, before, after decimal.Decimal, reason string) CostHistory {
	pct := decimal.Zero
	if !before.IsZero() {
		pct = after.Sub(before).Div(before).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return CostHistory{
		IngredientID:  ingredientID,
		CostBefore:    before,
		CostAfter:     after,
		ChangePercent: pct,
		Reason:        reason,
	}
}
