package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Recipe is a sellable composite good: a fixed list of ingredient
// quantities per serving. A recipe without lines is a draft and cannot be sold.
type Recipe struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string          `gorm:"index;not null" json:"name"`
	Description     string          `json:"description"`
	Category        string          `gorm:"index;not null" json:"category"`
	SellingPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"selling_price"`
	PreparationTime int             `gorm:"not null;default:0" json:"preparation_time"` // minutes
	ServingSize     int             `gorm:"not null;default:1" json:"serving_size"`
	IsActive        bool            `gorm:"not null" json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Lines []RecipeLine `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"lines"`
}

func (r *Recipe) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TotalCost sums the line cost snapshots.
func (r Recipe) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, l := range r.Lines {
		total = total.Add(l.Cost)
	}
	return total
}

// ProfitMargin is SellingPrice minus TotalCost.
func (r Recipe) ProfitMargin() decimal.Decimal {
	return r.SellingPrice.Sub(r.TotalCost())
}

// RecipeLine snapshots an ingredient's name, unit and cost at authoring time.
// IngredientID is a weak reference used only to resolve live stock when the
// recipe is sold; the snapshot fields are never re-resolved from it.
type RecipeLine struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RecipeID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"recipe_id"`
	Position       int             `gorm:"not null" json:"position"`
	IngredientID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"ingredient_id"`
	IngredientName string          `gorm:"not null" json:"ingredient_name"`
	QuantityNeeded decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"quantity_needed"`
	Unit           string          `gorm:"not null" json:"unit"`
	Cost           decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"cost"`
}

func (l *RecipeLine) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// SnapshotLine builds a line from the live ingredient, computing cost as
// quantity × cost per unit.
func SnapshotLine(ing *Ingredient, quantity decimal.Decimal) RecipeLine {
	return RecipeLine{
		IngredientID:   ing.ID,
		IngredientName: ing.Name,
		QuantityNeeded: quantity,
		Unit:           ing.Unit,
		Cost:           quantity.Mul(ing.CostPerUnit),
	}
}
