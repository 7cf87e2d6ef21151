package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sale is an immutable record of a recipe sold QuantitySold times. It holds
// value snapshots only: RecipeID is informational and is not a foreign key,
// so deleting the recipe leaves the ledger intact.
type Sale struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID string          `gorm:"index;not null" json:"transaction_id"`
	RecipeID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"recipe_id"`
	RecipeName    string          `gorm:"not null" json:"recipe_name"`
	QuantitySold  int             `gorm:"not null" json:"quantity_sold"`
	SalePrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"sale_price"`
	POSSystem     string          `gorm:"column:pos_system;not null" json:"pos_system"`
	SoldAt        time.Time       `gorm:"index;not null" json:"sold_at"`
	CreatedAt     time.Time       `json:"created_at"`

	Deductions []SaleDeduction `gorm:"foreignKey:SaleID" json:"deductions"`
}

func (s *Sale) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SaleDeduction is one ingredient consumed by a sale, already scaled by
// QuantitySold.
type SaleDeduction struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SaleID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	Position       int             `gorm:"not null" json:"position"`
	IngredientID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"ingredient_id"`
	IngredientName string          `gorm:"not null" json:"ingredient_name"`
	Quantity       decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"quantity"`
	Unit           string          `gorm:"not null" json:"unit"`
}

func (d *SaleDeduction) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
