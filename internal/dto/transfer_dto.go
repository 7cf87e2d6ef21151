package dto

import (
	"time"

	"recipestock/internal/model"
)

// DocumentVersion tags every exported collection.
const DocumentVersion = "1.0"

// Collection wraps one exported list with its version and last-saved time.
type Collection[T any] struct {
	Version     string    `json:"version"`
	LastSavedAt time.Time `json:"last_saved_at"`
	Items       []T       `json:"items"`
}

// InventoryDocument is the bulk export/import document. It carries full
// records, so exporting and re-importing yields the same state.
type InventoryDocument struct {
	ExportedAt  time.Time                    `json:"exported_at"`
	Ingredients Collection[model.Ingredient] `json:"ingredients"`
	Recipes     Collection[model.Recipe]     `json:"recipes"`
	Sales       Collection[model.Sale]       `json:"sales"`
}

type ImportResult struct {
	Ingredients  int `json:"ingredients"`
	Recipes      int `json:"recipes"`
	Sales        int `json:"sales"`
	SkippedSales int `json:"skipped_sales"`
}
