package service

import (
	"recipestock/internal/repository"

	"gorm.io/gorm"
)

// Services is the full service graph over one database. The HTTP router,
// the worker pool and the seed command all build it the same way.
type Services struct {
	Ingredients IngredientService
	Categories  CategoryService
	Recipes     RecipeService
	Sales       SaleService
	Inventory   InventoryService
	Transfer    TransferService
}

// NewServices wires repositories and services. alerts may be nil.
func NewServices(db *gorm.DB, alerts AlertNotifier) *Services {
	ingredients := repository.NewIngredientRepository(db)
	categories := repository.NewCategoryRepository(db)
	recipes := repository.NewRecipeRepository(db)
	sales := repository.NewSaleRepository(db)
	movements := repository.NewStockMovementRepository(db)
	costs := repository.NewCostHistoryRepository(db)

	return &Services{
		Ingredients: NewIngredientService(ingredients, movements, costs),
		Categories:  NewCategoryService(categories, ingredients),
		Recipes:     NewRecipeService(recipes, ingredients, sales),
		Sales:       NewSaleService(sales, ingredients, recipes, movements, alerts),
		Inventory:   NewInventoryService(ingredients, movements, costs),
		Transfer:    NewTransferService(ingredients, recipes, sales, movements, costs),
	}
}
