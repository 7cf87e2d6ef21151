package service

import (
	"context"
	"sync"
	"testing"

	"recipestock/internal/dto"
	"recipestock/internal/model"
	"recipestock/internal/repository"
	"recipestock/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []dto.StockAlert
}

func (f *fakeNotifier) EnqueueStockAlert(_ context.Context, a dto.StockAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return nil
}

func (f *fakeNotifier) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.alerts))
	for i, a := range f.alerts {
		out[i] = a.Name
	}
	return out
}

type fixture struct {
	db         *gorm.DB
	ingRepo    repository.IngredientRepository
	recipeRepo repository.RecipeRepository
	saleRepo   repository.SaleRepository
	moveRepo   repository.StockMovementRepository
	costRepo   repository.CostHistoryRepository

	ingredients IngredientService
	categories  CategoryService
	recipes     RecipeService
	sales       *saleService
	inventory   *inventoryService
	transfer    TransferService
	alerts      *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:         db,
		ingRepo:    repository.NewIngredientRepository(db),
		recipeRepo: repository.NewRecipeRepository(db),
		saleRepo:   repository.NewSaleRepository(db),
		moveRepo:   repository.NewStockMovementRepository(db),
		costRepo:   repository.NewCostHistoryRepository(db),
		alerts:     &fakeNotifier{},
	}
	f.ingredients = NewIngredientService(f.ingRepo, f.moveRepo, f.costRepo)
	f.categories = NewCategoryService(repository.NewCategoryRepository(db), f.ingRepo)
	f.recipes = NewRecipeService(f.recipeRepo, f.ingRepo, f.saleRepo)
	f.sales = NewSaleService(f.saleRepo, f.ingRepo, f.recipeRepo, f.moveRepo, f.alerts).(*saleService)
	f.inventory = NewInventoryService(f.ingRepo, f.moveRepo, f.costRepo).(*inventoryService)
	f.transfer = NewTransferService(f.ingRepo, f.recipeRepo, f.saleRepo, f.moveRepo, f.costRepo)
	return f
}

// ingredient adds an ingredient costing 2.00 per piece with min 5 / max 100.
func (f *fixture) ingredient(t *testing.T, name, stock string) uuid.UUID {
	t.Helper()
	ing, err := f.ingredients.Add(context.Background(), dto.CreateIngredientRequest{
		Name:         name,
		Category:     "kitchen",
		Supplier:     "Metro",
		Unit:         "pieces",
		CostPerUnit:  dec("2.00"),
		CurrentStock: dec(stock),
	})
	require.NoError(t, err)
	return ing.ID
}

func line(id uuid.UUID, qty string) dto.RecipeLineInput {
	return dto.RecipeLineInput{IngredientID: id, QuantityNeeded: dec(qty)}
}

func (f *fixture) recipe(t *testing.T, name, price string, lines ...dto.RecipeLineInput) uuid.UUID {
	t.Helper()
	rec, err := f.recipes.Create(context.Background(), dto.CreateRecipeRequest{
		Name:         name,
		Category:     "main",
		SellingPrice: dec(price),
		Lines:        lines,
	})
	require.NoError(t, err)
	return rec.ID
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	ing, err := f.ingRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return ing.CurrentStock
}

func (f *fixture) saleCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Sale{}).Count(&n).Error)
	return n
}

func (f *fixture) movementCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.StockMovement{}).Count(&n).Error)
	return n
}

func (f *fixture) sell(recipeID uuid.UUID, qty int) (*dto.SaleResponse, error) {
	return f.sales.ProcessSale(context.Background(), dto.ProcessSaleRequest{RecipeID: recipeID, Quantity: qty})
}
