package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"recipestock/internal/dto"
	"recipestock/internal/model"
	"recipestock/internal/stocklevel"
	"recipestock/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func seedIngredient(t *testing.T, repo IngredientRepository, name, category, stock string) *model.Ingredient {
	t.Helper()
	ing := &model.Ingredient{
		Name:          name,
		Category:      category,
		Supplier:      "Metro",
		Unit:          "pieces",
		CostPerUnit:   dec("1.50"),
		CurrentStock:  dec(stock),
		MinStockLevel: dec("5"),
		MaxStockLevel: dec("100"),
	}
	require.NoError(t, repo.Create(context.Background(), ing))
	return ing
}

// ── Ingredients ──────────────────────────────────────────────────────────────

func TestIngredientRepo_CreateFindUpdateDelete(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewIngredientRepository(db)
	ctx := context.Background()

	ing := seedIngredient(t, repo, "Schnitzel", "meat", "20")
	assert.NotEqual(t, uuid.Nil, ing.ID)

	got, err := repo.FindByID(ctx, ing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Schnitzel", got.Name)
	assert.True(t, got.CurrentStock.Equal(dec("20")))

	got.CurrentStock = dec("12.5")
	require.NoError(t, repo.Update(ctx, got))
	again, err := repo.FindByID(ctx, ing.ID)
	require.NoError(t, err)
	assert.True(t, again.CurrentStock.Equal(dec("12.5")))

	require.NoError(t, repo.Delete(ctx, ing.ID))
	_, err = repo.FindByID(ctx, ing.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, ing.ID), gorm.ErrRecordNotFound)
}

func TestIngredientRepo_ListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewIngredientRepository(db)
	seedIngredient(t, repo, "Schnitzel", "meat", "20")
	seedIngredient(t, repo, "Pork Loin", "meat", "8")
	seedIngredient(t, repo, "Potatoes", "produce", "40")

	list, total, err := repo.List(context.Background(), dto.IngredientFilter{Category: "meat", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "Pork Loin", list[0].Name)

	list, total, err = repo.List(context.Background(), dto.IngredientFilter{Name: "POTA", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Potatoes", list[0].Name)

	n, err := repo.CountByCategory(context.Background(), "meat")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestIngredientRepo_UpdateStockTx(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewIngredientRepository(db)
	ing := seedIngredient(t, repo, "Schnitzel", "meat", "20")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := db.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.FindByIDForUpdateTx(tx, ing.ID)
		if err != nil {
			return err
		}
		return repo.UpdateStockTx(tx, locked.ID, locked.CurrentStock.Sub(dec("3")), at)
	})
	require.NoError(t, err)

	got, err := repo.FindByID(context.Background(), ing.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentStock.Equal(dec("17")))
	assert.True(t, got.UpdatedAt.Equal(at))
}

func TestIngredientRepo_ListExpiringBefore(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewIngredientRepository(db)
	now := time.Now().UTC()

	soon := seedIngredient(t, repo, "Cream", "dairy", "4")
	later := seedIngredient(t, repo, "Flour", "dry_goods", "10")
	s, l := now.Add(48*time.Hour), now.Add(30*24*time.Hour)
	soon.ExpiryDate, later.ExpiryDate = &s, &l
	require.NoError(t, repo.Update(context.Background(), soon))
	require.NoError(t, repo.Update(context.Background(), later))
	seedIngredient(t, repo, "Salt", "dry_goods", "10")

	list, err := repo.ListExpiringBefore(context.Background(), now.Add(7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Cream", list[0].Name)
}

// ── Recipes ──────────────────────────────────────────────────────────────────

func TestRecipeRepo_LinesKeepOrder(t *testing.T) {
	db := testutil.NewDB(t)
	ingRepo := NewIngredientRepository(db)
	repo := NewRecipeRepository(db)
	ctx := context.Background()

	a := seedIngredient(t, ingRepo, "Schnitzel", "meat", "20")
	b := seedIngredient(t, ingRepo, "Fries", "produce", "50")

	rec := &model.Recipe{Name: "Schnitzel Meal", Category: "main", SellingPrice: dec("14.90"), ServingSize: 1, IsActive: true}
	l1 := model.SnapshotLine(a, dec("1"))
	l1.Position = 0
	l2 := model.SnapshotLine(b, dec("0.25"))
	l2.Position = 1
	rec.Lines = []model.RecipeLine{l1, l2}
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "Schnitzel", got.Lines[0].IngredientName)
	assert.Equal(t, "Fries", got.Lines[1].IngredientName)
	assert.True(t, got.TotalCost().Equal(dec("1.875")))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		for _, find := range []func(*gorm.DB, uuid.UUID) (*model.Recipe, error){repo.FindByIDForUpdateTx, repo.FindByIDForShareTx} {
			locked, err := find(tx, rec.ID)
			if err != nil {
				return err
			}
			assert.Len(t, locked.Lines, 2)
		}
		return nil
	}))

	// swap and drop one line
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.ReplaceLinesTx(tx, rec.ID, []model.RecipeLine{got.Lines[1]})
	}))
	got, err = repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "Fries", got.Lines[0].IngredientName)
	assert.Equal(t, 0, got.Lines[0].Position)

	require.NoError(t, repo.Delete(ctx, rec.ID))
	_, err = repo.FindByID(ctx, rec.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var orphans int64
	require.NoError(t, db.Model(&model.RecipeLine{}).Where("recipe_id = ?", rec.ID).Count(&orphans).Error)
	assert.Zero(t, orphans)
}

func TestRecipeRepo_UpdateMetadataLeavesLines(t *testing.T) {
	db := testutil.NewDB(t)
	ingRepo := NewIngredientRepository(db)
	repo := NewRecipeRepository(db)
	ctx := context.Background()

	a := seedIngredient(t, ingRepo, "Schnitzel", "meat", "20")
	rec := &model.Recipe{Name: "Schnitzel Meal", Category: "main", SellingPrice: dec("14.90"), ServingSize: 1, IsActive: true}
	rec.Lines = []model.RecipeLine{model.SnapshotLine(a, dec("1"))}
	require.NoError(t, repo.Create(ctx, rec))

	rec.Lines = nil
	rec.SellingPrice = dec("15.50")
	rec.IsActive = false
	require.NoError(t, repo.UpdateMetadata(ctx, rec))

	got, err := repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.SellingPrice.Equal(dec("15.50")))
	assert.False(t, got.IsActive)
	assert.Len(t, got.Lines, 1)
}

// ── Sales ────────────────────────────────────────────────────────────────────

func newSale(recipeID uuid.UUID, name string, qty int, price string, at time.Time) *model.Sale {
	return &model.Sale{
		TransactionID: "TX-" + at.Format("150405"),
		RecipeID:      recipeID,
		RecipeName:    name,
		QuantitySold:  qty,
		SalePrice:     dec(price),
		POSSystem:     "manual",
		SoldAt:        at,
		Deductions: []model.SaleDeduction{
			{Position: 0, IngredientID: uuid.New(), IngredientName: "Schnitzel", Quantity: decimal.NewFromInt(int64(qty)), Unit: "pieces"},
			{Position: 1, IngredientID: uuid.New(), IngredientName: "Fries", Quantity: dec("0.5"), Unit: "kg"},
		},
	}
}

func TestSaleRepo_CreateAndQuery(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSaleRepository(db)
	ctx := context.Background()
	recipeA, recipeB := uuid.New(), uuid.New()
	day := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	sales := []*model.Sale{
		newSale(recipeA, "Schnitzel Meal", 3, "44.70", day.Add(9*time.Hour)),
		newSale(recipeB, "Goulash", 1, "11.00", day.Add(13*time.Hour)),
		newSale(recipeA, "Schnitzel Meal", 2, "29.80", day.Add(20*time.Hour)),
		newSale(recipeA, "Schnitzel Meal", 1, "14.90", day.Add(30*time.Hour)), // next day
	}
	for _, s := range sales {
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error { return repo.CreateTx(tx, s) }))
	}

	got, err := repo.FindByID(ctx, sales[0].ID)
	require.NoError(t, err)
	require.Len(t, got.Deductions, 2)
	assert.Equal(t, "Schnitzel", got.Deductions[0].IngredientName)
	assert.True(t, got.Deductions[0].Quantity.Equal(dec("3")))

	inDay, err := repo.Between(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, inDay, 3)
	assert.Equal(t, sales[0].ID, inDay[0].ID)

	totals := Totals(inDay)
	assert.Equal(t, int64(3), totals.Orders)
	assert.Equal(t, int64(6), totals.Items)
	assert.True(t, totals.Revenue.Equal(dec("85.50")))
	require.Len(t, totals.ByRecipe, 2)
	assert.Equal(t, int64(2), totals.ByRecipe[0].Orders)
	assert.True(t, totals.ByRecipe[0].Revenue.Equal(dec("74.50")))

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, sales[3].ID, recent[0].ID)
	assert.Equal(t, sales[2].ID, recent[1].ID)

	n, err := repo.CountByRecipe(ctx, recipeA)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		n, err = repo.CountByRecipeTx(tx, recipeA)
		return err
	}))
	assert.Equal(t, int64(3), n)

	from, to := day, day.AddDate(0, 0, 1)
	list, total, err := repo.List(ctx, SaleFilter{From: &from, To: &to, RecipeID: &recipeA, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, sales[2].ID, list[0].ID)
}

// ── Movements & cost history ────────────────────────────────────────────────

func TestStockMovementRepo_ListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	ingRepo := NewIngredientRepository(db)
	repo := NewStockMovementRepository(db)
	ing := seedIngredient(t, ingRepo, "Schnitzel", "meat", "20")

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		m1 := model.NewMovement(ing, model.MovementSale, dec("20"), dec("17"), "sale")
		m2 := model.NewMovement(ing, model.MovementRestock, dec("17"), dec("27"), "delivery")
		if err := repo.CreateTx(tx, &m1); err != nil {
			return err
		}
		return repo.CreateTx(tx, &m2)
	}))

	list, total, err := repo.List(context.Background(), StockMovementFilter{IngredientID: &ing.ID, Type: model.MovementSale})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.True(t, list[0].Quantity.Equal(dec("-3")))
}

func TestCostHistoryRepo_NewestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCostHistoryRepository(db)
	id := uuid.New()

	first := model.NewCostHistory(id, dec("2"), dec("2.5"), "manual")
	first.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := model.NewCostHistory(id, dec("2.5"), dec("2"), "bulk_update")
	second.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateTx(tx, &first); err != nil {
			return err
		}
		return repo.CreateTx(tx, &second)
	}))

	list, err := repo.ListByIngredient(context.Background(), id, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "bulk_update", list[0].Reason)
	assert.True(t, first.ChangePercent.Equal(dec("25")))
	assert.True(t, list[0].ChangePercent.Equal(dec("-20")))
}

func TestIngredientRepo_LevelFilterMatchesClassify(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewIngredientRepository(db)
	ctx := context.Background()

	stocks := []string{"0", "3", "5", "8", "10", "50", "100", "150"}
	for i, s := range stocks {
		seedIngredient(t, repo, fmt.Sprintf("item-%d", i), "misc", s)
	}
	all, err := repo.ListAll(ctx)
	require.NoError(t, err)

	for _, lvl := range stocklevel.Levels {
		want := 0
		for _, ing := range all {
			if ing.Level() == lvl {
				want++
			}
		}
		list, total, err := repo.List(ctx, dto.IngredientFilter{Level: string(lvl), Page: 1, Limit: 50})
		require.NoError(t, err)
		assert.Equal(t, int64(want), total, "level %s", lvl)
		for _, ing := range list {
			assert.Equal(t, lvl, ing.Level())
		}
	}
}
