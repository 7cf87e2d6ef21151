package service

import (
	"context"
	"errors"
	"testing"

	"recipestock/internal/dto"
	"recipestock/internal/model"
	"recipestock/internal/repository"
	"recipestock/internal/stocklevel"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddIngredient_DefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ing, err := f.ingredients.Add(ctx, dto.CreateIngredientRequest{
		Name:         "  Schnitzel ",
		Category:     "meat",
		Supplier:     "Metro",
		CostPerUnit:  dec("2.40"),
		CurrentStock: dec("20"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, ing.ID)
	assert.Equal(t, "Schnitzel", ing.Name)
	assert.Equal(t, "units", ing.Unit)
	assert.True(t, ing.MinStockLevel.Equal(dec("5")))
	assert.True(t, ing.MaxStockLevel.Equal(dec("100")))
	assert.False(t, ing.CreatedAt.IsZero())
	assert.Equal(t, stocklevel.Good, ing.StockLevel.Level)

	_, err = f.ingredients.Add(ctx, dto.CreateIngredientRequest{Name: "Salt"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Equal(t, map[string]string{"category": "required", "supplier": "required"}, ve.Fields)

	_, err = f.ingredients.Add(ctx, dto.CreateIngredientRequest{Name: "Salt", Category: "dry", Supplier: "Metro", CurrentStock: dec("-1")})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestAddIngredient_ExplicitZeroThresholdsKept(t *testing.T) {
	f := newFixture(t)
	zero := dec("0")
	ing, err := f.ingredients.Add(context.Background(), dto.CreateIngredientRequest{
		Name: "Water", Category: "drinks", Supplier: "tap",
		CurrentStock: dec("3"), MinStockLevel: &zero, MaxStockLevel: decPtr("10"),
	})
	require.NoError(t, err)
	assert.True(t, ing.MinStockLevel.IsZero())
	assert.Equal(t, stocklevel.Good, ing.StockLevel.Level)
}

func TestUpdateIngredient_RecordsMovementAndCostHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.ingredient(t, "Schnitzel", "20")

	name := "Pork Schnitzel"
	updated, err := f.ingredients.Update(ctx, id, dto.UpdateIngredientRequest{
		Name:         &name,
		CurrentStock: decPtr("4"),
		CostPerUnit:  decPtr("2.50"),
		Reason:       "recount",
	})
	require.NoError(t, err)
	assert.Equal(t, "Pork Schnitzel", updated.Name)
	assert.True(t, updated.CurrentStock.Equal(dec("4")))
	assert.Equal(t, stocklevel.Critical, updated.StockLevel.Level)

	moves, _, err := f.moveRepo.List(ctx, repository.StockMovementFilter{IngredientID: &id})
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, model.MovementAdjustment, moves[0].Type)
	assert.True(t, moves[0].Quantity.Equal(dec("-16")))
	assert.Equal(t, "recount", moves[0].Reason)

	history, err := f.ingredients.CostHistory(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].ChangePercent.Equal(dec("25")))
	assert.Equal(t, "manual", history[0].Reason)

	empty := " "
	_, err = f.ingredients.Update(ctx, id, dto.UpdateIngredientRequest{Supplier: &empty})
	assert.ErrorIs(t, err, ErrMissingField)
	_, err = f.ingredients.Update(ctx, uuid.New(), dto.UpdateIngredientRequest{Name: &name})
	assert.ErrorIs(t, err, ErrIngredientNotFound)
}

func TestRestock_AddsStockAndStampsTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.ingredient(t, "Schnitzel", "3")

	ing, err := f.ingredients.Restock(ctx, id, dto.RestockRequest{Quantity: dec("12.5"), Note: "Tuesday delivery"})
	require.NoError(t, err)
	assert.True(t, ing.CurrentStock.Equal(dec("15.5")))
	require.NotNil(t, ing.LastRestockedAt)

	moves, _, err := f.moveRepo.List(ctx, repository.StockMovementFilter{IngredientID: &id, Type: model.MovementRestock})
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.True(t, moves[0].Quantity.Equal(dec("12.5")))

	_, err = f.ingredients.Restock(ctx, id, dto.RestockRequest{Quantity: dec("0")})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestListIngredients_LevelFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ingredient(t, "Schnitzel", "0")
	f.ingredient(t, "Fries", "4")
	f.ingredient(t, "Lemon", "60")

	list, err := f.ingredients.List(ctx, dto.IngredientFilter{Level: string(stocklevel.Critical)})
	require.NoError(t, err)
	require.Equal(t, int64(1), list.Total)
	assert.Equal(t, "Fries", list.Data[0].Name)

	all, err := f.ingredients.List(ctx, dto.IngredientFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Equal(t, 1, all.TotalPages)

	_, err = f.ingredients.List(ctx, dto.IngredientFilter{Level: "dire"})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestCategories_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	meat, err := f.categories.Create(ctx, dto.CreateCategoryRequest{Name: "kitchen"})
	require.NoError(t, err)
	assert.Equal(t, "#4ECDC4", meat.Color)

	_, err = f.categories.Create(ctx, dto.CreateCategoryRequest{Name: "kitchen"})
	assert.ErrorIs(t, err, ErrDuplicateCategory)

	f.ingredient(t, "Schnitzel", "20") // category "kitchen"
	list, err := f.categories.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].IngredientCount)

	err = f.categories.Delete(ctx, meat.ID)
	assert.ErrorIs(t, err, ErrInvalidValue, "category in use")

	color := "#FF0000"
	name := "pantry"
	updated, err := f.categories.Update(ctx, meat.ID, dto.UpdateCategoryRequest{Name: &name, Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "pantry", updated.Name)
	assert.Zero(t, updated.IngredientCount)
	require.NoError(t, f.categories.Delete(ctx, meat.ID))
	assert.ErrorIs(t, f.categories.Delete(ctx, meat.ID), ErrCategoryNotFound)
}
