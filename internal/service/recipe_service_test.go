package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"recipestock/internal/dto"
	"recipestock/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRecipe_SnapshotsLineCosts(t *testing.T) {
	f := newFixture(t)
	schnitzel := f.ingredient(t, "Schnitzel", "20") // 2.00 per piece
	fries := f.ingredient(t, "Fries", "20")

	rec, err := f.recipes.Create(context.Background(), dto.CreateRecipeRequest{
		Name:         "Schnitzel Meal",
		Category:     "main",
		SellingPrice: dec("14.90"),
		Lines:        []dto.RecipeLineInput{line(schnitzel, "1"), line(fries, "0.25")},
	})
	require.NoError(t, err)
	assert.True(t, rec.IsActive)
	assert.Equal(t, 1, rec.ServingSize)
	require.Len(t, rec.Lines, 2)
	assert.Equal(t, "Schnitzel", rec.Lines[0].IngredientName)
	assert.Equal(t, "pieces", rec.Lines[0].Unit)
	assert.True(t, rec.Lines[1].Cost.Equal(dec("0.5")))
	assert.True(t, rec.TotalCost.Equal(dec("2.5")))
	assert.True(t, rec.ProfitMargin.Equal(dec("12.4")))
}

func TestCreateRecipe_Validation(t *testing.T) {
	f := newFixture(t)
	schnitzel := f.ingredient(t, "Schnitzel", "20")
	ctx := context.Background()

	_, err := f.recipes.Create(ctx, dto.CreateRecipeRequest{Lines: []dto.RecipeLineInput{line(schnitzel, "1")}})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, map[string]string{"name": "required", "category": "required"}, ve.Fields)

	_, err = f.recipes.Create(ctx, dto.CreateRecipeRequest{Name: "Air", Category: "main"})
	assert.ErrorIs(t, err, ErrEmptyRecipe)

	_, err = f.recipes.Create(ctx, dto.CreateRecipeRequest{Name: "Bad", Category: "main", Lines: []dto.RecipeLineInput{line(schnitzel, "0")}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.recipes.Create(ctx, dto.CreateRecipeRequest{Name: "Ghost", Category: "main", Lines: []dto.RecipeLineInput{line(uuid.New(), "1")}})
	assert.ErrorIs(t, err, ErrIngredientNotFound)
}

func TestRecipeLines_CostIsNotReResolvedAtSaleTime(t *testing.T) {
	f := newFixture(t)
	schnitzel := f.ingredient(t, "Schnitzel", "20")
	meal := f.recipe(t, "Schnitzel Meal", "14.90", line(schnitzel, "2"))

	_, err := f.ingredients.Update(context.Background(), schnitzel, dto.UpdateIngredientRequest{CostPerUnit: decPtr("3.50")})
	require.NoError(t, err)

	rec, err := f.recipes.Get(context.Background(), meal)
	require.NoError(t, err)
	assert.True(t, rec.TotalCost.Equal(dec("4")), "snapshot stays at 2 × 2.00")

	_, err = f.sell(meal, 1)
	require.NoError(t, err)
	rec, err = f.recipes.Get(context.Background(), meal)
	require.NoError(t, err)
	assert.True(t, rec.TotalCost.Equal(dec("4")))
}

func TestRecipeLines_EditingRecomputesOnlyThatLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	schnitzel := f.ingredient(t, "Schnitzel", "20")
	fries := f.ingredient(t, "Fries", "20")
	meal := f.recipe(t, "Schnitzel Meal", "14.90", line(schnitzel, "1"))

	_, err := f.ingredients.Update(ctx, schnitzel, dto.UpdateIngredientRequest{CostPerUnit: decPtr("4.00")})
	require.NoError(t, err)

	rec, err := f.recipes.AddLine(ctx, meal, line(fries, "0.5"))
	require.NoError(t, err)
	require.Len(t, rec.Lines, 2)
	assert.True(t, rec.Lines[0].Cost.Equal(dec("2")), "existing line keeps its snapshot")
	assert.True(t, rec.Lines[1].Cost.Equal(dec("1")))

	rec, err = f.recipes.UpdateLine(ctx, meal, 0, dto.UpdateRecipeLineRequest{QuantityNeeded: dec("2")})
	require.NoError(t, err)
	assert.True(t, rec.Lines[0].Cost.Equal(dec("8")), "updated line re-snapshots at 4.00")
	assert.True(t, rec.Lines[1].Cost.Equal(dec("1")))

	_, err = f.recipes.UpdateLine(ctx, meal, 5, dto.UpdateRecipeLineRequest{QuantityNeeded: dec("1")})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestRecipeLines_RemovingLastLineLeavesUnsellableDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	schnitzel := f.ingredient(t, "Schnitzel", "20")
	meal := f.recipe(t, "Schnitzel Meal", "14.90", line(schnitzel, "1"))

	rec, err := f.recipes.RemoveLine(ctx, meal, 0)
	require.NoError(t, err)
	assert.Empty(t, rec.Lines)
	assert.True(t, rec.TotalCost.IsZero())

	_, err = f.sell(meal, 1)
	assert.ErrorIs(t, err, ErrEmptyRecipe)
}

func TestRecipeLines_LockedAfterFirstSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	schnitzel := f.ingredient(t, "Schnitzel", "20")
	meal := f.recipe(t, "Schnitzel Meal", "14.90", line(schnitzel, "1"))
	_, err := f.sell(meal, 1)
	require.NoError(t, err)

	_, err = f.recipes.AddLine(ctx, meal, line(schnitzel, "1"))
	assert.ErrorIs(t, err, ErrRecipeLocked)
	_, err = f.recipes.RemoveLine(ctx, meal, 0)
	assert.ErrorIs(t, err, ErrRecipeLocked)
	_, err = f.recipes.Recalculate(ctx, meal)
	assert.ErrorIs(t, err, ErrRecipeLocked)

	price := dec("15.50")
	rec, err := f.recipes.UpdateMetadata(ctx, meal, dto.UpdateRecipeRequest{SellingPrice: &price})
	require.NoError(t, err, "metadata stays editable")
	assert.True(t, rec.SellingPrice.Equal(price))
	assert.Len(t, rec.Lines, 1)
}

// The sold check and the line rewrite share one transaction, so an edit
// either lands before the first sale or is refused.
func TestRecipeLines_EditRacingFirstSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	schnitzel := f.ingredient(t, "Schnitzel", "50")
	fries := f.ingredient(t, "Fries", "50")

	for i := 0; i < 5; i++ {
		meal := f.recipe(t, fmt.Sprintf("Schnitzel Meal %d", i), "14.90", line(schnitzel, "1"))
		var (
			wg      sync.WaitGroup
			sale    *dto.SaleResponse
			saleErr error
			editErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			sale, saleErr = f.sell(meal, 1)
		}()
		go func() {
			defer wg.Done()
			_, editErr = f.recipes.AddLine(ctx, meal, line(fries, "0.5"))
		}()
		wg.Wait()

		require.NoError(t, saleErr)
		rec, err := f.recipes.Get(ctx, meal)
		require.NoError(t, err)
		if editErr == nil {
			assert.Len(t, rec.Lines, 2)
			assert.Len(t, sale.Deductions, 2, "the sale ran against the edited lines")
		} else {
			assert.ErrorIs(t, editErr, ErrRecipeLocked)
			assert.Len(t, rec.Lines, 1)
			assert.Len(t, sale.Deductions, 1)
		}
	}
}

func TestRecalculate_RefreshesFromCurrentPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	schnitzel := f.ingredient(t, "Schnitzel", "20")
	fries := f.ingredient(t, "Fries", "20")
	meal := f.recipe(t, "Schnitzel Meal", "14.90", line(schnitzel, "1"), line(fries, "0.5"))

	_, err := f.ingredients.Update(ctx, schnitzel, dto.UpdateIngredientRequest{CostPerUnit: decPtr("3")})
	require.NoError(t, err)
	require.NoError(t, f.ingredients.Delete(ctx, fries))

	rec, err := f.recipes.Recalculate(ctx, meal)
	require.NoError(t, err)
	assert.True(t, rec.Lines[0].Cost.Equal(dec("3")))
	assert.True(t, rec.Lines[1].Cost.Equal(dec("1")), "deleted ingredient keeps its snapshot")
}

func TestDeleteRecipe_KeepsSaleHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	schnitzel := f.ingredient(t, "Schnitzel", "20")
	meal := f.recipe(t, "Schnitzel Meal", "14.90", line(schnitzel, "1"))
	sale, err := f.sell(meal, 2)
	require.NoError(t, err)

	require.NoError(t, f.recipes.Delete(ctx, meal))
	_, err = f.recipes.Get(ctx, meal)
	assert.ErrorIs(t, err, ErrRecipeNotFound)
	assert.ErrorIs(t, f.recipes.Delete(ctx, meal), ErrRecipeNotFound)

	kept, err := f.sales.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "Schnitzel Meal", kept.RecipeName)
	assert.Len(t, kept.Deductions, 1)
}

func TestAnalyzeCost_Bands(t *testing.T) {
	cases := []struct {
		price string
		cost  string
		band  string
		pct   string
	}{
		{"20", "4", ProfitabilityHigh, "70"},     // total 6
		{"10", "4", ProfitabilityMedium, "40"},   // total 6
		{"7", "4", ProfitabilityLow, "14.29"},    // total 6
		{"0", "4", ProfitabilityLow, "0"},        // free item
		{"15", "5", ProfitabilityMedium, "50"},   // total 7.5
		{"30", "7.5", ProfitabilityHigh, "62.5"}, // total 11.25
	}
	for _, tc := range cases {
		rec := &model.Recipe{
			SellingPrice: dec(tc.price),
			Lines:        []model.RecipeLine{{Cost: dec(tc.cost)}},
		}
		a := AnalyzeCost(rec)
		assert.Equal(t, tc.band, a.Profitability, "price %s cost %s", tc.price, tc.cost)
		assert.True(t, a.MarginPercent.Equal(dec(tc.pct)), "price %s: got %s", tc.price, a.MarginPercent)
		assert.True(t, a.LaborCost.Equal(dec(tc.cost).Mul(dec("0.3"))))
		assert.True(t, a.OverheadCost.Equal(dec(tc.cost).Mul(dec("0.2"))))
	}
}

func TestAvailability_MaxServings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	schnitzel := f.ingredient(t, "Schnitzel", "7")
	fries := f.ingredient(t, "Fries", "2")
	meal := f.recipe(t, "Schnitzel Meal", "14.90", line(schnitzel, "1"), line(fries, "0.3"))

	av, err := f.recipes.Availability(ctx, meal)
	require.NoError(t, err)
	assert.True(t, av.CanMake)
	assert.Equal(t, int64(6), av.MaxServings, "fries limit: floor(2 / 0.3)")
	require.Len(t, av.Lines, 2)
	assert.True(t, av.Lines[1].Sufficient)

	require.NoError(t, f.ingredients.Delete(ctx, fries))
	av, err = f.recipes.Availability(ctx, meal)
	require.NoError(t, err)
	assert.False(t, av.CanMake)
	assert.Zero(t, av.MaxServings)
	assert.True(t, av.Lines[1].Missing)
}
