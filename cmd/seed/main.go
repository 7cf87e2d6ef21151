// cmd/seed loads a small demo kitchen: a few ingredients and two recipes.
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"os"
	"time"

	"recipestock/internal/config"
	"recipestock/internal/dto"
	"recipestock/internal/infra"
	"recipestock/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type ingredientSeed struct {
	name, category, unit string
	cost, stock, min     string
	expiresInDays        int
}

var ingredients = []ingredientSeed{
	{"Schnitzel", "meat", "pieces", "2.40", "40", "10", 4},
	{"Fries", "produce", "kg", "1.10", "12", "3", 30},
	{"Lemon", "produce", "pieces", "0.25", "30", "10", 14},
	{"Cranberry Sauce", "pantry", "kg", "6.80", "2", "0.5", 90},
	{"Flour", "pantry", "kg", "0.90", "25", "5", 180},
	{"Egg", "dairy", "pieces", "0.30", "60", "24", 21},
	{"Breadcrumbs", "pantry", "kg", "2.10", "6", "2", 120},
}

type lineSeed struct {
	ingredient, qty string
}

var recipes = []struct {
	name, category, price string
	prep                  int
	lines                 []lineSeed
}{
	{"Schnitzel", "main", "11.90", 15, []lineSeed{
		{"Schnitzel", "1"}, {"Flour", "0.05"}, {"Egg", "1"}, {"Breadcrumbs", "0.08"},
	}},
	{"Schnitzel Meal", "main", "14.90", 20, []lineSeed{
		{"Schnitzel", "1"}, {"Fries", "0.25"}, {"Lemon", "1"}, {"Cranberry Sauce", "0.03"},
	}},
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	svc := service.NewServices(db, nil)
	ctx := context.Background()

	existing, err := svc.Recipes.List(ctx, dto.RecipeFilter{Name: "Schnitzel Meal", Page: 1, Limit: 1})
	if err != nil {
		log.Fatal().Err(err).Msg("list recipes")
	}
	if existing.Total > 0 {
		log.Info().Msg("demo data already present, nothing to do")
		return
	}

	for _, name := range []string{"meat", "produce", "pantry", "dairy"} {
		if _, err := svc.Categories.Create(ctx, dto.CreateCategoryRequest{Name: name}); err != nil {
			log.Warn().Err(err).Str("category", name).Msg("category skipped")
		}
	}

	ids := make(map[string]uuid.UUID, len(ingredients))
	for _, s := range ingredients {
		minLevel := decimal.RequireFromString(s.min)
		expiry := time.Now().UTC().AddDate(0, 0, s.expiresInDays)
		ing, err := svc.Ingredients.Add(ctx, dto.CreateIngredientRequest{
			Name:          s.name,
			Category:      s.category,
			Supplier:      "Metro",
			Unit:          s.unit,
			CostPerUnit:   decimal.RequireFromString(s.cost),
			CurrentStock:  decimal.RequireFromString(s.stock),
			MinStockLevel: &minLevel,
			ExpiryDate:    &expiry,
		})
		if err != nil {
			log.Fatal().Err(err).Str("ingredient", s.name).Msg("add ingredient")
		}
		ids[s.name] = ing.ID
	}

	for _, r := range recipes {
		req := dto.CreateRecipeRequest{
			Name:            r.name,
			Category:        r.category,
			SellingPrice:    decimal.RequireFromString(r.price),
			PreparationTime: r.prep,
			ServingSize:     1,
		}
		for _, l := range r.lines {
			req.Lines = append(req.Lines, dto.RecipeLineInput{
				IngredientID:   ids[l.ingredient],
				QuantityNeeded: decimal.RequireFromString(l.qty),
			})
		}
		rec, err := svc.Recipes.Create(ctx, req)
		if err != nil {
			log.Fatal().Err(err).Str("recipe", r.name).Msg("add recipe")
		}
		log.Info().Str("recipe", rec.Name).Str("cost", rec.TotalCost.StringFixed(2)).Msg("seeded")
	}
	log.Info().Int("ingredients", len(ids)).Int("recipes", len(recipes)).Msg("demo data loaded")
}
