package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recipestock/internal/config"
	"recipestock/internal/dto"
	"recipestock/internal/router"
	"recipestock/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cfg := &config.Config{Env: "test", CORSAllowedOrigins: []string{"*"}}
	return router.New(ctx, cfg, testutil.NewDB(t), nil, nil)
}

func call(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func seedMeal(t *testing.T, api http.Handler) (schnitzel, fries, meal string) {
	t.Helper()
	w := call(t, api, http.MethodPost, "/v1/ingredients", gin.H{
		"name": "Schnitzel", "category": "meat", "supplier": "Metro", "unit": "pieces",
		"cost_per_unit": 2.4, "current_stock": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	schnitzel = decode[dto.IngredientResponse](t, w).ID.String()

	w = call(t, api, http.MethodPost, "/v1/ingredients", gin.H{
		"name": "Fries", "category": "produce", "supplier": "Metro", "unit": "kg",
		"cost_per_unit": 1.1, "current_stock": 0.5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	fries = decode[dto.IngredientResponse](t, w).ID.String()

	w = call(t, api, http.MethodPost, "/v1/recipes", gin.H{
		"name": "Schnitzel Meal", "category": "main", "selling_price": 14.9,
		"lines": []gin.H{
			{"ingredient_id": schnitzel, "quantity_needed": 1},
			{"ingredient_id": fries, "quantity_needed": 0.25},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	meal = decode[dto.RecipeResponse](t, w).ID.String()
	return
}

func TestSales_ProcessAndReject(t *testing.T) {
	api := newAPI(t)
	schnitzel, _, meal := seedMeal(t, api)

	w := call(t, api, http.MethodPost, "/v1/sales", gin.H{"recipe_id": meal, "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sale := decode[dto.SaleResponse](t, w)
	assert.True(t, sale.SalePrice.Equal(decimal.RequireFromString("29.8")))
	require.Len(t, sale.Deductions, 2)

	w = call(t, api, http.MethodGet, "/v1/ingredients/"+schnitzel, nil)
	assert.True(t, decode[dto.IngredientResponse](t, w).CurrentStock.Equal(decimal.NewFromInt(1)))

	// 1 schnitzel and 0 fries left: both lines fall short.
	w = call(t, api, http.MethodPost, "/v1/sales", gin.H{"recipe_id": meal, "quantity": 2})
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode[struct {
		Detail     string `json:"detail"`
		Shortfalls []struct {
			IngredientName string `json:"ingredient_name"`
			Reason         string `json:"reason"`
		} `json:"shortfalls"`
	}](t, w)
	require.Len(t, body.Shortfalls, 2)
	assert.Equal(t, "Schnitzel", body.Shortfalls[0].IngredientName)
	assert.Equal(t, "insufficient", body.Shortfalls[1].Reason)

	w = call(t, api, http.MethodPost, "/v1/sales", gin.H{"recipe_id": meal, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, api, http.MethodPost, "/v1/sales", gin.H{"recipe_id": "5b0a3a36-8a35-4a8e-9f0d-3c1a2b4c5d6e", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(t, api, http.MethodGet, "/v1/sales/"+sale.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = call(t, api, http.MethodGet, "/v1/sales/recent?limit=5", nil)
	assert.Len(t, decode[[]dto.SaleResponse](t, w), 1)
}

func TestIngredients_ValidationEnvelope(t *testing.T) {
	api := newAPI(t)

	w := call(t, api, http.MethodPost, "/v1/ingredients", gin.H{"name": "Salt"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, w)
	assert.Equal(t, map[string]string{"category": "required", "supplier": "required"}, body.Fields)

	w = call(t, api, http.MethodGet, "/v1/ingredients/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, api, http.MethodPost, "/v1/ingredients", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, api, http.MethodGet, "/v1/ingredients?level=dire", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecipes_LockedAfterSaleAndCostAnalysis(t *testing.T) {
	api := newAPI(t)
	schnitzel, _, meal := seedMeal(t, api)

	w := call(t, api, http.MethodGet, "/v1/recipes/"+meal+"/cost-analysis", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "miss", w.Header().Get("X-Cache"))
	analysis := decode[dto.RecipeCostAnalysis](t, w)
	assert.True(t, analysis.IngredientCost.Equal(decimal.RequireFromString("2.675")))
	assert.Equal(t, "high", analysis.Profitability)

	w = call(t, api, http.MethodPost, "/v1/sales", gin.H{"recipe_id": meal, "quantity": 1})
	require.Equal(t, http.StatusCreated, w.Code)

	w = call(t, api, http.MethodPost, "/v1/recipes/"+meal+"/lines", gin.H{"ingredient_id": schnitzel, "quantity_needed": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = call(t, api, http.MethodDelete, "/v1/recipes/"+meal+"/lines/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, api, http.MethodPatch, "/v1/recipes/"+meal, gin.H{"selling_price": 15.5})
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(t, api, http.MethodGet, "/v1/recipes/"+meal+"/availability", nil)
	require.Equal(t, http.StatusOK, w.Code)
	av := decode[dto.RecipeAvailability](t, w)
	assert.Equal(t, int64(1), av.MaxServings, "fries: floor(0.25 / 0.25)")
}

func TestInventory_Endpoints(t *testing.T) {
	api := newAPI(t)
	schnitzel, fries, _ := seedMeal(t, api)

	w := call(t, api, http.MethodGet, "/v1/inventory/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]dto.StockAlert](t, w), 2)

	w = call(t, api, http.MethodPost, "/v1/inventory/stocktake", gin.H{"counts": []gin.H{
		{"ingredient_id": schnitzel, "actual_quantity": 20},
		{"ingredient_id": fries, "actual_quantity": 10},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2, decode[dto.StocktakeResponse](t, w).Adjusted)

	w = call(t, api, http.MethodPost, "/v1/inventory/stocktake", gin.H{"counts": []gin.H{}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = call(t, api, http.MethodPost, "/v1/inventory/bulk-update", gin.H{"items": []gin.H{
		{"ingredient_id": fries, "cost_per_unit": 1.3},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, api, http.MethodGet, "/v1/ingredients/"+fries+"/cost-history", nil)
	assert.Len(t, decode[[]dto.CostHistoryResponse](t, w), 1)

	w = call(t, api, http.MethodGet, "/v1/inventory/movements?type=stocktake", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), decode[dto.MovementListResponse](t, w).Total)

	w = call(t, api, http.MethodGet, "/v1/inventory/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = call(t, api, http.MethodGet, "/v1/inventory/expiring?days=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDailyReport(t *testing.T) {
	api := newAPI(t)
	_, _, meal := seedMeal(t, api)
	require.Equal(t, http.StatusCreated, call(t, api, http.MethodPost, "/v1/sales", gin.H{"recipe_id": meal, "quantity": 1}).Code)

	w := call(t, api, http.MethodGet, "/v1/sales/daily-summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[dto.DailySummary](t, w).OrderCount)

	w = call(t, api, http.MethodGet, "/v1/sales/daily-report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = call(t, api, http.MethodGet, "/v1/sales/daily-summary?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// No Redis in this setup, so there is no queue to hand the job to.
	w = call(t, api, http.MethodPost, "/v1/sales/daily-report/email", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSalesReportAndTrends(t *testing.T) {
	api := newAPI(t)
	_, _, meal := seedMeal(t, api)
	require.Equal(t, http.StatusCreated, call(t, api, http.MethodPost, "/v1/sales", gin.H{"recipe_id": meal, "quantity": 1}).Code)
	today := time.Now().Format("2006-01-02")

	w := call(t, api, http.MethodGet, "/v1/sales/report?start_date="+today+"&end_date="+today, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[dto.PeriodReport](t, w)
	assert.Equal(t, int64(1), report.OrderCount)
	require.Len(t, report.Days, 1)
	assert.Equal(t, today, report.Days[0].Date)
	require.Len(t, report.TopRecipes, 1)
	assert.Equal(t, "Schnitzel Meal", report.TopRecipes[0].RecipeName)

	w = call(t, api, http.MethodGet, "/v1/sales/report?start_date="+today, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = call(t, api, http.MethodGet, "/v1/sales/report?start_date=2026-05-10&end_date=2026-05-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, api, http.MethodGet, "/v1/sales/trends?period=7d", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	trend := decode[dto.RevenueTrend](t, w)
	require.Len(t, trend.Points, 8)
	last := trend.Points[len(trend.Points)-1]
	assert.Equal(t, today, last.Date)
	assert.Equal(t, int64(1), last.Orders)
	assert.True(t, trend.Points[0].Revenue.IsZero())

	w = call(t, api, http.MethodGet, "/v1/sales/trends?period=fortnight", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransfer_ExportImport(t *testing.T) {
	src := newAPI(t)
	_, _, meal := seedMeal(t, src)
	require.Equal(t, http.StatusCreated, call(t, src, http.MethodPost, "/v1/sales", gin.H{"recipe_id": meal, "quantity": 1}).Code)

	w := call(t, src, http.MethodGet, "/v1/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))

	// Importing into the source database upserts and skips the known sale.
	w = call(t, src, http.MethodPost, "/v1/import", doc)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[dto.ImportResult](t, w)
	assert.Equal(t, 2, res.Ingredients)
	assert.Equal(t, 1, res.SkippedSales)

	doc["recipes"].(map[string]any)["version"] = "9"
	w = call(t, src, http.MethodPost, "/v1/import", doc)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCategories_DuplicateConflict(t *testing.T) {
	api := newAPI(t)
	require.Equal(t, http.StatusCreated, call(t, api, http.MethodPost, "/v1/categories", gin.H{"name": "produce"}).Code)
	w := call(t, api, http.MethodPost, "/v1/categories", gin.H{"name": "produce"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = call(t, api, http.MethodPost, "/v1/categories", gin.H{"name": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHealth_WithoutRedis(t *testing.T) {
	api := newAPI(t)
	w := call(t, api, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"db":"connected","redis":"disabled"}`, w.Body.String())
}
