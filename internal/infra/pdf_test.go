package infra

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"recipestock/internal/config"
	"recipestock/internal/dto"
	"recipestock/internal/stocklevel"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() DailyReport {
	return DailyReport{
		GeneratedAt: time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC),
		Summary: &dto.DailySummary{
			Date:       "2026-03-10",
			OrderCount: 3,
			ItemsSold:  5,
			Revenue:    decimal.RequireFromString("74.50"),
			ByRecipe: []dto.RecipeSalesSummary{{
				RecipeID: uuid.New(), RecipeName: "Schnitzel Meal", Orders: 3, Quantity: 5,
				Revenue: decimal.RequireFromString("74.50"),
			}},
		},
		Alerts: []dto.StockAlert{{
			Name: "Fries", Unit: "kg",
			CurrentStock:  decimal.RequireFromString("1.2"),
			MinStockLevel: decimal.RequireFromString("5"),
			Status:        stocklevel.DescribeLevel(stocklevel.Critical),
		}},
	}
}

func TestWriteDailyReportPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDailyReportPDF(&buf, sampleReport()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	assert.Error(t, WriteDailyReportPDF(&buf, DailyReport{}))
}

func TestSaveDailyReportPDF(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := SaveDailyReportPDF(sampleReport(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "daily_report_2026-03-10.pdf"), path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestMailer_DisabledWithoutHost(t *testing.T) {
	m := NewMailer(&config.Config{}, nil)
	assert.False(t, m.Enabled())
	assert.ErrorIs(t, m.Send(Message{To: []string{"chef@example.com"}}), ErrMailerDisabled)
	assert.Equal(t, CBClosed, m.Breaker().State())
}
