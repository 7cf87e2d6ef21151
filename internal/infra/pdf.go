package infra

// pdf.go renders the end-of-day report with go-pdf/fpdf:
//   - Header with the business day and generation time
//   - Totals (orders, items sold, revenue)
//   - Per-recipe table
//   - Ingredients currently at or below their low threshold
//
// SaveDailyReportPDF writes it to storagePath/daily_report_<date>.pdf so the
// mail worker can attach it.

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"recipestock/internal/dto"

	"github.com/go-pdf/fpdf"
)

// DailyReport is everything the PDF shows.
type DailyReport struct {
	Summary     *dto.DailySummary
	Alerts      []dto.StockAlert
	GeneratedAt time.Time
}

// WriteDailyReportPDF renders the report to w.
func WriteDailyReportPDF(w io.Writer, r DailyReport) error {
	if r.Summary == nil {
		return fmt.Errorf("pdf: no summary")
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "Daily sales report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Business day "+r.Summary.Date, "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, "Generated "+r.GeneratedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	totals := [][2]string{
		{"Orders", fmt.Sprintf("%d", r.Summary.OrderCount)},
		{"Items sold", fmt.Sprintf("%d", r.Summary.ItemsSold)},
		{"Revenue", r.Summary.Revenue.StringFixed(2)},
	}
	for _, t := range totals {
		pdf.CellFormat(contentW*0.4, 6, t[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.6, 6, t[1], "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// ── Per recipe ───────────────────────────────────────────────────────────
	col1 := contentW * 0.52
	col2 := contentW * 0.16
	col3 := contentW * 0.16
	col4 := contentW * 0.16

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "Recipe", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Orders", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col3, 6, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "Revenue", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	if len(r.Summary.ByRecipe) == 0 {
		pdf.CellFormat(contentW, 6, "No sales recorded.", "", 1, "L", false, 0, "")
	}
	for _, rs := range r.Summary.ByRecipe {
		pdf.CellFormat(col1, 5, truncate(rs.RecipeName, 48), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("%d", rs.Orders), "", 0, "R", false, 0, "")
		pdf.CellFormat(col3, 5, fmt.Sprintf("%d", rs.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 5, rs.Revenue.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	// ── Stock alerts ─────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 7, "Stock alerts", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if len(r.Alerts) == 0 {
		pdf.CellFormat(contentW, 6, "All ingredients above their low threshold.", "", 1, "L", false, 0, "")
	}
	for _, a := range r.Alerts {
		line := fmt.Sprintf("%s: %s %s (min %s) - %s",
			a.Name, a.CurrentStock.String(), a.Unit, a.MinStockLevel.String(), a.Status.Message)
		pdf.CellFormat(contentW, 5, truncate(line, 95), "", 1, "L", false, 0, "")
	}

	return pdf.Output(w)
}

// SaveDailyReportPDF writes the report under storagePath and returns the file path.
func SaveDailyReportPDF(r DailyReport, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	if r.Summary == nil {
		return "", fmt.Errorf("pdf: no summary")
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("daily_report_%s.pdf", r.Summary.Date))
	f, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("pdf: create file: %w", err)
	}
	if err := WriteDailyReportPDF(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("pdf: render: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("pdf: close file: %w", err)
	}
	return filePath, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "."
}
