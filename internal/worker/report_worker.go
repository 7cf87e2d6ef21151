package worker

// report_worker.go processes QueueDailyReport: builds the day's sales
// summary, renders it to PDF and mails it.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"recipestock/internal/dto"
	"recipestock/internal/infra"

	"github.com/rs/zerolog/log"
)

// DailyReportPayload names the business day (YYYY-MM-DD, server local time).
// An empty Date means today.
type DailyReportPayload struct {
	Date string   `json:"date"`
	To   []string `json:"to,omitempty"`
}

type summarizer interface {
	DailySummary(ctx context.Context, now time.Time) (*dto.DailySummary, error)
}

type alertLister interface {
	Alerts(ctx context.Context) ([]dto.StockAlert, error)
}

type ReportWorker struct {
	sales       summarizer
	inventory   alertLister
	mailer      Sender
	to          []string
	storagePath string
	now         func() time.Time
}

func NewReportWorker(sales summarizer, inventory alertLister, mailer Sender, to []string, storagePath string) *ReportWorker {
	return &ReportWorker{
		sales:       sales,
		inventory:   inventory,
		mailer:      mailer,
		to:          to,
		storagePath: storagePath,
		now:         time.Now,
	}
}

// Process renders the report to storagePath and mails it when a relay and
// recipients are available. Rendering failures are retried; an invalid date
// is not.
func (w *ReportWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var p DailyReportPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error().Err(err).Msg("report_worker: invalid payload")
		return nil
	}
	day := w.now()
	if p.Date != "" {
		d, err := time.ParseInLocation("2006-01-02", p.Date, time.Local)
		if err != nil {
			log.Error().Str("date", p.Date).Msg("report_worker: invalid date")
			return nil
		}
		day = d.Add(12 * time.Hour)
	}

	report, err := BuildDailyReport(ctx, w.sales, w.inventory, day, w.now())
	if err != nil {
		return err
	}
	path, err := infra.SaveDailyReportPDF(report, w.storagePath)
	if err != nil {
		return err
	}

	to := p.To
	if len(to) == 0 {
		to = w.to
	}
	if w.mailer == nil || !w.mailer.Enabled() || len(to) == 0 {
		log.Info().Str("path", path).Msg("report_worker: report saved (mail disabled)")
		return nil
	}
	err = w.mailer.Send(infra.Message{
		To:         to,
		Subject:    "Daily sales report " + report.Summary.Date,
		Body:       fmt.Sprintf("%d orders, %d items, revenue %s.", report.Summary.OrderCount, report.Summary.ItemsSold, report.Summary.Revenue.StringFixed(2)),
		Attachment: path,
	})
	if err != nil {
		return fmt.Errorf("report_worker: send: %w", err)
	}
	log.Info().Str("date", report.Summary.Date).Strs("to", to).Msg("report_worker: daily report sent")
	return nil
}

// BuildDailyReport gathers the data the PDF needs for the business day
// containing day.
func BuildDailyReport(ctx context.Context, sales summarizer, inventory alertLister, day, generatedAt time.Time) (infra.DailyReport, error) {
	summary, err := sales.DailySummary(ctx, day)
	if err != nil {
		return infra.DailyReport{}, fmt.Errorf("daily summary: %w", err)
	}
	alerts, err := inventory.Alerts(ctx)
	if err != nil {
		return infra.DailyReport{}, fmt.Errorf("stock alerts: %w", err)
	}
	return infra.DailyReport{Summary: summary, Alerts: alerts, GeneratedAt: generatedAt}, nil
}
