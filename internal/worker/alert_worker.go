package worker

// alert_worker.go processes QueueStockAlert: one email per ingredient that
// dropped to critical or ran out.

import (
	"context"
	"encoding/json"
	"fmt"

	"recipestock/internal/dto"
	"recipestock/internal/infra"

	"github.com/rs/zerolog/log"
)

// Sender is the slice of infra.Mailer the workers use.
type Sender interface {
	Enabled() bool
	Send(msg infra.Message) error
}

type AlertWorker struct {
	mailer Sender
	to     []string
}

func NewAlertWorker(mailer Sender, to []string) *AlertWorker {
	return &AlertWorker{mailer: mailer, to: to}
}

// Process mails the alert. Without a configured relay or recipients the
// alert is only logged.
func (w *AlertWorker) Process(_ context.Context, raw json.RawMessage) error {
	var alert dto.StockAlert
	if err := json.Unmarshal(raw, &alert); err != nil {
		log.Error().Err(err).Msg("alert_worker: invalid payload")
		return nil
	}

	if w.mailer == nil || !w.mailer.Enabled() || len(w.to) == 0 {
		log.Warn().
			Str("ingredient", alert.Name).
			Str("level", string(alert.Status.Level)).
			Str("current_stock", alert.CurrentStock.String()).
			Msg("alert_worker: stock alert (mail disabled)")
		return nil
	}

	msg := infra.Message{
		To:      w.to,
		Subject: fmt.Sprintf("[stock] %s: %s", alert.Name, alert.Status.Message),
		Body: fmt.Sprintf("%s (%s) is at %s %s; minimum is %s %s.\n\n%s",
			alert.Name, alert.Category,
			alert.CurrentStock.String(), alert.Unit,
			alert.MinStockLevel.String(), alert.Unit,
			alert.Status.Message),
	}
	if err := w.mailer.Send(msg); err != nil {
		return fmt.Errorf("alert_worker: send %s: %w", alert.Name, err)
	}
	log.Info().Str("ingredient", alert.Name).Msg("alert_worker: stock alert sent")
	return nil
}
