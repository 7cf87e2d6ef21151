package worker

// alert_cron.go
// Background goroutine that periodically re-classifies every ingredient and
// enqueues stock alerts for those at critical or out of stock. A Redis
// SET NX key per ingredient and level keeps one alert per condition per
// DedupeTTL. Ticks are skipped while the mail circuit breaker is open.

import (
	"context"
	"time"

	"recipestock/internal/dto"
	"recipestock/internal/infra"
	"recipestock/internal/stocklevel"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const defaultDedupeTTL = 12 * time.Hour

type alertEnqueuer interface {
	EnqueueStockAlert(ctx context.Context, alert dto.StockAlert) error
}

// AlertCronConfig holds all dependencies for the scan goroutine.
type AlertCronConfig struct {
	Inventory alertLister
	Alerts    alertEnqueuer
	RDB       *redis.Client
	CB        *infra.CircuitBreaker
	Interval  time.Duration
	DedupeTTL time.Duration
}

type alertCron struct {
	inventory alertLister
	alerts    alertEnqueuer
	cb        *infra.CircuitBreaker
	// claim reports whether this scan is the first to see key.
	claim func(ctx context.Context, key string) (bool, error)
}

func newAlertCron(cfg AlertCronConfig) *alertCron {
	ttl := cfg.DedupeTTL
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	rdb := cfg.RDB
	return &alertCron{
		inventory: cfg.Inventory,
		alerts:    cfg.Alerts,
		cb:        cfg.CB,
		claim: func(ctx context.Context, key string) (bool, error) {
			return rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
		},
	}
}

// StartAlertCron launches the scan loop; it stops when ctx is cancelled.
func StartAlertCron(ctx context.Context, cfg AlertCronConfig) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	c := newAlertCron(cfg)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("alert_cron: started")
		c.scan(ctx)
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("alert_cron: shutting down")
				return
			case <-ticker.C:
				c.scan(ctx)
			}
		}
	}()
}

func dedupeKey(a dto.StockAlert) string {
	return "stock_alert:" + a.IngredientID.String() + ":" + string(a.Status.Level)
}

// scan returns how many alerts it enqueued.
func (c *alertCron) scan(ctx context.Context) int {
	if c.cb != nil && c.cb.State() == infra.CBOpen {
		log.Debug().Msg("alert_cron: mail circuit breaker is open, skipping tick")
		return 0
	}
	alerts, err := c.inventory.Alerts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("alert_cron: failed to list alerts")
		return 0
	}

	sent := 0
	for _, a := range alerts {
		if !stocklevel.NeedsAlert(a.Status.Level) {
			continue
		}
		first, err := c.claim(ctx, dedupeKey(a))
		if err != nil {
			log.Error().Err(err).Str("ingredient", a.Name).Msg("alert_cron: dedupe check failed")
			continue
		}
		if !first {
			continue
		}
		if err := c.alerts.EnqueueStockAlert(ctx, a); err != nil {
			log.Error().Err(err).Str("ingredient", a.Name).Msg("alert_cron: enqueue failed")
			continue
		}
		sent++
	}
	if sent > 0 {
		log.Info().Int("enqueued", sent).Msg("alert_cron: stock alerts enqueued")
	}
	return sent
}
