// Package feejob posts the monthly recurring fee to every customer that has
// one configured. The job is idempotent across restarts: a period marker
// records the last month applied, and the store itself rejects a second fee
// for the same customer and month.
package feejob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/core"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/ledger"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/log"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/storage"
)

// MarkerKey is where the job records the last period it completed.
const MarkerKey = "recurring_fee_last_applied"

type Job struct {
	store      storage.Store
	ledger     *ledger.Service
	billingDay int
	loc        *time.Location
	logger     *log.Logger
}

// Outcome reports what one tick did.
type Outcome struct {
	Applied        int
	AlreadyCharged int
	Skipped        string // non-empty when the tick was a no-op
}

func New(store storage.Store, svc *ledger.Service, billingDay int, loc *time.Location, logger *log.Logger) *Job {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Job{
		store:      store,
		ledger:     svc,
		billingDay: billingDay,
		loc:        loc,
		logger:     logger.WithComponent(log.ComponentFeeJob),
	}
}

// RunOnce applies the current period's fees if due. The marker only advances
// after the whole batch lands; a mid-batch failure leaves it untouched so the
// next tick retries, and the per-customer duplicate guard in the store keeps
// the retry from double-charging customers that already succeeded.
func (j *Job) RunOnce(ctx context.Context, now time.Time) (Outcome, error) {
	local := now.In(j.loc)
	if local.Day() != j.billingDay {
		return Outcome{Skipped: "not billing day"}, nil
	}

	period := core.PeriodKey(now, j.loc)
	lastApplied, err := j.store.GetMarker(ctx, MarkerKey)
	if err != nil {
		return Outcome{}, fmt.Errorf("read period marker: %w", err)
	}
	if lastApplied == period {
		return Outcome{Skipped: "already applied this period"}, nil
	}

	customers, err := j.store.ListCustomersWithFee(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("list customers with fee: %w", err)
	}

	var out Outcome
	for _, c := range customers {
		_, err := j.ledger.PostRecurringFee(ctx, c, period)
		switch {
		case err == nil:
			out.Applied++
		case errors.Is(err, core.ErrDuplicateFee):
			// Left over from a crashed previous run.
			out.AlreadyCharged++
		default:
			j.logger.ErrorContext(ctx, "Fee posting failed",
				log.FieldCustomerID, c.ID,
				log.FieldPeriod, period,
				log.FieldError, err.Error())
			return out, fmt.Errorf("post fee for customer %d: %w", c.ID, err)
		}
	}

	if err := j.store.SetMarker(ctx, MarkerKey, period); err != nil {
		return out, fmt.Errorf("advance period marker: %w", err)
	}

	j.logger.InfoContext(ctx, "Recurring fees applied",
		log.FieldPeriod, period,
		"applied", out.Applied,
		"already_charged", out.AlreadyCharged)
	return out, nil
}

// Run ticks RunOnce on the given interval until ctx is cancelled. Errors are
// logged, not fatal: the next tick retries.
func (j *Job) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.InfoContext(ctx, "Fee job started",
		"billing_day", j.billingDay,
		"check_interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			j.logger.InfoContext(ctx, "Fee job stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if _, err := j.RunOnce(ctx, time.Now()); err != nil {
				j.logger.ErrorContext(ctx, "Fee run failed", log.FieldError, err.Error())
			}
		}
	}
}
