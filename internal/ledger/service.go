// Package ledger is the only write path into the account book. Every posting
// resolves the customer, derives the period bucket, validates the signed
// amount and lands atomically through the store.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/amqp"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/core"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/log"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/storage"
)

// Publisher announces committed movements. Nil disables publishing.
type Publisher interface {
	PublishMovementPosted(ctx context.Context, msg *amqp.MovementPostedMessage) error
}

type Service struct {
	store     storage.Store
	publisher Publisher
	loc       *time.Location
	logger    *log.Logger
}

func NewService(store storage.Store, publisher Publisher, loc *time.Location, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{
		store:     store,
		publisher: publisher,
		loc:       loc,
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

// PostExpense records a resale purchase: the customer owes clientPrice, the
// operator paid cost, the difference is profit. at lets backfilled purchases
// land in the month they happened; zero means now. attachmentRef optionally
// links the receipt photo. A zero cost is allowed for backfilled entries
// where only the charged price is known.
func (s *Service) PostExpense(ctx context.Context, customerName, description string, clientPriceCents, costCents int64, at time.Time, attachmentRef string) (core.PostResult, error) {
	if clientPriceCents <= 0 || costCents < 0 {
		return core.PostResult{}, core.ErrInvalidAmount
	}
	profit := core.Money{Cents: clientPriceCents - costCents}
	return s.post(ctx, customerName, at, core.Movement{
		Kind:          core.KindExpense,
		Description:   description,
		ClientPrice:   &core.Money{Cents: clientPriceCents},
		Cost:          &core.Money{Cents: costCents},
		Profit:        &profit,
		Amount:        core.Money{Cents: -clientPriceCents},
		AttachmentRef: attachmentRef,
	})
}

// PostService records work billed at full profit.
func (s *Service) PostService(ctx context.Context, customerName, description string, amountCents int64) (core.PostResult, error) {
	if amountCents <= 0 {
		return core.PostResult{}, core.ErrInvalidAmount
	}
	amount := core.Money{Cents: amountCents}
	return s.post(ctx, customerName, time.Time{}, core.Movement{
		Kind:        core.KindService,
		Description: description,
		ClientPrice: &amount,
		Profit:      &amount,
		Amount:      amount.Neg(),
	})
}

// PostCleaning records a cleaning job. productCostCents is optional; zero
// means no product was used and the whole charge is profit.
func (s *Service) PostCleaning(ctx context.Context, customerName, description string, chargedCents, productCostCents int64, attachmentRef string) (core.PostResult, error) {
	if chargedCents <= 0 || productCostCents < 0 {
		return core.PostResult{}, core.ErrInvalidAmount
	}
	m := core.Movement{
		Kind:          core.KindCleaning,
		Description:   description,
		ClientPrice:   &core.Money{Cents: chargedCents},
		Profit:        &core.Money{Cents: chargedCents - productCostCents},
		Amount:        core.Money{Cents: -chargedCents},
		AttachmentRef: attachmentRef,
	}
	if productCostCents > 0 {
		m.Cost = &core.Money{Cents: productCostCents}
	}
	return s.post(ctx, customerName, time.Time{}, m)
}

// PostPayment records money received. The customer must already exist: a
// payment from an unknown name is almost always a typo, not a new account.
func (s *Service) PostPayment(ctx context.Context, customerName string, amountCents int64) (core.PostResult, error) {
	if amountCents <= 0 {
		return core.PostResult{}, core.ErrInvalidAmount
	}

	customer, err := s.store.FindCustomer(ctx, customerName)
	if err != nil {
		return core.PostResult{}, err
	}

	return s.append(ctx, customer, time.Now(), core.Movement{
		Kind:        core.KindPayment,
		Description: "pago recibido",
		Amount:      core.Money{Cents: amountCents},
	})
}

// PostRecurringFee charges the customer's configured monthly fee for period.
// Duplicate fees for the same (customer, period) fail with ErrDuplicateFee.
func (s *Service) PostRecurringFee(ctx context.Context, customer core.Customer, period string) (core.PostResult, error) {
	if customer.MonthlyFee.Cents <= 0 {
		return core.PostResult{}, core.ErrNoMonthlyFee
	}

	m := core.Movement{
		CustomerID:  customer.ID,
		CreatedAt:   time.Now(),
		Period:      period,
		Kind:        core.KindRecurringFee,
		Description: "cuota mensual",
		ClientPrice: &core.Money{Cents: customer.MonthlyFee.Cents},
		Profit:      &core.Money{Cents: customer.MonthlyFee.Cents},
		Amount:      customer.MonthlyFee.Neg(),
	}

	movementID, newBalance, err := s.store.AppendMovement(ctx, m)
	if err != nil {
		return core.PostResult{}, err
	}

	s.publish(ctx, customer, m, movementID, newBalance)

	return core.PostResult{MovementID: movementID, NewBalance: newBalance, Profit: m.Profit}, nil
}

// SetMonthlyFee configures the customer's recurring fee, creating the
// customer when needed.
func (s *Service) SetMonthlyFee(ctx context.Context, customerName string, cents int64) (core.Customer, error) {
	if cents < 0 {
		return core.Customer{}, core.ErrInvalidAmount
	}
	customer, err := s.store.GetOrCreateCustomer(ctx, customerName)
	if err != nil {
		return core.Customer{}, err
	}
	if err := s.store.SetMonthlyFee(ctx, customer.ID, cents); err != nil {
		return core.Customer{}, err
	}
	customer.MonthlyFee = core.Money{Cents: cents}
	return customer, nil
}

func (s *Service) post(ctx context.Context, customerName string, at time.Time, m core.Movement) (core.PostResult, error) {
	customer, err := s.store.GetOrCreateCustomer(ctx, customerName)
	if err != nil {
		return core.PostResult{}, err
	}
	if at.IsZero() {
		at = time.Now()
	}
	m.CustomerID = customer.ID
	return s.append(ctx, customer, at, m)
}

func (s *Service) append(ctx context.Context, customer core.Customer, at time.Time, m core.Movement) (core.PostResult, error) {
	m.CustomerID = customer.ID
	m.CreatedAt = at
	m.Period = core.PeriodKey(at, s.loc)

	movementID, newBalance, err := s.store.AppendMovement(ctx, m)
	if err != nil {
		return core.PostResult{}, fmt.Errorf("append movement: %w", err)
	}

	s.logger.InfoContext(ctx, "Movement posted",
		log.FieldCustomerID, customer.ID,
		log.FieldMovementID, movementID,
		log.FieldKind, string(m.Kind),
		log.FieldAmountCents, m.Amount.Cents,
		log.FieldPeriod, m.Period)

	s.publish(ctx, customer, m, movementID, newBalance)

	return core.PostResult{MovementID: movementID, NewBalance: newBalance, Profit: m.Profit}, nil
}

// publish is best effort: a broker outage must never fail a posting that is
// already committed.
func (s *Service) publish(ctx context.Context, customer core.Customer, m core.Movement, movementID int64, newBalance core.Money) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishMovementPosted(ctx, &amqp.MovementPostedMessage{
		MovementID:      movementID,
		CustomerID:      customer.ID,
		CustomerName:    customer.Name,
		Kind:            string(m.Kind),
		Description:     m.Description,
		AmountCents:     m.Amount.Cents,
		NewBalanceCents: newBalance.Cents,
		Period:          m.Period,
		Timestamp:       m.CreatedAt,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish movement posted event",
			log.FieldError, err.Error(),
			log.FieldMovementID, movementID)
	}
}
