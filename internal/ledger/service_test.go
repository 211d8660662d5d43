package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/amqp"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/core"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/storage"
)

type capturePublisher struct {
	msgs []*amqp.MovementPostedMessage
	err  error
}

func (p *capturePublisher) PublishMovementPosted(ctx context.Context, msg *amqp.MovementPostedMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func newTestService(t *testing.T) (*Service, *storage.MemoryStore, *capturePublisher) {
	t.Helper()
	store := storage.NewMemoryStore()
	pub := &capturePublisher{}
	return NewService(store, pub, time.UTC, nil), store, pub
}

func TestPostExpenseComputesProfit(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	res, err := svc.PostExpense(ctx, "juan perez", "abono cesped", 18750, 9050, time.Time{}, "")
	if err != nil {
		t.Fatalf("PostExpense: %v", err)
	}
	if res.Profit == nil || res.Profit.Cents != 9700 {
		t.Errorf("profit = %v, want 9700", res.Profit)
	}
	if res.NewBalance.Cents != -18750 {
		t.Errorf("new balance = %d, want -18750", res.NewBalance.Cents)
	}
	if len(pub.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.msgs))
	}
	if pub.msgs[0].AmountCents != -18750 || pub.msgs[0].CustomerName != "juan perez" {
		t.Errorf("unexpected published message: %+v", pub.msgs[0])
	}
}

func TestPostExpenseRejectsBadAmounts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.PostExpense(ctx, "juan", "x", 0, 100, time.Time{}, ""); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero price: got %v", err)
	}
	if _, err := svc.PostExpense(ctx, "juan", "x", 100, -5, time.Time{}, ""); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative cost: got %v", err)
	}
}

func TestPostServiceFullProfit(t *testing.T) {
	svc, _, _ := newTestService(t)

	res, err := svc.PostService(context.Background(), "maria", "poda setos", 5865)
	if err != nil {
		t.Fatalf("PostService: %v", err)
	}
	if res.Profit == nil || res.Profit.Cents != 5865 {
		t.Errorf("profit = %v, want 5865", res.Profit)
	}
	if res.NewBalance.Cents != -5865 {
		t.Errorf("new balance = %d, want -5865", res.NewBalance.Cents)
	}
}

func TestPostCleaningProductCost(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.PostCleaning(ctx, "maria", "limpieza piscina", 5865, 915, "")
	if err != nil {
		t.Fatalf("PostCleaning: %v", err)
	}
	if res.Profit == nil || res.Profit.Cents != 4950 {
		t.Errorf("profit = %v, want 4950", res.Profit)
	}

	// Without product cost the whole charge is profit.
	res, err = svc.PostCleaning(ctx, "maria", "limpieza semanal", 4000, 0, "")
	if err != nil {
		t.Fatalf("PostCleaning no product: %v", err)
	}
	if res.Profit == nil || res.Profit.Cents != 4000 {
		t.Errorf("profit = %v, want 4000", res.Profit)
	}
}

func TestPostPaymentRequiresExistingCustomer(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.PostPayment(ctx, "desconocido", 5000); !errors.Is(err, core.ErrCustomerNotFound) {
		t.Fatalf("unknown customer: got %v, want ErrCustomerNotFound", err)
	}

	if _, err := svc.PostService(ctx, "Juan", "trabajo", 10000); err != nil {
		t.Fatalf("seed charge: %v", err)
	}

	res, err := svc.PostPayment(ctx, "juan", 5000)
	if err != nil {
		t.Fatalf("PostPayment: %v", err)
	}
	if res.NewBalance.Cents != -5000 {
		t.Errorf("new balance = %d, want -5000", res.NewBalance.Cents)
	}
}

func TestPostRecurringFee(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	customer, err := svc.SetMonthlyFee(ctx, "maria", 5000)
	if err != nil {
		t.Fatalf("SetMonthlyFee: %v", err)
	}

	res, err := svc.PostRecurringFee(ctx, customer, "2025-10")
	if err != nil {
		t.Fatalf("PostRecurringFee: %v", err)
	}
	if res.NewBalance.Cents != -5000 {
		t.Errorf("new balance = %d, want -5000", res.NewBalance.Cents)
	}

	if _, err := svc.PostRecurringFee(ctx, customer, "2025-10"); !errors.Is(err, core.ErrDuplicateFee) {
		t.Errorf("duplicate fee: got %v", err)
	}

	noFee, _ := store.GetOrCreateCustomer(ctx, "pepe")
	if _, err := svc.PostRecurringFee(ctx, noFee, "2025-10"); !errors.Is(err, core.ErrNoMonthlyFee) {
		t.Errorf("no fee configured: got %v", err)
	}
}

func TestPublishFailureDoesNotFailPosting(t *testing.T) {
	store := storage.NewMemoryStore()
	pub := &capturePublisher{err: errors.New("broker down")}
	svc := NewService(store, pub, time.UTC, nil)

	if _, err := svc.PostService(context.Background(), "juan", "trabajo", 1000); err != nil {
		t.Fatalf("posting failed on publish error: %v", err)
	}
}
