package feejob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/core"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/ledger"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/storage"
)

func newTestJob(t *testing.T) (*Job, *storage.MemoryStore, *ledger.Service) {
	t.Helper()
	store := storage.NewMemoryStore()
	svc := ledger.NewService(store, nil, time.UTC, nil)
	return New(store, svc, 1, time.UTC, nil), store, svc
}

func seedFeeCustomers(t *testing.T, svc *ledger.Service) {
	t.Helper()
	ctx := context.Background()
	for _, name := range []string{"juan perez", "maria lopez"} {
		if _, err := svc.SetMonthlyFee(ctx, name, 5000); err != nil {
			t.Fatalf("SetMonthlyFee(%q): %v", name, err)
		}
	}
}

var billingDay = time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

func TestRunOnceAppliesFees(t *testing.T) {
	job, store, svc := newTestJob(t)
	seedFeeCustomers(t, svc)
	ctx := context.Background()

	out, err := job.RunOnce(ctx, billingDay)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if out.Applied != 2 || out.Skipped != "" {
		t.Errorf("outcome = %+v, want 2 applied", out)
	}

	c, err := store.FindCustomer(ctx, "juan perez")
	if err != nil {
		t.Fatal(err)
	}
	if c.Balance.Cents != -5000 {
		t.Errorf("balance = %d, want -5000", c.Balance.Cents)
	}

	marker, _ := store.GetMarker(ctx, MarkerKey)
	if marker != "2025-10" {
		t.Errorf("marker = %q, want 2025-10", marker)
	}
}

func TestRunOnceSkipsOffBillingDay(t *testing.T) {
	job, store, svc := newTestJob(t)
	seedFeeCustomers(t, svc)

	out, err := job.RunOnce(context.Background(), time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if out.Skipped != "not billing day" {
		t.Errorf("outcome = %+v", out)
	}
	if marker, _ := store.GetMarker(context.Background(), MarkerKey); marker != "" {
		t.Errorf("marker advanced on off day: %q", marker)
	}
}

func TestRunOnceIsIdempotentViaMarker(t *testing.T) {
	job, store, svc := newTestJob(t)
	seedFeeCustomers(t, svc)
	ctx := context.Background()

	if _, err := job.RunOnce(ctx, billingDay); err != nil {
		t.Fatal(err)
	}
	out, err := job.RunOnce(ctx, billingDay.Add(time.Hour))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if out.Skipped != "already applied this period" || out.Applied != 0 {
		t.Errorf("outcome = %+v", out)
	}

	c, _ := store.FindCustomer(ctx, "juan perez")
	if c.Balance.Cents != -5000 {
		t.Errorf("balance after rerun = %d, want -5000", c.Balance.Cents)
	}
}

func TestRetryAfterPartialRunSkipsChargedCustomers(t *testing.T) {
	job, store, svc := newTestJob(t)
	seedFeeCustomers(t, svc)
	ctx := context.Background()

	// Simulate a crashed previous run: one customer already charged, the
	// marker never advanced.
	c, _ := store.FindCustomer(ctx, "juan perez")
	if _, err := svc.PostRecurringFee(ctx, c, "2025-10"); err != nil {
		t.Fatalf("pre-charge: %v", err)
	}

	out, err := job.RunOnce(ctx, billingDay)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if out.Applied != 1 || out.AlreadyCharged != 1 {
		t.Errorf("outcome = %+v, want 1 applied and 1 already charged", out)
	}

	c, _ = store.FindCustomer(ctx, "juan perez")
	if c.Balance.Cents != -5000 {
		t.Errorf("double-charged: balance = %d", c.Balance.Cents)
	}
}

func TestNewPeriodChargesAgain(t *testing.T) {
	job, store, svc := newTestJob(t)
	seedFeeCustomers(t, svc)
	ctx := context.Background()

	if _, err := job.RunOnce(ctx, billingDay); err != nil {
		t.Fatal(err)
	}
	out, err := job.RunOnce(ctx, time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("november run: %v", err)
	}
	if out.Applied != 2 {
		t.Errorf("outcome = %+v, want 2 applied", out)
	}

	c, _ := store.FindCustomer(ctx, "maria lopez")
	if c.Balance.Cents != -10000 {
		t.Errorf("balance = %d, want -10000", c.Balance.Cents)
	}
}

func TestCustomersWithoutFeeAreIgnored(t *testing.T) {
	job, store, svc := newTestJob(t)
	seedFeeCustomers(t, svc)
	ctx := context.Background()

	if _, err := store.GetOrCreateCustomer(ctx, "sin cuota"); err != nil {
		t.Fatal(err)
	}

	out, err := job.RunOnce(ctx, billingDay)
	if err != nil {
		t.Fatal(err)
	}
	if out.Applied != 2 {
		t.Errorf("outcome = %+v, want 2 applied", out)
	}
	c, _ := store.FindCustomer(ctx, "sin cuota")
	if c.Balance.Cents != 0 {
		t.Errorf("customer without fee was charged: %d", c.Balance.Cents)
	}
}

func TestDuplicateFeeErrorSurfacesFromStore(t *testing.T) {
	_, _, svc := newTestJob(t)
	ctx := context.Background()

	customer, err := svc.SetMonthlyFee(ctx, "juan perez", 5000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.PostRecurringFee(ctx, customer, "2025-10"); err != nil {
		t.Fatal(err)
	}
	_, err = svc.PostRecurringFee(ctx, customer, "2025-10")
	if !errors.Is(err, core.ErrDuplicateFee) {
		t.Errorf("got %v, want ErrDuplicateFee", err)
	}
}
