package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/core"
)

func money(cents int64) *core.Money { return &core.Money{Cents: cents} }

func TestGetOrCreateCustomerCaseInsensitive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.GetOrCreateCustomer(ctx, "Maria")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"maria", "MARIA", "  Maria  "} {
		got, err := store.GetOrCreateCustomer(ctx, name)
		if err != nil {
			t.Fatalf("GetOrCreateCustomer(%q): %v", name, err)
		}
		if got.ID != first.ID {
			t.Errorf("GetOrCreateCustomer(%q) id = %d, want %d", name, got.ID, first.ID)
		}
	}

	if _, err := store.GetOrCreateCustomer(ctx, "   "); !errors.Is(err, core.ErrCustomerNotResolvable) {
		t.Errorf("blank name: got %v, want ErrCustomerNotResolvable", err)
	}
}

func TestFindCustomerMiss(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.FindCustomer(context.Background(), "nadie")
	if !errors.Is(err, core.ErrCustomerNotFound) {
		t.Errorf("got %v, want ErrCustomerNotFound", err)
	}
}

func TestAppendMovementUpdatesBalance(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	c, err := store.GetOrCreateCustomer(ctx, "juan perez")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Date(2025, 10, 6, 10, 0, 0, 0, time.UTC)

	id, balance, err := store.AppendMovement(ctx, core.Movement{
		CustomerID:  c.ID,
		CreatedAt:   now,
		Period:      "2025-10",
		Kind:        core.KindExpense,
		Description: "abono cesped",
		ClientPrice: money(18750),
		Cost:        money(9050),
		Profit:      money(9700),
		Amount:      core.Money{Cents: -18750},
	})
	if err != nil {
		t.Fatalf("AppendMovement: %v", err)
	}
	if id == 0 {
		t.Error("expected a non-zero movement id")
	}
	if balance.Cents != -18750 {
		t.Errorf("balance after charge = %d, want -18750", balance.Cents)
	}

	_, balance, err = store.AppendMovement(ctx, core.Movement{
		CustomerID:  c.ID,
		CreatedAt:   now.Add(time.Hour),
		Period:      "2025-10",
		Kind:        core.KindPayment,
		Description: "pago recibido",
		Amount:      core.Money{Cents: 10000},
	})
	if err != nil {
		t.Fatalf("AppendMovement payment: %v", err)
	}
	if balance.Cents != -8750 {
		t.Errorf("balance after payment = %d, want -8750", balance.Cents)
	}
}

func TestAppendMovementRejectsInvalid(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	c, _ := store.GetOrCreateCustomer(ctx, "pepe")

	cases := []struct {
		name string
		m    core.Movement
	}{
		{"zero amount", core.Movement{CustomerID: c.ID, Period: "2025-10", Kind: core.KindService, Description: "x"}},
		{"positive charge", core.Movement{CustomerID: c.ID, Period: "2025-10", Kind: core.KindService, Description: "x", Amount: core.Money{Cents: 100}}},
		{"negative payment", core.Movement{CustomerID: c.ID, Period: "2025-10", Kind: core.KindPayment, Description: "x", Amount: core.Money{Cents: -100}}},
		{"empty description", core.Movement{CustomerID: c.ID, Period: "2025-10", Kind: core.KindService, Description: "  ", Amount: core.Money{Cents: -100}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.m.CreatedAt = time.Now()
			if _, _, err := store.AppendMovement(ctx, tc.m); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestAppendMovementDuplicateFee(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	c, _ := store.GetOrCreateCustomer(ctx, "maria")

	fee := core.Movement{
		CustomerID:  c.ID,
		CreatedAt:   time.Now(),
		Period:      "2025-10",
		Kind:        core.KindRecurringFee,
		Description: "cuota mensual",
		Amount:      core.Money{Cents: -5000},
	}

	if _, _, err := store.AppendMovement(ctx, fee); err != nil {
		t.Fatalf("first fee: %v", err)
	}
	if _, _, err := store.AppendMovement(ctx, fee); !errors.Is(err, core.ErrDuplicateFee) {
		t.Errorf("second fee: got %v, want ErrDuplicateFee", err)
	}

	// A different period posts fine.
	fee.Period = "2025-11"
	if _, _, err := store.AppendMovement(ctx, fee); err != nil {
		t.Errorf("next period fee: %v", err)
	}
}

func TestSearchMovements(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	c, _ := store.GetOrCreateCustomer(ctx, "juan")
	for i, desc := range []string{"abono cesped", "limpieza piscina", "Abono otono"} {
		_, _, err := store.AppendMovement(ctx, core.Movement{
			CustomerID:  c.ID,
			CreatedAt:   time.Date(2025, 10, i+1, 0, 0, 0, 0, time.UTC),
			Period:      "2025-10",
			Kind:        core.KindService,
			Description: desc,
			Amount:      core.Money{Cents: -1000},
		})
		if err != nil {
			t.Fatalf("seed movement: %v", err)
		}
	}

	got, err := store.SearchMovements(ctx, "abono", 10)
	if err != nil {
		t.Fatalf("SearchMovements: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Description != "Abono otono" {
		t.Errorf("expected newest first, got %q", got[0].Description)
	}
}

func TestMarkers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	v, err := store.GetMarker(ctx, "recurring_fee_last_applied")
	if err != nil || v != "" {
		t.Fatalf("unset marker: got %q, %v", v, err)
	}

	if err := store.SetMarker(ctx, "recurring_fee_last_applied", "2025-10"); err != nil {
		t.Fatalf("SetMarker: %v", err)
	}
	if err := store.SetMarker(ctx, "recurring_fee_last_applied", "2025-11"); err != nil {
		t.Fatalf("SetMarker update: %v", err)
	}

	v, err = store.GetMarker(ctx, "recurring_fee_last_applied")
	if err != nil || v != "2025-11" {
		t.Errorf("marker after upsert: got %q, %v", v, err)
	}
}
