package session

import (
	"testing"
	"time"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/parser"
)

func TestLastProposalWins(t *testing.T) {
	store := NewStore(time.Minute)

	store.Put("34600111222", Pending{Intent: parser.RecordPayment{Customer: "juan", AmountCents: 5000}})
	store.Put("34600111222", Pending{Intent: parser.RecordPayment{Customer: "juan", AmountCents: 7000}})

	p, ok := store.Get("34600111222")
	if !ok {
		t.Fatal("expected a pending proposal")
	}
	pay, ok := p.Intent.(parser.RecordPayment)
	if !ok || pay.AmountCents != 7000 {
		t.Errorf("got %+v, want the second proposal", p.Intent)
	}
}

func TestSlotsAreIsolatedPerSender(t *testing.T) {
	store := NewStore(time.Minute)

	store.Put("a", Pending{Preview: "uno"})
	store.Put("b", Pending{Preview: "dos"})

	if p, _ := store.Get("a"); p.Preview != "uno" {
		t.Errorf("sender a got %q", p.Preview)
	}
	if p, _ := store.Get("b"); p.Preview != "dos" {
		t.Errorf("sender b got %q", p.Preview)
	}
}

func TestDeleteClearsSlot(t *testing.T) {
	store := NewStore(time.Minute)

	store.Put("a", Pending{Preview: "uno"})
	store.Delete("a")

	if _, ok := store.Get("a"); ok {
		t.Error("expected empty slot after delete")
	}
}

func TestEntriesExpire(t *testing.T) {
	store := NewStore(10 * time.Millisecond)

	store.Put("a", Pending{Preview: "uno"})
	time.Sleep(30 * time.Millisecond)

	if _, ok := store.Get("a"); ok {
		t.Error("expected expired entry to be gone")
	}
}
