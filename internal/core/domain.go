package core

import (
	"errors"
	"strings"
	"time"
)

// MovementKind is the closed set of ledger line types. Every posting path
// assigns exactly one of these; the sign of Movement.Amount is fixed per kind.
type MovementKind string

const (
	KindExpense      MovementKind = "expense"       // resale purchase charged to the customer
	KindService      MovementKind = "service"       // work billed at full profit
	KindCleaning     MovementKind = "cleaning"      // cleaning job, optional product cost
	KindRecurringFee MovementKind = "recurring_fee" // monthly fee
	KindPayment      MovementKind = "payment"       // money received from the customer
)

// IsCharge reports whether the kind increases what the customer owes.
func (k MovementKind) IsCharge() bool {
	return k != KindPayment
}

// Valid reports whether k is one of the known kinds.
func (k MovementKind) Valid() bool {
	switch k {
	case KindExpense, KindService, KindCleaning, KindRecurringFee, KindPayment:
		return true
	}
	return false
}

type (
	// Customer is one account with a running balance. Negative balance means
	// the customer owes the operator money.
	Customer struct {
		ID         int64
		Name       string
		Alias      string
		Balance    Money
		MonthlyFee Money
		CreatedAt  time.Time
	}

	// Movement is a single immutable ledger line. Corrections happen by
	// posting an offsetting movement, never by editing.
	Movement struct {
		ID            int64
		CustomerID    int64
		CreatedAt     time.Time
		Period        string // "YYYY-MM" bucket, immutable once set
		Kind          MovementKind
		Description   string
		ClientPrice   *Money // what the customer owes for this line
		Cost          *Money // true cost to the operator (resale kinds)
		Profit        *Money // ClientPrice - Cost, or ClientPrice for pure services
		Amount        Money  // signed balance delta: negative for charges, positive for payments
		AttachmentRef string
	}

	// PostResult is what a posting operation reports back.
	PostResult struct {
		MovementID int64
		NewBalance Money
		Profit     *Money
	}
)

var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrCustomerNotResolvable = errors.New("customer name is empty")
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrEmptyDescription      = errors.New("empty description")
	ErrNoMonthlyFee          = errors.New("customer has no monthly fee configured")
	ErrDuplicateFee          = errors.New("recurring fee already posted for this period")
)

// NormalizeName canonicalizes a customer name for storage and lookup:
// trimmed, single-spaced, lowercased. The store compares case-insensitively
// anyway; normalizing on the way in keeps display stable.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func (m Movement) Validate() error {
	if m.CustomerID == 0 {
		return ErrCustomerNotResolvable
	}
	if !m.Kind.Valid() {
		return errors.New("unknown movement kind")
	}
	if strings.TrimSpace(m.Description) == "" {
		return ErrEmptyDescription
	}
	if m.Period == "" {
		return errors.New("movement has no period")
	}
	if m.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	if m.Kind.IsCharge() && m.Amount.Cents > 0 {
		return errors.New("charge movement must carry a negative amount")
	}
	if m.Kind == KindPayment && m.Amount.Cents < 0 {
		return errors.New("payment movement must carry a positive amount")
	}
	return nil
}

// TimeLayout is how movement timestamps are stored in SQLite.
const TimeLayout = time.RFC3339
