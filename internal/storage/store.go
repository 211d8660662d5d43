// Package storage owns the durable ledger state: customers, movements and
// period markers. The SQLite implementation is the production store; the
// memory implementation backs tests and local experiments.
package storage

import (
	"context"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/core"
)

// Store is the single surface the ledger writes through and the aggregator
// reads through. AppendMovement is atomic: the movement insert and the
// balance update land together or not at all, and the balance delta is
// applied in place so concurrent postings to the same customer serialize in
// the store rather than racing in the application.
type Store interface {
	// GetOrCreateCustomer resolves name case-insensitively (alias included)
	// and creates a zero-balance customer on miss. Repeated calls with any
	// casing of the same name resolve to the same identity.
	GetOrCreateCustomer(ctx context.Context, name string) (core.Customer, error)

	// FindCustomer resolves name or alias case-insensitively without
	// creating. Returns core.ErrCustomerNotFound on miss.
	FindCustomer(ctx context.Context, nameOrAlias string) (core.Customer, error)

	// CustomerByID returns the customer with the given id, or
	// core.ErrCustomerNotFound.
	CustomerByID(ctx context.Context, id int64) (core.Customer, error)

	// ListCustomersWithFee returns every customer with a non-zero monthly fee.
	ListCustomersWithFee(ctx context.Context) ([]core.Customer, error)

	// SetMonthlyFee configures a customer's recurring fee.
	SetMonthlyFee(ctx context.Context, customerID int64, cents int64) error

	// AppendMovement durably records m and applies m.Amount to the owning
	// customer's balance in the same transaction. Returns the movement id
	// and the balance after the update. A recurring-fee movement that
	// already exists for (customer, period) fails with core.ErrDuplicateFee.
	AppendMovement(ctx context.Context, m core.Movement) (int64, core.Money, error)

	// MovementsByCustomerPeriod returns the customer's movements in a
	// period, ascending by timestamp.
	MovementsByCustomerPeriod(ctx context.Context, customerID int64, period string) ([]core.Movement, error)

	// MovementsByPeriod returns every movement in a period, ascending by
	// timestamp, for summaries and exports.
	MovementsByPeriod(ctx context.Context, period string) ([]core.Movement, error)

	// SearchMovements returns up to limit movements whose description
	// contains term (case-insensitive), newest first.
	SearchMovements(ctx context.Context, term string, limit int) ([]core.Movement, error)

	// GetMarker returns the stored value for key, or "" when unset.
	GetMarker(ctx context.Context, key string) (string, error)

	// SetMarker upserts the value for key.
	SetMarker(ctx context.Context, key, value string) error

	Close() error
}
