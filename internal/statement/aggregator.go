// Package statement is the read side of the ledger: it reconstructs a
// customer's monthly activity, period summaries and rankings without ever
// mutating the store.
package statement

import (
	"context"
	"fmt"
	"sort"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/core"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/storage"
)

// Statement is a customer's activity within one period. Balance is always
// the balance as of now, not as of period end; reconstructing historical
// balances is deliberately out of scope.
type Statement struct {
	Customer     core.Customer
	Period       core.Period
	Movements    []core.Movement
	TotalBilled  core.Money // sum of client prices over charge movements
	TotalPaid    core.Money // sum of payment amounts
	GrossProfit  core.Money // sum of profit over charge movements
	ResaleProfit core.Money // profit restricted to resale purchases
	Balance      core.Money
}

// Summary aggregates a whole period across customers.
type Summary struct {
	Period      core.Period
	TotalBilled core.Money
	TotalPaid   core.Money
	GrossProfit core.Money
	Count       int
}

// CustomerTotal is one row of a period ranking.
type CustomerTotal struct {
	CustomerID  int64
	Name        string
	Billed      core.Money
	GrossProfit core.Money
	Count       int
}

type Aggregator struct {
	store storage.Store
}

func NewAggregator(store storage.Store) *Aggregator {
	return &Aggregator{store: store}
}

// MonthlyStatement builds the statement for one customer and period.
// Returns core.ErrCustomerNotFound when the name matches no record; an
// existing customer with no movements in the period yields an empty list
// and the live balance.
func (a *Aggregator) MonthlyStatement(ctx context.Context, nameOrAlias string, period core.Period) (Statement, error) {
	customer, err := a.store.FindCustomer(ctx, nameOrAlias)
	if err != nil {
		return Statement{}, err
	}

	movements, err := a.store.MovementsByCustomerPeriod(ctx, customer.ID, period.Key)
	if err != nil {
		return Statement{}, fmt.Errorf("load movements: %w", err)
	}

	st := Statement{
		Customer:  customer,
		Period:    period,
		Movements: movements,
		Balance:   customer.Balance,
	}
	for _, m := range movements {
		accumulate(&st.TotalBilled, &st.TotalPaid, &st.GrossProfit, &st.ResaleProfit, m)
	}
	return st, nil
}

// PeriodSummary totals every movement in the period, all customers together.
func (a *Aggregator) PeriodSummary(ctx context.Context, period core.Period) (Summary, error) {
	movements, err := a.store.MovementsByPeriod(ctx, period.Key)
	if err != nil {
		return Summary{}, fmt.Errorf("load movements: %w", err)
	}

	s := Summary{Period: period, Count: len(movements)}
	var resale core.Money
	for _, m := range movements {
		accumulate(&s.TotalBilled, &s.TotalPaid, &s.GrossProfit, &resale, m)
	}
	return s, nil
}

// Top ranks customers by billed volume within the period.
func (a *Aggregator) Top(ctx context.Context, period core.Period, limit int) ([]CustomerTotal, error) {
	if limit <= 0 {
		limit = 5
	}

	movements, err := a.store.MovementsByPeriod(ctx, period.Key)
	if err != nil {
		return nil, fmt.Errorf("load movements: %w", err)
	}

	byCustomer := make(map[int64]*CustomerTotal)
	for _, m := range movements {
		if m.Kind == core.KindPayment {
			continue
		}
		ct, ok := byCustomer[m.CustomerID]
		if !ok {
			ct = &CustomerTotal{CustomerID: m.CustomerID}
			byCustomer[m.CustomerID] = ct
		}
		if m.ClientPrice != nil {
			ct.Billed = ct.Billed.Add(*m.ClientPrice)
		}
		if m.Profit != nil {
			ct.GrossProfit = ct.GrossProfit.Add(*m.Profit)
		}
		ct.Count++
	}

	out := make([]CustomerTotal, 0, len(byCustomer))
	for _, ct := range byCustomer {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Billed.Cents == out[j].Billed.Cents {
			return out[i].CustomerID < out[j].CustomerID
		}
		return out[i].Billed.Cents > out[j].Billed.Cents
	})
	if len(out) > limit {
		out = out[:limit]
	}

	for i := range out {
		c, err := a.store.CustomerByID(ctx, out[i].CustomerID)
		if err != nil {
			return nil, fmt.Errorf("resolve ranking name: %w", err)
		}
		out[i].Name = c.Name
	}
	return out, nil
}

// Search returns recent movements whose description matches term.
func (a *Aggregator) Search(ctx context.Context, term string, limit int) ([]core.Movement, error) {
	return a.store.SearchMovements(ctx, term, limit)
}

func accumulate(billed, paid, gross, resale *core.Money, m core.Movement) {
	if m.Kind == core.KindPayment {
		*paid = paid.Add(m.Amount)
		return
	}
	if m.ClientPrice != nil {
		*billed = billed.Add(*m.ClientPrice)
	}
	if m.Profit != nil {
		*gross = gross.Add(*m.Profit)
		if m.Kind == core.KindExpense {
			*resale = resale.Add(*m.Profit)
		}
	}
}
