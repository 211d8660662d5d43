package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/core"
)

// MemoryStore is an in-memory Store with the same semantics as the SQLite
// implementation. It backs tests and local experiments.
type MemoryStore struct {
	mu        sync.Mutex
	customers map[int64]*core.Customer
	movements []core.Movement
	markers   map[string]string
	nextCust  int64
	nextMov   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers: make(map[int64]*core.Customer),
		markers:   make(map[string]string),
		nextCust:  1,
		nextMov:   1,
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) findLocked(nameOrAlias string) *core.Customer {
	key := core.NormalizeName(nameOrAlias)
	for _, c := range s.customers {
		if core.NormalizeName(c.Name) == key {
			return c
		}
		if c.Alias != "" && core.NormalizeName(c.Alias) == key {
			return c
		}
	}
	return nil
}

func (s *MemoryStore) GetOrCreateCustomer(ctx context.Context, name string) (core.Customer, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return core.Customer{}, core.ErrCustomerNotResolvable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c := s.findLocked(name); c != nil {
		return *c, nil
	}

	c := &core.Customer{
		ID:        s.nextCust,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	s.nextCust++
	s.customers[c.ID] = c
	return *c, nil
}

func (s *MemoryStore) FindCustomer(ctx context.Context, nameOrAlias string) (core.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c := s.findLocked(nameOrAlias); c != nil {
		return *c, nil
	}
	return core.Customer{}, core.ErrCustomerNotFound
}

func (s *MemoryStore) CustomerByID(ctx context.Context, id int64) (core.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.customers[id]; ok {
		return *c, nil
	}
	return core.Customer{}, core.ErrCustomerNotFound
}

func (s *MemoryStore) ListCustomersWithFee(ctx context.Context) ([]core.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Customer
	for _, c := range s.customers {
		if c.MonthlyFee.Cents > 0 {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SetMonthlyFee(ctx context.Context, customerID int64, cents int64) error {
	if cents < 0 {
		return core.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[customerID]
	if !ok {
		return core.ErrCustomerNotFound
	}
	c.MonthlyFee = core.Money{Cents: cents}
	return nil
}

func (s *MemoryStore) AppendMovement(ctx context.Context, m core.Movement) (int64, core.Money, error) {
	if err := m.Validate(); err != nil {
		return 0, core.Money{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[m.CustomerID]
	if !ok {
		return 0, core.Money{}, core.ErrCustomerNotFound
	}

	if m.Kind == core.KindRecurringFee {
		for _, prev := range s.movements {
			if prev.CustomerID == m.CustomerID && prev.Period == m.Period && prev.Kind == core.KindRecurringFee {
				return 0, core.Money{}, core.ErrDuplicateFee
			}
		}
	}

	m.ID = s.nextMov
	s.nextMov++
	s.movements = append(s.movements, m)

	c.Balance = c.Balance.Add(m.Amount)
	return m.ID, c.Balance, nil
}

func (s *MemoryStore) MovementsByCustomerPeriod(ctx context.Context, customerID int64, period string) ([]core.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Movement
	for _, m := range s.movements {
		if m.CustomerID == customerID && m.Period == period {
			out = append(out, m)
		}
	}
	sortMovementsAsc(out)
	return out, nil
}

func (s *MemoryStore) MovementsByPeriod(ctx context.Context, period string) ([]core.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Movement
	for _, m := range s.movements {
		if m.Period == period {
			out = append(out, m)
		}
	}
	sortMovementsAsc(out)
	return out, nil
}

func (s *MemoryStore) SearchMovements(ctx context.Context, term string, limit int) ([]core.Movement, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(term)
	var out []core.Movement
	for i := len(s.movements) - 1; i >= 0 && len(out) < limit; i-- {
		m := s.movements[i]
		if strings.Contains(strings.ToLower(m.Description), needle) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetMarker(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markers[key], nil
}

func (s *MemoryStore) SetMarker(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[key] = value
	return nil
}

func sortMovementsAsc(ms []core.Movement) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].ID < ms[j].ID
		}
		return ms[i].CreatedAt.Before(ms[j].CreatedAt)
	})
}
