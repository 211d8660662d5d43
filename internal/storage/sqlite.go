package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a single SQLite file. The connection pool
// is capped at one connection: SQLite serializes writers anyway, and a
// single connection avoids busy-lock churn while giving AppendMovement the
// per-customer exclusivity the balance invariant needs.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const customerColumns = "id, name, COALESCE(alias, ''), balance_cents, monthly_fee_cents, created_at"

func scanCustomer(row interface{ Scan(...any) error }) (core.Customer, error) {
	var c core.Customer
	var createdAt string
	err := row.Scan(&c.ID, &c.Name, &c.Alias, &c.Balance.Cents, &c.MonthlyFee.Cents, &createdAt)
	if err != nil {
		return core.Customer{}, err
	}
	c.CreatedAt, _ = time.Parse(core.TimeLayout, createdAt)
	return c, nil
}

func (s *SQLiteStore) GetOrCreateCustomer(ctx context.Context, name string) (core.Customer, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return core.Customer{}, core.ErrCustomerNotResolvable
	}

	c, err := s.FindCustomer(ctx, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, core.ErrCustomerNotFound) {
		return core.Customer{}, err
	}

	// COLLATE NOCASE on the name column makes the insert race-safe: a
	// concurrent create with different casing hits the unique constraint
	// and we fall back to the lookup.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (name, balance_cents, monthly_fee_cents, created_at)
		 VALUES (?, 0, 0, ?)
		 ON CONFLICT(name) DO NOTHING`,
		name, time.Now().UTC().Format(core.TimeLayout))
	if err != nil {
		return core.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.InfoContext(ctx, "Customer created", "name", name)
	}

	return s.FindCustomer(ctx, name)
}

func (s *SQLiteStore) FindCustomer(ctx context.Context, nameOrAlias string) (core.Customer, error) {
	nameOrAlias = strings.Join(strings.Fields(nameOrAlias), " ")
	row := s.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers
		 WHERE name = ? COLLATE NOCASE OR alias = ? COLLATE NOCASE`,
		nameOrAlias, nameOrAlias)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Customer{}, core.ErrCustomerNotFound
	}
	if err != nil {
		return core.Customer{}, fmt.Errorf("find customer: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) CustomerByID(ctx context.Context, id int64) (core.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Customer{}, core.ErrCustomerNotFound
	}
	if err != nil {
		return core.Customer{}, fmt.Errorf("customer by id: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) ListCustomersWithFee(ctx context.Context) ([]core.Customer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+customerColumns+` FROM customers
		 WHERE monthly_fee_cents > 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list customers with fee: %w", err)
	}
	defer rows.Close()

	var out []core.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SetMonthlyFee(ctx context.Context, customerID int64, cents int64) error {
	if cents < 0 {
		return core.ErrInvalidAmount
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE customers SET monthly_fee_cents = ? WHERE id = ?`, cents, customerID)
	if err != nil {
		return fmt.Errorf("set monthly fee: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrCustomerNotFound
	}
	return nil
}

func (s *SQLiteStore) AppendMovement(ctx context.Context, m core.Movement) (int64, core.Money, error) {
	if err := m.Validate(); err != nil {
		return 0, core.Money{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, core.Money{}, fmt.Errorf("begin posting tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO movements (customer_id, created_at, period, kind, description,
		                        client_price_cents, cost_cents, profit_cents,
		                        amount_cents, attachment_ref)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.CustomerID,
		m.CreatedAt.UTC().Format(core.TimeLayout),
		m.Period,
		string(m.Kind),
		m.Description,
		nullCents(m.ClientPrice),
		nullCents(m.Cost),
		nullCents(m.Profit),
		m.Amount.Cents,
		nullString(m.AttachmentRef),
	)
	if err != nil {
		if m.Kind == core.KindRecurringFee && strings.Contains(err.Error(), "UNIQUE") {
			return 0, core.Money{}, core.ErrDuplicateFee
		}
		return 0, core.Money{}, fmt.Errorf("insert movement: %w", err)
	}
	movementID, err := res.LastInsertId()
	if err != nil {
		return 0, core.Money{}, fmt.Errorf("movement id: %w", err)
	}

	// Increment in place; never read-modify-write the balance.
	var newBalance int64
	err = tx.QueryRowContext(ctx,
		`UPDATE customers SET balance_cents = balance_cents + ?
		 WHERE id = ?
		 RETURNING balance_cents`,
		m.Amount.Cents, m.CustomerID).Scan(&newBalance)
	if err != nil {
		return 0, core.Money{}, fmt.Errorf("update balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, core.Money{}, fmt.Errorf("commit posting: %w", err)
	}

	slog.InfoContext(ctx, "Movement posted",
		"movement_id", movementID,
		"customer_id", m.CustomerID,
		"kind", string(m.Kind),
		"amount_cents", m.Amount.Cents,
		"period", m.Period,
		"new_balance_cents", newBalance)

	return movementID, core.Money{Cents: newBalance}, nil
}

const movementColumns = `id, customer_id, created_at, period, kind, description,
	client_price_cents, cost_cents, profit_cents, amount_cents, COALESCE(attachment_ref, '')`

func scanMovement(row interface{ Scan(...any) error }) (core.Movement, error) {
	var m core.Movement
	var createdAt, kind string
	var clientPrice, cost, profit sql.NullInt64
	err := row.Scan(&m.ID, &m.CustomerID, &createdAt, &m.Period, &kind, &m.Description,
		&clientPrice, &cost, &profit, &m.Amount.Cents, &m.AttachmentRef)
	if err != nil {
		return core.Movement{}, err
	}
	m.CreatedAt, _ = time.Parse(core.TimeLayout, createdAt)
	m.Kind = core.MovementKind(kind)
	m.ClientPrice = centsPtr(clientPrice)
	m.Cost = centsPtr(cost)
	m.Profit = centsPtr(profit)
	return m, nil
}

func (s *SQLiteStore) MovementsByCustomerPeriod(ctx context.Context, customerID int64, period string) ([]core.Movement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM movements
		 WHERE customer_id = ? AND period = ?
		 ORDER BY created_at ASC, id ASC`,
		customerID, period)
	if err != nil {
		return nil, fmt.Errorf("movements by customer period: %w", err)
	}
	return collectMovements(rows)
}

func (s *SQLiteStore) MovementsByPeriod(ctx context.Context, period string) ([]core.Movement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM movements
		 WHERE period = ?
		 ORDER BY created_at ASC, id ASC`,
		period)
	if err != nil {
		return nil, fmt.Errorf("movements by period: %w", err)
	}
	return collectMovements(rows)
}

func (s *SQLiteStore) SearchMovements(ctx context.Context, term string, limit int) ([]core.Movement, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM movements
		 WHERE description LIKE '%' || ? || '%' COLLATE NOCASE
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		term, limit)
	if err != nil {
		return nil, fmt.Errorf("search movements: %w", err)
	}
	return collectMovements(rows)
}

func collectMovements(rows *sql.Rows) ([]core.Movement, error) {
	defer rows.Close()
	var out []core.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetMarker(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM period_markers WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get marker %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) SetMarker(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO period_markers (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("set marker %q: %w", key, err)
	}
	return nil
}

func nullCents(m *core.Money) any {
	if m == nil {
		return nil
	}
	return m.Cents
}

func centsPtr(n sql.NullInt64) *core.Money {
	if !n.Valid {
		return nil
	}
	return &core.Money{Cents: n.Int64}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
