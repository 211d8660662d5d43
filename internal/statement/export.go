package statement

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/core"
)

// ExportCSV renders every movement of the period as CSV, one row per
// movement, amounts in dot-decimal euros.
func (a *Aggregator) ExportCSV(ctx context.Context, period core.Period) ([]byte, error) {
	movements, err := a.store.MovementsByPeriod(ctx, period.Key)
	if err != nil {
		return nil, fmt.Errorf("load movements: %w", err)
	}

	names := make(map[int64]string)
	for _, m := range movements {
		if _, ok := names[m.CustomerID]; ok {
			continue
		}
		c, err := a.store.CustomerByID(ctx, m.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("resolve customer: %w", err)
		}
		names[m.CustomerID] = c.Name
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"fecha", "cliente", "tipo", "concepto", "precio_cliente", "coste", "beneficio", "importe"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, m := range movements {
		row := []string{
			m.CreatedAt.Format("2006-01-02"),
			names[m.CustomerID],
			KindLabel(m.Kind),
			m.Description,
			optionalDecimal(m.ClientPrice),
			optionalDecimal(m.Cost),
			optionalDecimal(m.Profit),
			m.Amount.Decimal(),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StatementCSV renders a single customer's statement as CSV, for the file
// link sent alongside the chat text.
func StatementCSV(st Statement) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"fecha", "tipo", "concepto", "precio_cliente", "coste", "beneficio", "importe"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, m := range st.Movements {
		row := []string{
			m.CreatedAt.Format("2006-01-02"),
			KindLabel(m.Kind),
			m.Description,
			optionalDecimal(m.ClientPrice),
			optionalDecimal(m.Cost),
			optionalDecimal(m.Profit),
			m.Amount.Decimal(),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	summary := [][]string{
		{"", "", "facturado", st.TotalBilled.Decimal(), "", "", ""},
		{"", "", "pagado", st.TotalPaid.Decimal(), "", "", ""},
		{"", "", "beneficio_bruto", st.GrossProfit.Decimal(), "", "", ""},
		{"", "", "saldo_actual", st.Balance.Decimal(), "", "", ""},
	}
	for _, row := range summary {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func optionalDecimal(m *core.Money) string {
	if m == nil {
		return ""
	}
	return m.Decimal()
}
