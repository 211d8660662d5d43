package statement

import (
	"fmt"
	"strings"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/core"
)

// KindLabel is the chat label for a movement kind.
func KindLabel(k core.MovementKind) string {
	switch k {
	case core.KindExpense:
		return "COMPRA"
	case core.KindService:
		return "TRABAJO"
	case core.KindCleaning:
		return "LIMPIEZA"
	case core.KindRecurringFee:
		return "CUOTA"
	case core.KindPayment:
		return "PAGO"
	}
	return string(k)
}

// displayAmount is what a movement line shows: the client price for charges,
// the received amount for payments.
func displayAmount(m core.Movement) core.Money {
	if m.Kind == core.KindPayment {
		return m.Amount
	}
	if m.ClientPrice != nil {
		return *m.ClientPrice
	}
	return m.Amount.Neg()
}

// RenderChat formats a statement as the WhatsApp reply the operator reads.
func RenderChat(st Statement) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📅 Extracto %s\n", st.Period.Key)
	fmt.Fprintf(&b, "Cliente: %s\n\n", st.Customer.Name)

	b.WriteString("DETALLE:\n")
	if len(st.Movements) == 0 {
		b.WriteString("(sin movimientos este mes)\n")
	}
	for _, m := range st.Movements {
		fmt.Fprintf(&b, "• %s | %s | %s | %s\n",
			m.CreatedAt.Format("2006-01-02"),
			KindLabel(m.Kind),
			m.Description,
			displayAmount(m).Euros())
	}

	b.WriteString("\nRESUMEN DEL MES:\n")
	fmt.Fprintf(&b, "Facturado este mes: %s\n", st.TotalBilled.Euros())
	fmt.Fprintf(&b, "Pagos recibidos:    %s\n", st.TotalPaid.Euros())
	fmt.Fprintf(&b, "Beneficio bruto:    %s\n", st.GrossProfit.Euros())
	fmt.Fprintf(&b, "Beneficio compras:  %s\n", st.ResaleProfit.Euros())

	b.WriteString("\nSALDO PENDIENTE A DÍA DE HOY:\n")
	fmt.Fprintf(&b, "%s  (negativo = te queda por cobrar / positivo = tiene saldo a favor)",
		st.Balance.Euros())

	return b.String()
}

// RenderSummary formats a whole-period summary.
func RenderSummary(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Resumen %s\n\n", s.Period.Key)
	fmt.Fprintf(&b, "Movimientos:        %d\n", s.Count)
	fmt.Fprintf(&b, "Facturado:          %s\n", s.TotalBilled.Euros())
	fmt.Fprintf(&b, "Pagos recibidos:    %s\n", s.TotalPaid.Euros())
	fmt.Fprintf(&b, "Beneficio bruto:    %s", s.GrossProfit.Euros())
	return b.String()
}

// RenderTop formats a customer ranking.
func RenderTop(period core.Period, rows []CustomerTotal) string {
	if len(rows) == 0 {
		return fmt.Sprintf("Sin movimientos en %s.", period.Key)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Top clientes %s\n", period.Key)
	for i, r := range rows {
		fmt.Fprintf(&b, "\n%d. %s: %s facturado (%d movimientos)",
			i+1, r.Name, r.Billed.Euros(), r.Count)
	}
	return b.String()
}

// RenderSearch formats search hits, newest first.
func RenderSearch(term string, movements []core.Movement) string {
	if len(movements) == 0 {
		return fmt.Sprintf("No encuentro movimientos con %q.", term)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔎 Movimientos con %q:\n", term)
	for _, m := range movements {
		fmt.Fprintf(&b, "\n• %s | %s | %s | %s",
			m.CreatedAt.Format("2006-01-02"),
			KindLabel(m.Kind),
			m.Description,
			displayAmount(m).Euros())
	}
	return b.String()
}
