package parser

import (
	"testing"
	"time"
)

var madrid = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		panic(err)
	}
	return loc
}()

var testNow = time.Date(2025, 10, 26, 12, 0, 0, 0, madrid)

func parse(t *testing.T, text string) Intent {
	t.Helper()
	return New(madrid).Parse(text, testNow)
}

func TestConfirmTokensWinOverEverything(t *testing.T) {
	for _, in := range []string{"si", "sí", "SI", "vale", "ok", "confirmo", "correcto", " Sí "} {
		if _, ok := parse(t, in).(Confirm); !ok {
			t.Errorf("%q should parse as Confirm, got %T", in, parse(t, in))
		}
	}
}

func TestCancelTokens(t *testing.T) {
	for _, in := range []string{"no", "nanai", "cancela", "cancelar"} {
		if _, ok := parse(t, in).(Cancel); !ok {
			t.Errorf("%q should parse as Cancel", in)
		}
	}
}

func TestHelpAndGreeting(t *testing.T) {
	for _, in := range []string{"ayuda", "help", "ayúdame"} {
		if _, ok := parse(t, in).(Help); !ok {
			t.Errorf("%q should parse as Help", in)
		}
	}
	for _, in := range []string{"hola", "Hola soy Antonio", "buenas tardes", "qué tal"} {
		if _, ok := parse(t, in).(Greeting); !ok {
			t.Errorf("%q should parse as Greeting", in)
		}
	}
}

func TestParseCompra(t *testing.T) {
	in := parse(t, "compra juan perez abono cesped 187.50 90.50")
	exp, ok := in.(RecordExpense)
	if !ok {
		t.Fatalf("expected RecordExpense, got %T", in)
	}
	if exp.Customer != "juan perez" {
		t.Errorf("Customer = %q", exp.Customer)
	}
	if exp.Description != "abono cesped" {
		t.Errorf("Description = %q", exp.Description)
	}
	if exp.ClientPriceCents != 18750 {
		t.Errorf("ClientPriceCents = %d", exp.ClientPriceCents)
	}
	if exp.CostCents != 9050 {
		t.Errorf("CostCents = %d", exp.CostCents)
	}
}

func TestParseCompraCommaDecimals(t *testing.T) {
	in := parse(t, "compra juan perez 2 sacos abono 187,50 90,50")
	exp, ok := in.(RecordExpense)
	if !ok {
		t.Fatalf("expected RecordExpense, got %T", in)
	}
	// The greedy right-to-left rule stops at "abono", keeping "2" in the
	// description even though it is numeric.
	if exp.Description != "2 sacos abono" {
		t.Errorf("Description = %q", exp.Description)
	}
	if exp.ClientPriceCents != 18750 || exp.CostCents != 9050 {
		t.Errorf("amounts = %d / %d", exp.ClientPriceCents, exp.CostCents)
	}
}

func TestParseCompraMalformed(t *testing.T) {
	cases := []string{
		"compra juan perez abono 187.50", // only one amount
		"compra juan",                    // no full name
		"compra juan perez 187.50 90.50", // no concept
		"compra juan perez abono x y",
	}
	for _, c := range cases {
		if _, ok := parse(t, c).(Malformed); !ok {
			t.Errorf("%q should parse as Malformed, got %T", c, parse(t, c))
		}
	}
}

func TestParseTrabajos(t *testing.T) {
	in := parse(t, "trabajos juan perez poda olivos 80")
	svc, ok := in.(RecordService)
	if !ok {
		t.Fatalf("expected RecordService, got %T", in)
	}
	if svc.Customer != "juan perez" || svc.Description != "poda olivos" || svc.AmountCents != 8000 {
		t.Errorf("unexpected fields: %+v", svc)
	}
}

func TestParseMari(t *testing.T) {
	t.Run("two amounts", func(t *testing.T) {
		in := parse(t, "mari antonio vargas limpieza septiembre 58,65 9,15")
		cl, ok := in.(RecordCleaning)
		if !ok {
			t.Fatalf("expected RecordCleaning, got %T", in)
		}
		if cl.Description != "limpieza septiembre" {
			t.Errorf("Description = %q", cl.Description)
		}
		if cl.ChargedCents != 5865 || cl.ProductCostCents != 915 {
			t.Errorf("amounts = %d / %d", cl.ChargedCents, cl.ProductCostCents)
		}
	})
	t.Run("single amount", func(t *testing.T) {
		in := parse(t, "mari antonio vargas limpieza 49,50")
		cl, ok := in.(RecordCleaning)
		if !ok {
			t.Fatalf("expected RecordCleaning, got %T", in)
		}
		if cl.ChargedCents != 4950 || cl.ProductCostCents != 0 {
			t.Errorf("amounts = %d / %d", cl.ChargedCents, cl.ProductCostCents)
		}
	})
}

func TestParsePago(t *testing.T) {
	in := parse(t, "paga juan perez 50")
	pay, ok := in.(RecordPayment)
	if !ok {
		t.Fatalf("expected RecordPayment, got %T", in)
	}
	if pay.Customer != "juan perez" || pay.AmountCents != 5000 {
		t.Errorf("unexpected fields: %+v", pay)
	}
	if _, ok := parse(t, "pago juan perez 50").(RecordPayment); !ok {
		t.Error("'pago' alias should also parse")
	}
}

func TestParseExtracto(t *testing.T) {
	in := parse(t, "extracto juan perez 2025-09")
	st, ok := in.(RequestStatement)
	if !ok {
		t.Fatalf("expected RequestStatement, got %T", in)
	}
	if st.Customer != "juan perez" || st.Period.Key != "2025-09" {
		t.Errorf("unexpected fields: %+v", st)
	}

	// Period omitted defaults to the current month.
	in = parse(t, "extracto juan perez")
	st, ok = in.(RequestStatement)
	if !ok {
		t.Fatalf("expected RequestStatement, got %T", in)
	}
	if st.Period.Key != "2025-10" {
		t.Errorf("default period = %q", st.Period.Key)
	}
}

func TestSlashCommands(t *testing.T) {
	if sum, ok := parse(t, "/total 10-25").(RequestSummary); !ok || sum.Period.Key != "2025-10" {
		t.Errorf("/total: got %+v", parse(t, "/total 10-25"))
	}
	if sum, ok := parse(t, "/total 09/2025").(RequestSummary); !ok || sum.Period.Key != "2025-09" {
		t.Errorf("/total MM/YYYY: got %+v", parse(t, "/total 09/2025"))
	}
	if srch, ok := parse(t, "/find gasolina").(RequestSearch); !ok || srch.Term != "gasolina" {
		t.Errorf("/find: got %+v", parse(t, "/find gasolina"))
	}
	if _, ok := parse(t, "/find").(Malformed); !ok {
		t.Error("/find without term should be Malformed")
	}
	if exp, ok := parse(t, "/export 10-25").(RequestExport); !ok || exp.Period.Key != "2025-10" {
		t.Errorf("/export: got %+v", parse(t, "/export 10-25"))
	}
	if top, ok := parse(t, "/top 3 octubre").(RequestTop); !ok || top.Limit != 3 || top.Period.Key != "2025-10" {
		t.Errorf("/top: got %+v", parse(t, "/top 3 octubre"))
	}
	if top, ok := parse(t, "/top").(RequestTop); !ok || top.Limit != 5 {
		t.Errorf("/top default: got %+v", parse(t, "/top"))
	}
	if _, ok := parse(t, "/loquesea").(Unknown); !ok {
		t.Error("unknown slash command should be Unknown")
	}
}

func TestParseAddMov(t *testing.T) {
	in := parse(t, "/addmov 24-10-25 juan perez gasolina repsol 60 5")
	exp, ok := in.(RecordExpense)
	if !ok {
		t.Fatalf("expected RecordExpense, got %T", in)
	}
	if exp.Date.IsZero() || exp.Date.Year() != 2025 || exp.Date.Month() != 10 || exp.Date.Day() != 24 {
		t.Errorf("Date = %v", exp.Date)
	}
	if exp.Description != "gasolina repsol" || exp.ClientPriceCents != 6000 || exp.CostCents != 500 {
		t.Errorf("unexpected fields: %+v", exp)
	}
	if _, ok := parse(t, "/addmov ayer juan perez gasolina 60").(Malformed); !ok {
		t.Error("bad date should be Malformed")
	}
}

func TestParseAddMovTrailingStatus(t *testing.T) {
	in := parse(t, "/addmov 24-10-25 juan perez gasolina repsol 60 5 pagado")
	exp, ok := in.(RecordExpense)
	if !ok {
		t.Fatalf("expected RecordExpense, got %T", in)
	}
	if exp.Description != "gasolina repsol" || exp.ClientPriceCents != 6000 || exp.CostCents != 500 {
		t.Errorf("unexpected fields: %+v", exp)
	}

	// Status after a single amount, no cost.
	in = parse(t, "/addmov 24-10-25 juan perez gasolina 60 pendiente")
	exp, ok = in.(RecordExpense)
	if !ok {
		t.Fatalf("expected RecordExpense, got %T", in)
	}
	if exp.ClientPriceCents != 6000 || exp.CostCents != 0 {
		t.Errorf("unexpected fields: %+v", exp)
	}

	if _, ok := parse(t, "/addmov 24-10-25 juan perez gasolina pagado").(Malformed); !ok {
		t.Error("status without amount should still be Malformed")
	}
}

func TestKeywordQueryCommands(t *testing.T) {
	if sum, ok := parse(t, "resumen octubre").(RequestSummary); !ok || sum.Period.Key != "2025-10" {
		t.Errorf("resumen: got %+v", parse(t, "resumen octubre"))
	}
	if sum, ok := parse(t, "total").(RequestSummary); !ok || sum.Period.Key != "2025-10" {
		t.Errorf("total default period: got %+v", parse(t, "total"))
	}
	if top, ok := parse(t, "top 3 octubre").(RequestTop); !ok || top.Limit != 3 || top.Period.Key != "2025-10" {
		t.Errorf("top: got %+v", parse(t, "top 3 octubre"))
	}
	if exp, ok := parse(t, "exporta 10-25").(RequestExport); !ok || exp.Period.Key != "2025-10" {
		t.Errorf("exporta: got %+v", parse(t, "exporta 10-25"))
	}
	if srch, ok := parse(t, "busca gasolina").(RequestSearch); !ok || srch.Term != "gasolina" {
		t.Errorf("busca: got %+v", parse(t, "busca gasolina"))
	}
}

func TestUnknownFallback(t *testing.T) {
	for _, in := range []string{"patatas fritas", "compraventa de algo", ""} {
		if _, ok := parse(t, in).(Unknown); !ok {
			t.Errorf("%q should parse as Unknown, got %T", in, parse(t, in))
		}
	}
}

func TestIsPosting(t *testing.T) {
	if !IsPosting(RecordExpense{}) || !IsPosting(RecordPayment{}) {
		t.Error("posting intents misclassified")
	}
	if IsPosting(RequestStatement{}) || IsPosting(Confirm{}) {
		t.Error("non-posting intents misclassified")
	}
}
