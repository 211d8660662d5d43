package parser

import (
	"time"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/core"
)

// Intent is the structured result of parsing one inbound message. It is a
// closed set: every variant is declared here and the orchestrator switches
// over all of them, so an unhandled case is a compile-visible gap rather
// than a silent fallthrough.
type Intent interface {
	isIntent()
}

type (
	// Greeting is a hello-style opener.
	Greeting struct{}

	// Help asks for the usage text.
	Help struct{}

	// Confirm accepts the sender's pending posting.
	Confirm struct{}

	// Cancel discards the sender's pending posting.
	Cancel struct{}

	// RecordExpense is a resale purchase: the customer is charged
	// ClientPriceCents, the operator paid CostCents.
	RecordExpense struct {
		Customer         string
		Description      string
		ClientPriceCents int64
		CostCents        int64
		// Date is set only for /addmov; zero means "now".
		Date time.Time
	}

	// RecordService is work billed at full profit.
	RecordService struct {
		Customer    string
		Description string
		AmountCents int64
	}

	// RecordCleaning is a cleaning job: charged total plus an optional
	// product cost.
	RecordCleaning struct {
		Customer         string
		Description      string
		ChargedCents     int64
		ProductCostCents int64
	}

	// RecordPayment is money received from the customer.
	RecordPayment struct {
		Customer    string
		AmountCents int64
	}

	// RequestStatement asks for a customer's monthly statement.
	RequestStatement struct {
		Customer string
		Period   core.Period
	}

	// RequestSummary asks for the operator-wide totals of a month.
	RequestSummary struct {
		Period core.Period
	}

	// RequestSearch asks for movements whose description matches a term.
	RequestSearch struct {
		Term string
	}

	// RequestExport asks for the CSV export of a month.
	RequestExport struct {
		Period core.Period
	}

	// RequestTop asks for the customers billed the most in a month.
	RequestTop struct {
		Period core.Period
		Limit  int
	}

	// Unknown is anything no rule recognized.
	Unknown struct{}

	// Malformed is a recognized command missing or mangling required
	// fields. Reason and Usage are already user-readable.
	Malformed struct {
		Reason string
		Usage  string
	}
)

func (Greeting) isIntent()         {}
func (Help) isIntent()             {}
func (Confirm) isIntent()          {}
func (Cancel) isIntent()           {}
func (RecordExpense) isIntent()    {}
func (RecordService) isIntent()    {}
func (RecordCleaning) isIntent()   {}
func (RecordPayment) isIntent()    {}
func (RequestStatement) isIntent() {}
func (RequestSummary) isIntent()   {}
func (RequestSearch) isIntent()    {}
func (RequestExport) isIntent()    {}
func (RequestTop) isIntent()       {}
func (Unknown) isIntent()          {}
func (Malformed) isIntent()        {}

// IsPosting reports whether the intent proposes a ledger write and therefore
// goes through the pending-confirmation flow.
func IsPosting(in Intent) bool {
	switch in.(type) {
	case RecordExpense, RecordService, RecordCleaning, RecordPayment:
		return true
	}
	return false
}
