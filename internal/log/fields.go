package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldSender      = "sender"
	FieldIntent      = "intent"
	FieldCustomer    = "customer"
	FieldCustomerID  = "customer_id"
	FieldMovementID  = "movement_id"
	FieldKind        = "kind"
	FieldAmountCents = "amount_cents"
	FieldPeriod      = "period"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentWebhook   = "webhook"
	ComponentBot       = "bot"
	ComponentParser    = "parser"
	ComponentLedger    = "ledger"
	ComponentStatement = "statement"
	ComponentStorage   = "storage"
	ComponentWhatsApp  = "whatsapp"
	ComponentAMQP      = "amqp"
	ComponentFeeJob    = "feejob"
	ComponentWorker    = "worker"
	ComponentReports   = "reports"
)

// Operations defines standard operation names
const (
	OpParse     = "parse"
	OpPost      = "post"
	OpStatement = "statement"
	OpSummary   = "summary"
	OpExport    = "export"
	OpSend      = "send"
	OpApplyFees = "apply_fees"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)
