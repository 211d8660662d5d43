// Package parser turns raw chat messages into tagged intents. Parsing is a
// pure function: no I/O, no clock reads beyond the "now" the caller passes
// in for period resolution.
//
// Classification order is a contract (several rules could match the same
// text): confirmation tokens, cancellation tokens, help, greetings, slash
// commands, posting commands, query commands, Unknown. Each rule is its own
// function returning (Intent, matched).
package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/core"
)

// Parser resolves period phrases against a fixed operator zone.
type Parser struct {
	loc *time.Location
}

func New(loc *time.Location) *Parser {
	return &Parser{loc: loc}
}

// Parse classifies one message. now anchors relative period phrases such as
// "este mes".
func (p *Parser) Parse(text string, now time.Time) Intent {
	msg := normalize(text)
	if msg == "" {
		return Unknown{}
	}

	rules := []func(string, time.Time) (Intent, bool){
		matchConfirm,
		matchCancel,
		matchHelp,
		matchGreeting,
		p.matchSlashCommand,
		p.matchPostingCommand,
		p.matchQueryCommand,
	}
	for _, rule := range rules {
		if in, ok := rule(msg, now); ok {
			return in
		}
	}
	return Unknown{}
}

// normalize trims and collapses whitespace. Case and diacritic folding
// happen per-keyword during classification so extracted names and concepts
// keep their original form.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// keyword folds a token for matching: lowercased, accents stripped.
func keyword(s string) string {
	return core.FoldDiacritics(strings.ToLower(s))
}

var confirmTokens = map[string]bool{
	"si": true, "vale": true, "ok": true, "confirmo": true, "correcto": true,
}

var cancelTokens = map[string]bool{
	"no": true, "nanai": true, "cancela": true, "cancelar": true,
}

var helpTokens = map[string]bool{
	"ayuda": true, "help": true, "ayudame": true,
}

var greetingPrefixes = []string{"hola", "buenas", "hey", "holi", "que tal"}

// Optional trailing status markers tolerated on the dated backfill command.
var statusTokens = map[string]bool{
	"pagado": true, "pagada": true, "pendiente": true,
}

func matchConfirm(msg string, _ time.Time) (Intent, bool) {
	if confirmTokens[keyword(msg)] {
		return Confirm{}, true
	}
	return nil, false
}

func matchCancel(msg string, _ time.Time) (Intent, bool) {
	if cancelTokens[keyword(msg)] {
		return Cancel{}, true
	}
	return nil, false
}

func matchHelp(msg string, _ time.Time) (Intent, bool) {
	if helpTokens[keyword(msg)] {
		return Help{}, true
	}
	return nil, false
}

func matchGreeting(msg string, _ time.Time) (Intent, bool) {
	folded := keyword(msg)
	for _, prefix := range greetingPrefixes {
		if folded == prefix || strings.HasPrefix(folded, prefix+" ") {
			return Greeting{}, true
		}
	}
	return nil, false
}

func (p *Parser) matchSlashCommand(msg string, now time.Time) (Intent, bool) {
	if !strings.HasPrefix(msg, "/") {
		return nil, false
	}
	cmd, rest := splitCommand(msg[1:])
	switch keyword(cmd) {
	case "total":
		return RequestSummary{Period: core.ResolvePeriod(rest, now, p.loc)}, true
	case "find":
		if strings.TrimSpace(rest) == "" {
			return Malformed{
				Reason: "falta el texto a buscar",
				Usage:  "/find <texto>",
			}, true
		}
		return RequestSearch{Term: strings.TrimSpace(rest)}, true
	case "export":
		return RequestExport{Period: core.ResolvePeriod(rest, now, p.loc)}, true
	case "top":
		return p.parseTop(rest, now), true
	case "addmov":
		return p.parseAddMov(rest), true
	default:
		return Unknown{}, true
	}
}

func (p *Parser) matchPostingCommand(msg string, _ time.Time) (Intent, bool) {
	cmd, rest := splitCommand(msg)
	switch keyword(cmd) {
	case "compra":
		return parseCompra(rest), true
	case "trabajos":
		return parseTrabajos(rest), true
	case "mari":
		return parseMari(rest), true
	case "paga", "pago":
		return parsePago(rest), true
	default:
		return nil, false
	}
}

func (p *Parser) matchQueryCommand(msg string, now time.Time) (Intent, bool) {
	cmd, rest := splitCommand(msg)
	switch keyword(cmd) {
	case "extracto":
		return p.parseExtracto(rest, now), true
	case "total", "resumen":
		return RequestSummary{Period: core.ResolvePeriod(rest, now, p.loc)}, true
	case "top":
		return p.parseTop(rest, now), true
	case "exporta", "export":
		return RequestExport{Period: core.ResolvePeriod(rest, now, p.loc)}, true
	case "busca", "buscar":
		if strings.TrimSpace(rest) == "" {
			return Malformed{
				Reason: "falta el texto a buscar",
				Usage:  "busca <texto>",
			}, true
		}
		return RequestSearch{Term: strings.TrimSpace(rest)}, true
	default:
		return nil, false
	}
}

func splitCommand(msg string) (cmd, rest string) {
	if i := strings.IndexByte(msg, ' '); i >= 0 {
		return msg[:i], msg[i+1:]
	}
	return msg, ""
}

// splitName takes the first two words as "nombre apellido" and returns the
// remainder. Customer names are always two words in this household.
func splitName(rest string) (name, remainder string, ok bool) {
	parts := strings.Fields(rest)
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0] + " " + parts[1], strings.Join(parts[2:], " "), true
}

// trailingAmounts strips up to max numeric tokens from the end of parts,
// greedy right-to-left, stopping at the first non-numeric token. With two
// amounts present, the leftmost of the pair is always the customer-facing
// price. Returns the remaining description words and the parsed cents in
// left-to-right order.
func trailingAmounts(parts []string, max int) (desc []string, cents []int64) {
	n := len(parts)
	for n > 0 && len(cents) < max {
		c, err := core.ParseAmountCents(parts[n-1])
		if err != nil {
			break
		}
		cents = append([]int64{c}, cents...)
		n--
	}
	return parts[:n], cents
}

// compra <nombre> <apellido> <concepto...> <precioCliente> <precioCoste>
func parseCompra(rest string) Intent {
	const usage = "compra <nombre> <apellido> <concepto> <precioCliente> <precioCoste>"
	name, remainder, ok := splitName(rest)
	if !ok {
		return Malformed{Reason: "falta el nombre del cliente", Usage: usage}
	}
	desc, cents := trailingAmounts(strings.Fields(remainder), 2)
	if len(cents) < 2 {
		return Malformed{Reason: "importes no válidos en compra", Usage: usage}
	}
	if len(desc) == 0 {
		return Malformed{Reason: "falta el concepto", Usage: usage}
	}
	return RecordExpense{
		Customer:         name,
		Description:      strings.Join(desc, " "),
		ClientPriceCents: cents[0],
		CostCents:        cents[1],
	}
}

// trabajos <nombre> <apellido> <concepto...> <importe>
func parseTrabajos(rest string) Intent {
	const usage = "trabajos <nombre> <apellido> <concepto> <importe>"
	name, remainder, ok := splitName(rest)
	if !ok {
		return Malformed{Reason: "falta el nombre del cliente", Usage: usage}
	}
	desc, cents := trailingAmounts(strings.Fields(remainder), 1)
	if len(cents) < 1 {
		return Malformed{Reason: "importe no válido en trabajos", Usage: usage}
	}
	if len(desc) == 0 {
		return Malformed{Reason: "falta el concepto", Usage: usage}
	}
	return RecordService{
		Customer:    name,
		Description: strings.Join(desc, " "),
		AmountCents: cents[0],
	}
}

// mari <nombre> <apellido> <concepto...> <totalCobrado> [costeProductos]
func parseMari(rest string) Intent {
	const usage = "mari <nombre> <apellido> <concepto> <totalCobrado> [costeProductos]"
	name, remainder, ok := splitName(rest)
	if !ok {
		return Malformed{Reason: "falta el nombre del cliente", Usage: usage}
	}
	desc, cents := trailingAmounts(strings.Fields(remainder), 2)
	if len(cents) == 0 {
		return Malformed{Reason: "importes no válidos en mari", Usage: usage}
	}
	if len(desc) == 0 {
		// A lone number was the charged total and there is no concept left.
		return Malformed{Reason: "falta el concepto", Usage: usage}
	}
	in := RecordCleaning{
		Customer:     name,
		Description:  strings.Join(desc, " "),
		ChargedCents: cents[0],
	}
	if len(cents) == 2 {
		in.ProductCostCents = cents[1]
	}
	return in
}

// paga <nombre> <apellido> <cantidad>
func parsePago(rest string) Intent {
	const usage = "paga <nombre> <apellido> <cantidad>"
	name, remainder, ok := splitName(rest)
	if !ok {
		return Malformed{Reason: "falta el nombre del cliente", Usage: usage}
	}
	cents, err := core.ParseAmountCents(remainder)
	if err != nil {
		return Malformed{Reason: "cantidad no válida en paga", Usage: usage}
	}
	return RecordPayment{Customer: name, AmountCents: cents}
}

// extracto <nombre> <apellido> [periodo]
func (p *Parser) parseExtracto(rest string, now time.Time) Intent {
	const usage = "extracto <nombre> <apellido> [2025-10]"
	name, remainder, ok := splitName(rest)
	if !ok {
		return Malformed{Reason: "falta el nombre del cliente", Usage: usage}
	}
	return RequestStatement{
		Customer: name,
		Period:   core.ResolvePeriod(remainder, now, p.loc),
	}
}

// /top [n] [periodo]
func (p *Parser) parseTop(rest string, now time.Time) Intent {
	limit := 5
	fields := strings.Fields(rest)
	if len(fields) > 0 {
		if n, err := strconv.Atoi(fields[0]); err == nil && n > 0 {
			limit = n
			fields = fields[1:]
		}
	}
	return RequestTop{
		Period: core.ResolvePeriod(strings.Join(fields, " "), now, p.loc),
		Limit:  limit,
	}
}

// /addmov <dd-mm-yy> <nombre> <apellido> <concepto...> <importe> [coste] [estado]
func (p *Parser) parseAddMov(rest string) Intent {
	const usage = "/addmov <24-10-25> <nombre> <apellido> <concepto> <importe> [coste] [pagado]"
	fields := strings.Fields(rest)
	if len(fields) < 1 {
		return Malformed{Reason: "falta la fecha", Usage: usage}
	}
	date, err := time.ParseInLocation("2-1-06", fields[0], p.loc)
	if err != nil {
		return Malformed{Reason: "fecha no válida (usa día-mes-año, ej. 24-10-25)", Usage: usage}
	}
	name, remainder, ok := splitName(strings.Join(fields[1:], " "))
	if !ok {
		return Malformed{Reason: "falta el nombre del cliente", Usage: usage}
	}
	parts := strings.Fields(remainder)
	// A status word after the amounts would stop the right-to-left scan, so
	// it comes off first.
	if len(parts) > 0 && statusTokens[keyword(parts[len(parts)-1])] {
		parts = parts[:len(parts)-1]
	}
	desc, cents := trailingAmounts(parts, 2)
	if len(cents) == 0 {
		return Malformed{Reason: "importe no válido", Usage: usage}
	}
	if len(desc) == 0 {
		return Malformed{Reason: "falta el concepto", Usage: usage}
	}
	in := RecordExpense{
		Customer:         name,
		Description:      strings.Join(desc, " "),
		ClientPriceCents: cents[0],
		Date:             date,
	}
	if len(cents) == 2 {
		in.CostCents = cents[1]
	}
	return in
}
