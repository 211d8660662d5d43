// Package bot sequences one inbound chat message through the parser, the
// per-sender pending-confirmation slot, the ledger and the statement
// aggregator, and renders every outcome as a Spanish chat reply. Nothing
// escapes HandleMessage as a user-visible crash: every error becomes a
// message back to the sender.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/core"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/ledger"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/log"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/parser"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/reports"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/session"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/statement"
)

// Channel delivers a reply to a sender.
type Channel interface {
	Send(ctx context.Context, to, text string) error
}

type Bot struct {
	parser     *parser.Parser
	ledger     *ledger.Service
	aggregator *statement.Aggregator
	sessions   session.Store
	channel    Channel
	sink       reports.Sink
	logger     *log.Logger
}

func New(p *parser.Parser, svc *ledger.Service, agg *statement.Aggregator, sessions session.Store, channel Channel, sink reports.Sink, logger *log.Logger) *Bot {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Bot{
		parser:     p,
		ledger:     svc,
		aggregator: agg,
		sessions:   sessions,
		channel:    channel,
		sink:       sink,
		logger:     logger.WithComponent(log.ComponentBot),
	}
}

// HandleMessage processes one inbound message. attachmentRef is non-empty
// when the message arrived as a photo with caption; it rides along with the
// pending posting so the receipt ends up on the movement.
func (b *Bot) HandleMessage(ctx context.Context, sender, text, attachmentRef string) error {
	intent := b.parser.Parse(text, time.Now())

	b.logger.InfoContext(ctx, "Message received",
		log.FieldSender, sender,
		log.FieldIntent, fmt.Sprintf("%T", intent))

	switch in := intent.(type) {
	case parser.Greeting:
		return b.send(ctx, sender, "Hola 👋 Soy tu bot de cuentas.\nEscribe 'ayuda' para ver cómo hablarme.")

	case parser.Help:
		return b.send(ctx, sender, helpText)

	case parser.Confirm:
		return b.confirmPending(ctx, sender)

	case parser.Cancel:
		b.sessions.Delete(sender)
		return b.send(ctx, sender, "❌ Cancelado. No he guardado nada.")

	case parser.RecordExpense, parser.RecordService, parser.RecordCleaning, parser.RecordPayment:
		pending := session.Pending{Intent: intent, AttachmentRef: attachmentRef}
		pending.Preview = buildPreview(pending)
		b.sessions.Put(sender, pending)
		return b.send(ctx, sender, pending.Preview)

	case parser.RequestStatement:
		return b.sendStatement(ctx, sender, in)

	case parser.RequestSummary:
		summary, err := b.aggregator.PeriodSummary(ctx, in.Period)
		if err != nil {
			return b.sendInternalError(ctx, sender, err)
		}
		return b.send(ctx, sender, statement.RenderSummary(summary))

	case parser.RequestSearch:
		hits, err := b.aggregator.Search(ctx, in.Term, 20)
		if err != nil {
			return b.sendInternalError(ctx, sender, err)
		}
		return b.send(ctx, sender, statement.RenderSearch(in.Term, hits))

	case parser.RequestExport:
		return b.sendExport(ctx, sender, in)

	case parser.RequestTop:
		rows, err := b.aggregator.Top(ctx, in.Period, in.Limit)
		if err != nil {
			return b.sendInternalError(ctx, sender, err)
		}
		return b.send(ctx, sender, statement.RenderTop(in.Period, rows))

	case parser.Malformed:
		msg := fmt.Sprintf("❌ %s\n\nEjemplo: %s\n\nEscribe 'ayuda' para ver más.", in.Reason, in.Usage)
		return b.send(ctx, sender, msg)

	case parser.Unknown:
		return b.send(ctx, sender, "No te he entendido 🤔\nEscribe 'ayuda' para ver ejemplos.")
	}

	return b.send(ctx, sender, "No te he entendido 🤔\nEscribe 'ayuda' para ver ejemplos.")
}

// confirmPending executes the sender's stored proposal. The slot clears on
// success and on permanent errors; transient store failures keep it so a
// second "si" can retry.
func (b *Bot) confirmPending(ctx context.Context, sender string) error {
	pending, ok := b.sessions.Get(sender)
	if !ok {
		return b.send(ctx, sender, "No tengo nada pendiente para guardar ahora mismo.")
	}

	var (
		res    core.PostResult
		err    error
		header = "✅ Apuntado."
	)

	switch in := pending.Intent.(type) {
	case parser.RecordExpense:
		res, err = b.ledger.PostExpense(ctx, in.Customer, in.Description, in.ClientPriceCents, in.CostCents, in.Date, pending.AttachmentRef)
	case parser.RecordService:
		res, err = b.ledger.PostService(ctx, in.Customer, in.Description, in.AmountCents)
	case parser.RecordCleaning:
		res, err = b.ledger.PostCleaning(ctx, in.Customer, in.Description, in.ChargedCents, in.ProductCostCents, pending.AttachmentRef)
	case parser.RecordPayment:
		header = "✅ Pago registrado."
		res, err = b.ledger.PostPayment(ctx, in.Customer, in.AmountCents)
	default:
		b.sessions.Delete(sender)
		return b.send(ctx, sender, "No tengo nada pendiente para guardar ahora mismo.")
	}

	switch {
	case err == nil:
		b.sessions.Delete(sender)
		return b.send(ctx, sender, fmt.Sprintf("%s\nSaldo actual del cliente: %s", header, res.NewBalance.Euros()))

	case errors.Is(err, core.ErrCustomerNotFound):
		b.sessions.Delete(sender)
		return b.send(ctx, sender, customerNotFoundMessage(pending.Intent))

	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrCustomerNotResolvable):
		b.sessions.Delete(sender)
		return b.send(ctx, sender, "❌ Los datos no son válidos. Escribe 'ayuda' para ver ejemplos.")

	default:
		b.logger.ErrorContext(ctx, "Posting failed",
			log.FieldSender, sender,
			log.FieldError, err.Error())
		return b.send(ctx, sender, "⚠️ No he podido guardarlo. Responde 'si' otra vez en un momento.")
	}
}

func (b *Bot) sendStatement(ctx context.Context, sender string, in parser.RequestStatement) error {
	st, err := b.aggregator.MonthlyStatement(ctx, in.Customer, in.Period)
	if errors.Is(err, core.ErrCustomerNotFound) {
		return b.send(ctx, sender, fmt.Sprintf("No existe el cliente %q.", in.Customer))
	}
	if err != nil {
		return b.sendInternalError(ctx, sender, err)
	}

	if err := b.send(ctx, sender, statement.RenderChat(st)); err != nil {
		return err
	}

	// The file link is best effort; the chat text already answered.
	data, err := statement.StatementCSV(st)
	if err == nil {
		name := fmt.Sprintf("extracto-%s-%s.csv", core.NormalizeName(st.Customer.Name), st.Period.Key)
		var url string
		url, err = b.sink.Store(ctx, name, data)
		if err == nil {
			return b.send(ctx, sender, "🧾 Extracto en fichero listo.\nPuedes abrirlo o reenviarlo:\n"+url)
		}
	}
	b.logger.ErrorContext(ctx, "Statement export failed",
		log.FieldSender, sender,
		log.FieldError, err.Error())
	return b.send(ctx, sender, "⚠️ He podido calcular el extracto, pero no he podido generar el fichero.")
}

func (b *Bot) sendExport(ctx context.Context, sender string, in parser.RequestExport) error {
	data, err := b.aggregator.ExportCSV(ctx, in.Period)
	if err != nil {
		return b.sendInternalError(ctx, sender, err)
	}

	url, err := b.sink.Store(ctx, fmt.Sprintf("movimientos-%s.csv", in.Period.Key), data)
	if err != nil {
		return b.sendInternalError(ctx, sender, err)
	}

	return b.send(ctx, sender, fmt.Sprintf("📁 Export de %s listo:\n%s", in.Period.Key, url))
}

func (b *Bot) sendInternalError(ctx context.Context, sender string, err error) error {
	b.logger.ErrorContext(ctx, "Operation failed",
		log.FieldSender, sender,
		log.FieldError, err.Error())
	return b.send(ctx, sender, "⚠️ Algo ha fallado por mi parte. Inténtalo otra vez en un momento.")
}

func (b *Bot) send(ctx context.Context, to, text string) error {
	if err := b.channel.Send(ctx, to, text); err != nil {
		b.logger.ErrorContext(ctx, "Reply delivery failed",
			log.FieldSender, to,
			log.FieldError, err.Error())
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

func customerNotFoundMessage(in parser.Intent) string {
	name := "ese cliente"
	if pay, ok := in.(parser.RecordPayment); ok {
		name = fmt.Sprintf("%q", pay.Customer)
	}
	return fmt.Sprintf("No existe el cliente %s. Revisa el nombre antes de apuntar el pago.", name)
}
