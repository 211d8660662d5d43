package bot

import (
	"fmt"
	"strings"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/core"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/parser"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/session"
)

const helpText = `📒 Cómo hablarme:

compra <cliente> <concepto> <precio cliente> <coste>
  ej: compra juan perez abono cesped 187.50 90.50

trabajos <cliente> <concepto> <importe>
  ej: trabajos maria poda setos 58,65

mari <cliente> <concepto> <total cobrado> [coste productos]
  ej: mari maria limpieza piscina 58,65 9,15

paga <cliente> <cantidad>
  ej: paga juan perez 50

extracto <cliente> [mes]
  ej: extracto juan perez octubre

Comandos rápidos:
/total [mes] · /find <texto> · /export [mes] · /top [mes]
/addmov <fecha> <cliente> <concepto> <precio> [coste] [pagado]
También valen sin barra: total, resumen, busca, exporta, top

Antes de guardar nada te enseño un resumen y espero tu 'si'.`

func euros(cents int64) string {
	return core.Money{Cents: cents}.Euros()
}

// buildPreview renders the "about to save" message for a posting proposal.
func buildPreview(p session.Pending) string {
	photo := "📸 Sin foto"
	if p.AttachmentRef != "" {
		photo = "📸 Factura incluida"
	}

	switch in := p.Intent.(type) {
	case parser.RecordExpense:
		return strings.Join([]string{
			"📌 A apuntar (sin guardar aún):",
			"",
			"Cliente: " + in.Customer,
			"Tipo: COMPRA",
			"Concepto: " + in.Description,
			"Le cobras: " + euros(in.ClientPriceCents),
			"Te costó: " + euros(in.CostCents),
			"Beneficio: " + euros(in.ClientPriceCents-in.CostCents),
			photo,
			"",
			"¿Lo guardo? (si / no)",
		}, "\n")

	case parser.RecordService:
		return strings.Join([]string{
			"📌 A apuntar (sin guardar aún):",
			"",
			"Cliente: " + in.Customer,
			"Tipo: TRABAJOS",
			"Trabajo: " + in.Description,
			"Importe: " + euros(in.AmountCents),
			"",
			"¿Lo guardo? (si / no)",
		}, "\n")

	case parser.RecordCleaning:
		return strings.Join([]string{
			"📌 A apuntar (sin guardar aún):",
			"",
			"Cliente: " + in.Customer,
			"Tipo: LIMPIEZA",
			"Concepto: " + in.Description,
			"Total cobrado al cliente: " + euros(in.ChargedCents),
			"Productos limpieza: " + euros(in.ProductCostCents),
			"Beneficio: " + euros(in.ChargedCents-in.ProductCostCents),
			photo,
			"",
			"¿Lo guardo? (si / no)",
		}, "\n")

	case parser.RecordPayment:
		return strings.Join([]string{
			"📌 A apuntar (sin guardar aún):",
			"",
			"Cliente: " + in.Customer,
			"Tipo: PAGO DEL CLIENTE",
			"Ha pagado: " + euros(in.AmountCents),
			"",
			"¿Lo guardo? (si / no)",
		}, "\n")
	}

	return fmt.Sprintf("Voy a apuntar algo (%T), ¿confirmas? (si / no)", p.Intent)
}
