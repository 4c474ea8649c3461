// Package i18n translates document type labels used for folder names and
// print titles.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/erp/pdfonsubmit/internal/domain/attachment"
)

var translations = map[language.Tag]map[attachment.DocType]string{
	language.German: {
		attachment.DocTypeSalesInvoice: "Ausgangsrechnung",
		attachment.DocTypeDeliveryNote: "Lieferschein",
		attachment.DocTypeSalesOrder:   "Kundenauftrag",
		attachment.DocTypeQuotation:    "Angebot",
		attachment.DocTypeDunning:      "Mahnung",
	},
	language.French: {
		attachment.DocTypeSalesInvoice: "Facture de vente",
		attachment.DocTypeDeliveryNote: "Bon de livraison",
		attachment.DocTypeSalesOrder:   "Commande client",
		attachment.DocTypeQuotation:    "Devis",
		attachment.DocTypeDunning:      "Relance",
	},
	language.Spanish: {
		attachment.DocTypeSalesInvoice: "Factura de venta",
		attachment.DocTypeDeliveryNote: "Nota de entrega",
		attachment.DocTypeSalesOrder:   "Orden de venta",
		attachment.DocTypeQuotation:    "Cotización",
		attachment.DocTypeDunning:      "Reclamación",
	},
}

// Labeler returns the label of a document type in one language
type Labeler struct {
	tag     language.Tag
	printer *message.Printer
}

// NewLabeler creates a labeler for lang (a BCP 47 tag such as "de" or
// "en-US"). Unknown or unsupported languages fall back to English.
func NewLabeler(lang string) *Labeler {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	supported := []language.Tag{language.English}
	for tag, labels := range translations {
		supported = append(supported, tag)
		for docType, label := range labels {
			_ = builder.SetString(tag, docType.String(), label)
		}
	}

	tag := language.English
	if parsed, err := language.Parse(lang); err == nil {
		matcher := language.NewMatcher(supported)
		_, idx, conf := matcher.Match(parsed)
		if conf != language.No {
			tag = supported[idx]
		}
	}

	return &Labeler{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builder)),
	}
}

// Label returns the translated label for docType
func (l *Labeler) Label(docType attachment.DocType) string {
	return l.printer.Sprintf(docType.String())
}

// Language returns the language labels are produced in
func (l *Labeler) Language() language.Tag {
	return l.tag
}
