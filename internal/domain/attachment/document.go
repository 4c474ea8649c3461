package attachment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/pdfonsubmit/internal/domain/shared"
)

// DocumentItem is one line of a submitted document
type DocumentItem struct {
	ItemCode    string          `json:"item_code"`
	ItemName    string          `json:"item_name"`
	Description string          `json:"description,omitempty"`
	Qty         decimal.Decimal `json:"qty"`
	UOM         string          `json:"uom,omitempty"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// SubmittedDocument is the snapshot of a document taken when the host
// framework reports its submission. Printing works from this snapshot.
type SubmittedDocument struct {
	DocType      DocType           `json:"doctype"`
	Name         string            `json:"name"`
	Customer     string            `json:"customer,omitempty"`
	PartyName    string            `json:"party_name,omitempty"`
	SalesInvoice string            `json:"sales_invoice,omitempty"`
	Company      string            `json:"company,omitempty"`
	PostingDate  *time.Time        `json:"posting_date,omitempty"`
	DueDate      *time.Time        `json:"due_date,omitempty"`
	Currency     string            `json:"currency,omitempty"`
	GrandTotal   decimal.Decimal   `json:"grand_total"`
	Outstanding  decimal.Decimal   `json:"outstanding_amount"`
	Items        []DocumentItem    `json:"items,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`
	SubmittedAt  time.Time         `json:"submitted_at"`
}

// Validate checks the fields every document type needs
func (d *SubmittedDocument) Validate() error {
	if !d.DocType.IsValid() {
		return shared.NewDomainError("INVALID_DOCTYPE", "Unsupported document type: "+string(d.DocType))
	}
	if strings.TrimSpace(d.Name) == "" {
		return shared.NewDomainError("INVALID_DOCUMENT_NAME", "Document name cannot be empty")
	}
	if d.DocType == DocTypeDunning && strings.TrimSpace(d.SalesInvoice) == "" {
		return shared.NewDomainError("INVALID_DUNNING", "Dunning must reference a sales invoice")
	}
	return nil
}

// DirectParty returns the party stored on the document itself.
// Quotations carry it in party_name, invoices, delivery notes and sales
// orders in customer. Dunning has no direct party and returns "".
func (d *SubmittedDocument) DirectParty() string {
	switch d.DocType {
	case DocTypeSalesInvoice, DocTypeDeliveryNote, DocTypeSalesOrder:
		return d.Customer
	case DocTypeQuotation:
		return d.PartyName
	}
	return ""
}
