package attachment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
	"go.uber.org/zap"
)

// Ensure InvoicePartyLookup implements PartyLookup
var _ PartyLookup = (*InvoicePartyLookup)(nil)

// InvoicePartyLookup finds the customer of a Sales Invoice, first in the
// local document snapshots and then, when configured, through the host API.
type InvoicePartyLookup struct {
	docs   domain.DocumentRepository
	host   HostDocumentClient
	logger *zap.Logger
}

// NewInvoicePartyLookup creates a lookup. host may be nil.
func NewInvoicePartyLookup(docs domain.DocumentRepository, host HostDocumentClient, logger *zap.Logger) *InvoicePartyLookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoicePartyLookup{docs: docs, host: host, logger: logger}
}

// InvoiceCustomer returns the customer of the named Sales Invoice
func (l *InvoicePartyLookup) InvoiceCustomer(ctx context.Context, invoiceName string) (string, error) {
	if strings.TrimSpace(invoiceName) == "" {
		return "", shared.NewDomainError("INVALID_INPUT", "Sales invoice name is required")
	}

	doc, err := l.docs.FindByName(ctx, domain.DocTypeSalesInvoice, invoiceName)
	switch {
	case err == nil && doc.Customer != "":
		return doc.Customer, nil
	case err != nil && !errors.Is(err, shared.ErrNotFound):
		l.logger.Warn("failed to read invoice snapshot",
			zap.String("sales_invoice", invoiceName),
			zap.Error(err))
	}

	if l.host == nil {
		return "", fmt.Errorf("customer of sales invoice %s: %w", invoiceName, shared.ErrNotFound)
	}

	customer, err := l.host.GetValue(ctx, domain.DocTypeSalesInvoice.String(), invoiceName, "customer")
	if err != nil {
		return "", fmt.Errorf("failed to fetch customer of sales invoice %s: %w", invoiceName, err)
	}
	if customer == "" {
		return "", fmt.Errorf("customer of sales invoice %s: %w", invoiceName, shared.ErrNotFound)
	}
	return customer, nil
}
