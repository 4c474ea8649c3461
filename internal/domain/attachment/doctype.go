package attachment

import "strings"

// DocType identifies a submittable business document type.
// The value is the label the host framework uses for the type.
type DocType string

const (
	DocTypeSalesInvoice DocType = "Sales Invoice"
	DocTypeDeliveryNote DocType = "Delivery Note"
	DocTypeSalesOrder   DocType = "Sales Order"
	DocTypeQuotation    DocType = "Quotation"
	DocTypeDunning      DocType = "Dunning"
)

// IsValid checks if the DocType is a valid value
func (d DocType) IsValid() bool {
	switch d {
	case DocTypeSalesInvoice, DocTypeDeliveryNote, DocTypeSalesOrder, DocTypeQuotation, DocTypeDunning:
		return true
	}
	return false
}

// String returns the string representation of DocType
func (d DocType) String() string {
	return string(d)
}

// SettingsField returns the settings flag key that gates this document type
func (d DocType) SettingsField() string {
	return strings.ReplaceAll(strings.ToLower(string(d)), " ", "_")
}

// Slug returns the URL path segment for this document type
func (d DocType) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(d)), " ", "-")
}

// AllDocTypes returns all valid DocType values
func AllDocTypes() []DocType {
	return []DocType{
		DocTypeSalesInvoice, DocTypeDeliveryNote, DocTypeSalesOrder, DocTypeQuotation, DocTypeDunning,
	}
}

// ParseDocType resolves a label ("Sales Invoice"), settings key
// ("sales_invoice") or slug ("sales-invoice") to a DocType.
func ParseDocType(s string) (DocType, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, d := range AllDocTypes() {
		if key == strings.ToLower(string(d)) || key == d.SettingsField() || key == d.Slug() {
			return d, true
		}
	}
	return "", false
}
