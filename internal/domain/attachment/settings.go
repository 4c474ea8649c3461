package attachment

import "time"

// SettingsID is the primary key of the singleton settings row
const SettingsID = 1

// Settings is the singleton holding one flag per document type.
// A flag that is off means submitting that document type does nothing.
type Settings struct {
	SalesInvoice bool
	DeliveryNote bool
	SalesOrder   bool
	Quotation    bool
	Dunning      bool
	UpdatedAt    time.Time
}

// Enabled reports whether PDF generation is switched on for the document type
func (s *Settings) Enabled(docType DocType) bool {
	if s == nil {
		return false
	}
	switch docType {
	case DocTypeSalesInvoice:
		return s.SalesInvoice
	case DocTypeDeliveryNote:
		return s.DeliveryNote
	case DocTypeSalesOrder:
		return s.SalesOrder
	case DocTypeQuotation:
		return s.Quotation
	case DocTypeDunning:
		return s.Dunning
	}
	return false
}

// Set changes the flag for a document type
func (s *Settings) Set(docType DocType, enabled bool) {
	switch docType {
	case DocTypeSalesInvoice:
		s.SalesInvoice = enabled
	case DocTypeDeliveryNote:
		s.DeliveryNote = enabled
	case DocTypeSalesOrder:
		s.SalesOrder = enabled
	case DocTypeQuotation:
		s.Quotation = enabled
	case DocTypeDunning:
		s.Dunning = enabled
	default:
		return
	}
	s.UpdatedAt = time.Now()
}

// Flags returns the settings as a map keyed by settings field
func (s *Settings) Flags() map[string]bool {
	flags := make(map[string]bool, len(AllDocTypes()))
	for _, d := range AllDocTypes() {
		flags[d.SettingsField()] = s.Enabled(d)
	}
	return flags
}
