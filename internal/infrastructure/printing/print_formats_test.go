package printing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/pdfonsubmit/internal/domain/attachment"
)

func sampleDocument(docType attachment.DocType) *attachment.SubmittedDocument {
	posting := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	return &attachment.SubmittedDocument{
		DocType:      docType,
		Name:         "DOC 0001/A",
		Customer:     "Acme",
		PartyName:    "Acme Lead",
		SalesInvoice: "SINV-0001",
		Company:      "Example GmbH",
		PostingDate:  &posting,
		Currency:     "EUR",
		GrandTotal:   decimal.RequireFromString("1190"),
		Outstanding:  decimal.RequireFromString("190"),
		Items: []attachment.DocumentItem{
			{
				ItemCode: "WIDGET",
				ItemName: "Widget",
				Qty:      decimal.RequireFromString("2"),
				Rate:     decimal.RequireFromString("500"),
				Amount:   decimal.RequireFromString("1000"),
			},
		},
		Fields: map[string]string{"valid_till": "2024-06-01"},
	}
}

func TestPrintFormats_EmbeddedDefaults(t *testing.T) {
	formats, err := NewPrintFormats(NewTemplateEngine())
	require.NoError(t, err)

	for _, docType := range attachment.AllDocTypes() {
		t.Run(docType.String(), func(t *testing.T) {
			pf, ok := formats.Default(docType)
			require.True(t, ok)
			assert.Equal(t, PaperSizeA4, pf.PaperSize)
			assert.True(t, pf.Margins.Valid())

			req, err := formats.Render(context.Background(), sampleDocument(docType))
			require.NoError(t, err)
			assert.Contains(t, req.HTML, "DOC 0001/A")
			assert.Contains(t, req.HTML, "Example GmbH")
			assert.Equal(t, docType.String()+" DOC 0001/A", req.Title)
		})
	}
}

func TestPrintFormats_RenderContent(t *testing.T) {
	formats, err := NewPrintFormats(nil)
	require.NoError(t, err)

	req, err := formats.Render(context.Background(), sampleDocument(attachment.DocTypeSalesInvoice))
	require.NoError(t, err)
	assert.Contains(t, req.HTML, "€1,190.00")
	assert.Contains(t, req.HTML, "Outstanding amount: €190.00")
	assert.Contains(t, req.HTML, "2024-05-02")
	assert.NotEmpty(t, req.FooterHTML)

	req, err = formats.Render(context.Background(), sampleDocument(attachment.DocTypeQuotation))
	require.NoError(t, err)
	assert.Contains(t, req.HTML, "Acme Lead")
	assert.Contains(t, req.HTML, "Valid until: 2024-06-01")

	req, err = formats.Render(context.Background(), sampleDocument(attachment.DocTypeDunning))
	require.NoError(t, err)
	assert.Contains(t, req.HTML, "SINV-0001")
	assert.Contains(t, req.HTML, "Please settle the amount within 14 days.")
	assert.Empty(t, req.FooterHTML)
}

func TestPrintFormats_DunningCustomerRow(t *testing.T) {
	formats, err := NewPrintFormats(nil)
	require.NoError(t, err)

	doc := &attachment.SubmittedDocument{
		DocType:      attachment.DocTypeDunning,
		Name:         "DUNN-0001",
		SalesInvoice: "SINV-0007",
		Customer:     "Globex",
	}
	req, err := formats.Render(context.Background(), doc)
	require.NoError(t, err)
	assert.Contains(t, req.HTML, `<td class="label">Customer</td><td>Globex</td>`)
}

func TestPrintFormats_Labeler(t *testing.T) {
	formats, err := NewPrintFormats(nil, WithLabeler(func(d attachment.DocType) string {
		return "Rechnung"
	}))
	require.NoError(t, err)

	req, err := formats.Render(context.Background(), sampleDocument(attachment.DocTypeSalesInvoice))
	require.NoError(t, err)
	assert.Equal(t, "Rechnung DOC 0001/A", req.Title)
	assert.Contains(t, req.HTML, "<h1>Rechnung DOC 0001/A</h1>")
}

func TestPrintFormats_TemplateDirOverride(t *testing.T) {
	dir := t.TempDir()
	custom := `<html><body>custom {{ .Doc.Name }} for {{ .Party }}</body></html>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sales_invoice.html"), []byte(custom), 0o644))

	formats, err := NewPrintFormats(nil, WithTemplateDir(dir))
	require.NoError(t, err)

	req, err := formats.Render(context.Background(), sampleDocument(attachment.DocTypeSalesInvoice))
	require.NoError(t, err)
	assert.Contains(t, req.HTML, "custom DOC 0001/A for Acme")

	// other formats still come from the embedded set
	req, err = formats.Render(context.Background(), sampleDocument(attachment.DocTypeDeliveryNote))
	require.NoError(t, err)
	assert.Contains(t, req.HTML, "Received in good order")
}

func TestPrintFormats_InvalidManifest(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		errorMsg string
	}{
		{"unknown doctype", "print_formats:\n  - doctype: Journal Entry\n    template: sales_invoice.html\n", "unknown doctype"},
		{"bad paper", "print_formats:\n  - doctype: Quotation\n    template: quotation.html\n    paper_size: A0\n", "invalid paper size"},
		{"bad margins", "print_formats:\n  - doctype: Quotation\n    template: quotation.html\n    margins: {top: 500}\n", "margins"},
		{"missing template", "print_formats:\n  - doctype: Quotation\n    template: nope.html\n", "nope.html"},
		{"duplicate", "print_formats:\n  - doctype: Quotation\n    template: quotation.html\n  - doctype: quotation\n    template: quotation.html\n", "duplicate"},
		{"yaml", "print_formats: [", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, manifestFile), []byte(tt.manifest), 0o644))

			_, err := NewPrintFormats(nil, WithTemplateDir(dir))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestPrintFormats_Errors(t *testing.T) {
	dir := t.TempDir()
	manifest := "print_formats:\n  - doctype: Quotation\n    template: quotation.html\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestFile), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quotation.html"), []byte("<p>{{ .Doc.Name }}</p>"), 0o644))

	formats, err := NewPrintFormats(nil, WithTemplateDir(dir))
	require.NoError(t, err)

	_, err = formats.Render(context.Background(), nil)
	assert.Error(t, err)

	_, err = formats.Render(context.Background(), sampleDocument(attachment.DocTypeSalesInvoice))
	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, ErrCodeTemplateNotFound, renderErr.Code)

	req, err := formats.Render(context.Background(), sampleDocument(attachment.DocTypeQuotation))
	require.NoError(t, err)
	assert.Equal(t, "<p>DOC 0001/A</p>", req.HTML)
	assert.Equal(t, PaperSizeA4, req.PaperSize)
	assert.Equal(t, DefaultMargins(), req.Margins)
}
