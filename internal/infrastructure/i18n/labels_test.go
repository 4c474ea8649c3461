package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"github.com/erp/pdfonsubmit/internal/domain/attachment"
)

func TestLabeler_English(t *testing.T) {
	l := NewLabeler("en")
	for _, d := range attachment.AllDocTypes() {
		assert.Equal(t, d.String(), l.Label(d))
	}
	assert.Equal(t, language.English, l.Language())
}

func TestLabeler_German(t *testing.T) {
	l := NewLabeler("de-DE")
	assert.Equal(t, language.German, l.Language())
	assert.Equal(t, "Ausgangsrechnung", l.Label(attachment.DocTypeSalesInvoice))
	assert.Equal(t, "Mahnung", l.Label(attachment.DocTypeDunning))
}

func TestLabeler_Fallback(t *testing.T) {
	for _, lang := range []string{"", "not a tag", "ja"} {
		l := NewLabeler(lang)
		assert.Equal(t, "Quotation", l.Label(attachment.DocTypeQuotation), lang)
	}
}
