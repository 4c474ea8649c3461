package attachment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"SINV 0001/A", "SINV-0001-A.pdf"},
		{"SINV-0001", "SINV-0001.pdf"},
		{"QTN/2024/07", "QTN-2024-07.pdf"},
		{"  lead", "--lead.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFileName(tt.input))
		})
	}
}

func TestNewFileRecord(t *testing.T) {
	f, err := NewFileRecord("SINV-0001.pdf", "Home/Sales Invoice/Acme", DocTypeSalesInvoice, "SINV-0001")
	require.NoError(t, err)
	assert.True(t, f.IsPrivate)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, DocTypeSalesInvoice, f.AttachedToDocType)
	assert.Equal(t, "SINV-0001", f.AttachedToName)

	_, err = NewFileRecord("", "Home", DocTypeSalesInvoice, "SINV-0001")
	assert.Error(t, err)
	_, err = NewFileRecord("a.pdf", "", DocTypeSalesInvoice, "SINV-0001")
	assert.Error(t, err)
	_, err = NewFileRecord("a.pdf", "Home", DocType("Journal Entry"), "JE-1")
	assert.Error(t, err)
}
