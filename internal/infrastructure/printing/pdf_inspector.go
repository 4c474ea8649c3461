package printing

import (
	"bytes"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFInfo describes a rendered PDF
type PDFInfo struct {
	PageCount int
	Size      int64
}

// PDFInspector validates generated PDFs and reads basic facts from them
type PDFInspector struct {
	conf *model.Configuration
}

// NewPDFInspector creates an inspector using relaxed validation; Chrome
// output is well formed but not always strictly conforming.
func NewPDFInspector() *PDFInspector {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFInspector{conf: conf}
}

// Inspect validates data and returns its page count
func (i *PDFInspector) Inspect(data []byte) (*PDFInfo, error) {
	if len(data) == 0 {
		return nil, NewRenderError(ErrCodeInvalidPDF, "PDF data is empty", nil)
	}
	if err := api.Validate(bytes.NewReader(data), i.conf); err != nil {
		return nil, NewRenderError(ErrCodeInvalidPDF, "PDF failed validation", err)
	}
	pages, err := api.PageCount(bytes.NewReader(data), i.conf)
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidPDF, "failed to count PDF pages", err)
	}
	return &PDFInfo{
		PageCount: pages,
		Size:      int64(len(data)),
	}, nil
}
