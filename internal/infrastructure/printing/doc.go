// Package printing turns submitted documents into PDF files.
//
// A document is first rendered to HTML with its default print format
// (html/template files described by an embedded YAML manifest), then
// converted to PDF by headless Chrome through the DevTools protocol, and
// finally checked with pdfcpu.
//
//	formats, err := NewPrintFormats(NewTemplateEngine(), WithTemplateDir("/etc/pdfonsubmit/formats"))
//	req, err := formats.Render(ctx, doc)
//	result, err := renderer.Render(ctx, req)
//	info, err := inspector.Inspect(result.PDFData)
package printing
