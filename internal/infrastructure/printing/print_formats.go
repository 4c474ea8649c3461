package printing

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/erp/pdfonsubmit/internal/domain/attachment"
)

//go:embed templates/*.html templates/print_formats.yaml
var templateFS embed.FS

const manifestFile = "print_formats.yaml"

// PrintFormat is the page setup and template used to print one document type
type PrintFormat struct {
	DocType     attachment.DocType
	Name        string
	Template    string
	PaperSize   PaperSize
	Orientation Orientation
	Margins     Margins
	PageNumbers bool
	Content     string
}

type manifest struct {
	Layout       string           `yaml:"layout"`
	PrintFormats []manifestFormat `yaml:"print_formats"`
}

type manifestFormat struct {
	DocType     string   `yaml:"doctype"`
	Name        string   `yaml:"name"`
	Template    string   `yaml:"template"`
	PaperSize   string   `yaml:"paper_size"`
	Orientation string   `yaml:"orientation"`
	Margins     *Margins `yaml:"margins"`
	PageNumbers bool     `yaml:"page_numbers"`
}

// PrintView is the data bound to print format templates
type PrintView struct {
	Doc       *attachment.SubmittedDocument
	Label     string
	Party     string
	Format    *PrintFormat
	PrintedAt time.Time
}

// PrintFormats holds the default print format of every document type and
// renders documents with them.
type PrintFormats struct {
	engine      *TemplateEngine
	templateDir string
	labeler     func(attachment.DocType) string
	logger      *zap.Logger

	mu      sync.RWMutex
	layout  string
	formats map[attachment.DocType]*PrintFormat
}

// PrintFormatsOption configures PrintFormats
type PrintFormatsOption func(*PrintFormats)

// WithTemplateDir loads templates and the manifest from dir when present,
// falling back to the embedded copies file by file.
func WithTemplateDir(dir string) PrintFormatsOption {
	return func(p *PrintFormats) {
		p.templateDir = dir
	}
}

// WithLabeler sets the function used to title documents
func WithLabeler(labeler func(attachment.DocType) string) PrintFormatsOption {
	return func(p *PrintFormats) {
		p.labeler = labeler
	}
}

// WithPrintLogger sets the logger
func WithPrintLogger(logger *zap.Logger) PrintFormatsOption {
	return func(p *PrintFormats) {
		p.logger = logger
	}
}

// NewPrintFormats loads the print format manifest and templates
func NewPrintFormats(engine *TemplateEngine, opts ...PrintFormatsOption) (*PrintFormats, error) {
	if engine == nil {
		engine = NewTemplateEngine()
	}
	p := &PrintFormats{
		engine:  engine,
		labeler: func(d attachment.DocType) string { return d.String() },
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads the manifest and all templates
func (p *PrintFormats) Reload() error {
	raw, err := p.readFile(manifestFile)
	if err != nil {
		return fmt.Errorf("failed to read print format manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("failed to parse print format manifest: %w", err)
	}

	layout := ""
	if m.Layout != "" {
		content, err := p.readFile(m.Layout)
		if err != nil {
			return fmt.Errorf("failed to read layout %s: %w", m.Layout, err)
		}
		layout = string(content)
	}

	formats := make(map[attachment.DocType]*PrintFormat, len(m.PrintFormats))
	for _, mf := range m.PrintFormats {
		docType, ok := attachment.ParseDocType(mf.DocType)
		if !ok {
			return fmt.Errorf("print format %q: unknown doctype %q", mf.Name, mf.DocType)
		}
		if _, dup := formats[docType]; dup {
			return fmt.Errorf("print format %q: duplicate default for %s", mf.Name, docType)
		}
		content, err := p.readFile(mf.Template)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", mf.Template, err)
		}

		pf := &PrintFormat{
			DocType:     docType,
			Name:        mf.Name,
			Template:    mf.Template,
			PaperSize:   ParsePaperSize(mf.PaperSize),
			Orientation: ParseOrientation(mf.Orientation),
			Margins:     DefaultMargins(),
			PageNumbers: mf.PageNumbers,
			Content:     string(content),
		}
		if mf.PaperSize == "" {
			pf.PaperSize = PaperSizeA4
		}
		if !pf.PaperSize.IsValid() {
			return fmt.Errorf("print format %q: invalid paper size %q", mf.Name, mf.PaperSize)
		}
		if mf.Margins != nil {
			if !mf.Margins.Valid() {
				return fmt.Errorf("print format %q: margins must be between 0 and 100mm", mf.Name)
			}
			pf.Margins = *mf.Margins
		}
		formats[docType] = pf
	}

	p.mu.Lock()
	p.layout = layout
	p.formats = formats
	p.mu.Unlock()

	p.logger.Info("print formats loaded",
		zap.Int("count", len(formats)),
		zap.String("template_dir", p.templateDir))
	return nil
}

// readFile prefers the external template directory, then the embedded copy
func (p *PrintFormats) readFile(name string) ([]byte, error) {
	if strings.Contains(name, "..") {
		return nil, fmt.Errorf("invalid template file name %q", name)
	}
	if p.templateDir != "" {
		content, err := os.ReadFile(filepath.Join(p.templateDir, name))
		if err == nil {
			return content, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return fs.ReadFile(templateFS, "templates/"+name)
}

// Default returns the default print format for a document type
func (p *PrintFormats) Default(docType attachment.DocType) (*PrintFormat, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pf, ok := p.formats[docType]
	return pf, ok
}

// Render renders a document with its default print format and returns a
// request ready for the PDF renderer.
func (p *PrintFormats) Render(ctx context.Context, doc *attachment.SubmittedDocument) (*RenderRequest, error) {
	if doc == nil {
		return nil, NewRenderError(ErrCodeInvalidHTML, "document is nil", nil)
	}
	pf, ok := p.Default(doc.DocType)
	if !ok {
		return nil, NewRenderError(ErrCodeTemplateNotFound,
			"no default print format for "+doc.DocType.String(), nil)
	}

	p.mu.RLock()
	layout := p.layout
	p.mu.RUnlock()

	party := doc.DirectParty()
	if party == "" {
		party = doc.Customer
	}
	view := &PrintView{
		Doc:       doc,
		Label:     p.labeler(doc.DocType),
		Party:     party,
		Format:    pf,
		PrintedAt: time.Now(),
	}

	result, err := p.engine.Render(ctx, &RenderTemplateRequest{
		Name:    pf.Template,
		Content: layout + pf.Content,
		Data:    view,
	})
	if err != nil {
		return nil, err
	}

	req := &RenderRequest{
		HTML:        result.HTML,
		PaperSize:   pf.PaperSize,
		Orientation: pf.Orientation,
		Margins:     pf.Margins,
		Title:       view.Label + " " + doc.Name,
	}
	if pf.PageNumbers {
		req.FooterHTML = pageNumberFooter
	}
	return req, nil
}

const pageNumberFooter = `<div style="font-size:8pt;width:100%;text-align:center;color:#666;">` +
	`<span class="pageNumber"></span> / <span class="totalPages"></span></div>`
