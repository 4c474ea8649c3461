package printing

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChromedpRenderer_Defaults(t *testing.T) {
	r, err := NewChromedpRenderer(nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, defaultChromeTimeout, r.config.DefaultTimeout)
	assert.Equal(t, defaultScale, r.config.Scale)
	assert.NotNil(t, r.logger)
}

func TestBuildPrintParams_A4Portrait(t *testing.T) {
	r := &ChromedpRenderer{config: &ChromedpConfig{Scale: 1.0}}

	params := r.buildPrintParams(&RenderRequest{
		HTML:        "<p>x</p>",
		PaperSize:   PaperSizeA4,
		Orientation: OrientationPortrait,
		Margins:     DefaultMargins(),
	})

	assert.InDelta(t, mmToInches(210), params.paperWidth, 0.01)
	assert.InDelta(t, mmToInches(297), params.paperHeight, 0.01)
	assert.InDelta(t, mmToInches(15), params.marginTop, 0.01)
	assert.False(t, params.landscape)
	assert.False(t, params.displayFooter)
}

func TestBuildPrintParams_LandscapeA5(t *testing.T) {
	r := &ChromedpRenderer{config: &ChromedpConfig{Scale: 0.9}}

	params := r.buildPrintParams(&RenderRequest{
		PaperSize:   PaperSizeA5,
		Orientation: OrientationLandscape,
	})

	assert.True(t, params.landscape)
	assert.InDelta(t, mmToInches(148), params.paperWidth, 0.01)
	assert.Equal(t, 0.9, params.scale)
}

func TestBuildPrintParams_FooterReservesMargin(t *testing.T) {
	r := &ChromedpRenderer{config: &ChromedpConfig{Scale: 1.0}}

	params := r.buildPrintParams(&RenderRequest{
		PaperSize:  PaperSizeA4,
		Margins:    Margins{Bottom: 2},
		FooterHTML: `<div class="pageNumber"></div>`,
	})

	assert.True(t, params.displayFooter)
	assert.InDelta(t, mmToInches(minFooterMarginMM), params.marginBottom, 0.001)
}

func TestBuildCompleteHTML(t *testing.T) {
	t.Run("full document is kept", func(t *testing.T) {
		in := "<!DOCTYPE html><html><body>x</body></html>"
		assert.Equal(t, in, buildCompleteHTML(&RenderRequest{HTML: in}))
	})

	t.Run("fragment is wrapped with escaped title", func(t *testing.T) {
		out := buildCompleteHTML(&RenderRequest{HTML: "<p>x</p>", Title: "A&B"})
		assert.Contains(t, out, "<!DOCTYPE html>")
		assert.Contains(t, out, "<title>A&amp;B</title>")
		assert.Contains(t, out, "<body><p>x</p></body>")
	})
}

func TestChromedpRenderer_RejectsBadRequests(t *testing.T) {
	r, err := NewChromedpRenderer(&ChromedpConfig{})
	require.NoError(t, err)
	defer r.Close()

	tests := []struct {
		name string
		req  *RenderRequest
		code string
	}{
		{"nil request", nil, ErrCodeInvalidHTML},
		{"empty html", &RenderRequest{HTML: "  ", PaperSize: PaperSizeA4}, ErrCodeInvalidHTML},
		{"bad paper", &RenderRequest{HTML: "<p>x</p>", PaperSize: "A0"}, ErrCodeInvalidPaperSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Render(context.Background(), tt.req)
			var renderErr *RenderError
			require.True(t, errors.As(err, &renderErr))
			assert.Equal(t, tt.code, renderErr.Code)
		})
	}
}

// Requires a running Chrome exposing DevTools, e.g.
// docker run -p 9222:9222 chromedp/headless-shell
func TestChromedpRenderer_RenderRemote(t *testing.T) {
	remote := os.Getenv("TEST_CHROME_URL")
	if remote == "" {
		t.Skip("TEST_CHROME_URL not set")
	}

	r, err := NewChromedpRenderer(&ChromedpConfig{RemoteURL: remote, DefaultTimeout: 20 * time.Second})
	require.NoError(t, err)
	defer r.Close()

	result, err := r.Render(context.Background(), &RenderRequest{
		HTML:      "<h1>SINV-0001</h1>",
		PaperSize: PaperSizeA4,
		Margins:   DefaultMargins(),
		Title:     "SINV-0001",
	})
	require.NoError(t, err)
	assert.True(t, len(result.PDFData) > 4)
	assert.Equal(t, "%PDF", string(result.PDFData[:4]))

	info, err := NewPDFInspector().Inspect(result.PDFData)
	require.NoError(t, err)
	assert.Equal(t, 1, info.PageCount)
}
