package adapter

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

var (
	scriptStyleRE = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	blockBreakRE  = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|table|blockquote)>|<br\s*/?>`)
	tagRE         = regexp.MustCompile(`<[^>]+>`)
	blankLinesRE  = regexp.MustCompile(`\n{3,}`)
)

// HTMLConverter lays raw HTML out as a text PDF. Markup is stripped to text
// with block elements mapped to line breaks; no CSS or image support.
type HTMLConverter struct {
	logger domain.Logger
}

// NewHTMLConverter creates the html-to-pdf converter
func NewHTMLConverter(logger domain.Logger) *HTMLConverter {
	return &HTMLConverter{logger: logger}
}

func (c *HTMLConverter) Convert(ctx context.Context, input domain.InputFile) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := htmlToText(string(input.Data))
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewInvalidRequest("html content has no text")
	}

	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range strings.Split(text, "\n") {
		pdf.MultiCell(0, 14, line, "", "L", false)
	}
	c.logger.Debug("converted html content", "bytes", len(input.Data))
	return outputPDF(pdf)
}

func htmlToText(src string) string {
	out := scriptStyleRE.ReplaceAllString(src, "")
	out = blockBreakRE.ReplaceAllString(out, "\n")
	out = tagRE.ReplaceAllString(out, "")
	out = html.UnescapeString(out)

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	out = strings.Join(lines, "\n")
	out = blankLinesRE.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
