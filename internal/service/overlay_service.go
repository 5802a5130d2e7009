package service

import (
	"fmt"
	"strings"

	"pdf-workbench/internal/domain"
	"pdf-workbench/internal/pdf"
	apperrors "pdf-workbench/pkg/errors"
)

// overlayFontName is the resource name overlays register on touched pages.
const overlayFontName = "/FWB1"

// OverlayService draws generated content on top of existing pages by
// appending operators to the page content stream. The original content is
// bracketed in q/Q so overlay state never leaks into it.
type OverlayService struct {
	logger domain.Logger
}

// NewOverlayService creates the overlay engine
func NewOverlayService(logger domain.Logger) *OverlayService {
	return &OverlayService{logger: logger}
}

// Watermark draws the text diagonally across every page.
func (s *OverlayService) Watermark(doc *domain.Document, text string) (*domain.Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewInvalidRequest("watermark text is required")
	}
	out := doc.Clone()
	for i := range out.Pages {
		p := &out.Pages[i]
		cx := p.MediaBox.Left + p.MediaBox.Width()/2
		cy := p.MediaBox.Bottom + p.MediaBox.Height()/2
		// rotate 45 degrees around the page center, text roughly centered
		halfWidth := float64(len(text)) * 14
		ops := fmt.Sprintf(
			"BT\n0.7071 0.7071 -0.7071 0.7071 %.2f %.2f Tm\n%s 50 Tf\n1 0 0 rg\n%.2f 0 Td\n(%s) Tj\nET",
			cx, cy, overlayFontName, -halfWidth, escapeText(text))
		if err := appendOverlay(p, ops); err != nil {
			return nil, err
		}
	}
	return out, nil
}

var pageNumberPositions = map[string]bool{
	"bottom-left": true, "bottom-center": true, "bottom-right": true,
	"top-left": true, "top-center": true, "top-right": true,
}

// AddPageNumbers stamps the 1-based page number at the given position.
func (s *OverlayService) AddPageNumbers(doc *domain.Document, position string) (*domain.Document, error) {
	if position == "" {
		position = "bottom-right"
	}
	if !pageNumberPositions[position] {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("unknown page number position %q", position))
	}

	out := doc.Clone()
	for i := range out.Pages {
		p := &out.Pages[i]
		x, y := numberPosition(position, p.MediaBox)
		ops := fmt.Sprintf("BT\n%s 12 Tf\n0 0 0 rg\n%.2f %.2f Td\n(%d) Tj\nET",
			overlayFontName, x, y, p.Index)
		if err := appendOverlay(p, ops); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Sign stamps a signature marker over every page, watermark-style.
func (s *OverlayService) Sign(doc *domain.Document, signature string) (*domain.Document, error) {
	if strings.TrimSpace(signature) == "" {
		return nil, apperrors.NewInvalidRequest("signature text is required")
	}
	return s.Watermark(doc, "SIGNED: "+signature)
}

// Redact draws filled black rectangles over the given page areas.
func (s *OverlayService) Redact(doc *domain.Document, areas []domain.RedactArea) (*domain.Document, error) {
	if len(areas) == 0 {
		return nil, apperrors.NewInvalidRequest("no redaction areas given")
	}
	for _, a := range areas {
		if a.Page < 1 || a.Page > doc.PageCount() {
			return nil, apperrors.NewInvalidRequest(fmt.Sprintf("redaction page %d is out of range", a.Page))
		}
		if a.Right <= a.Left || a.Top <= a.Bottom {
			return nil, apperrors.NewInvalidRequest("redaction area is empty")
		}
	}

	out := doc.Clone()
	for _, a := range areas {
		p := &out.Pages[a.Page-1]
		ops := fmt.Sprintf("0 0 0 rg\n%.2f %.2f %.2f %.2f re\nf",
			a.Left, a.Bottom, a.Right-a.Left, a.Top-a.Bottom)
		if err := appendOverlay(p, ops); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func numberPosition(position string, box domain.MediaBox) (float64, float64) {
	var x, y float64
	switch {
	case strings.HasSuffix(position, "-left"):
		x = box.Left + 50
	case strings.HasSuffix(position, "-center"):
		x = box.Left + box.Width()/2
	default:
		x = box.Right - 60
	}
	if strings.HasPrefix(position, "top") {
		y = box.Top - 30
	} else {
		y = box.Bottom + 20
	}
	return x, y
}

// appendOverlay wraps existing content in q/Q and appends the overlay
// operators, registering the overlay font in the page resources.
func appendOverlay(p *domain.Page, ops string) error {
	if p.ContentFilter != "" {
		return apperrors.NewInvalidRequest(
			"page content uses an unsupported encoding and cannot be drawn over")
	}
	var sb strings.Builder
	sb.WriteString("q\n")
	sb.Write(p.Content)
	sb.WriteString("\nQ\n")
	sb.WriteString(ops)
	sb.WriteString("\n")
	p.Content = []byte(sb.String())
	p.Resources = withOverlayFont(p.Resources)
	return nil
}

// withOverlayFont returns a resource graph with the overlay's base font
// registered, without mutating the original graph.
func withOverlayFont(resources interface{}) interface{} {
	res := pdf.DictionaryObject{}
	if orig, ok := resources.(pdf.DictionaryObject); ok {
		for k, v := range orig {
			res[k] = v
		}
	}
	fonts := pdf.DictionaryObject{}
	if orig, ok := res["/Font"].(pdf.DictionaryObject); ok {
		for k, v := range orig {
			fonts[k] = v
		}
	}
	fonts[overlayFontName] = pdf.DictionaryObject{
		"/Type":     pdf.NameObject("/Font"),
		"/Subtype":  pdf.NameObject("/Type1"),
		"/BaseFont": pdf.NameObject("/Helvetica-Bold"),
	}
	res["/Font"] = fonts
	return res
}

func escapeText(text string) string {
	r := strings.NewReplacer("\\", "\\\\", "(", "\\(", ")", "\\)")
	return r.Replace(text)
}
