package service

import (
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

// CompareService produces a comparison report for two PDF documents based
// on their extracted page text.
type CompareService struct {
	extractor domain.TextExtractor
	logger    domain.Logger
}

// NewCompareService creates the comparison engine
func NewCompareService(extractor domain.TextExtractor, logger domain.Logger) *CompareService {
	return &CompareService{extractor: extractor, logger: logger}
}

// Compare extracts text from both inputs and renders a per-page report PDF.
// Pages past the shorter document's end are reported as missing.
func (s *CompareService) Compare(first, second []byte) ([]byte, error) {
	textsA, err := s.extractor.PageTexts(first)
	if err != nil {
		return nil, apperrors.NewMalformedDocument("could not read first document", err)
	}
	textsB, err := s.extractor.PageTexts(second)
	if err != nil {
		return nil, apperrors.NewMalformedDocument("could not read second document", err)
	}

	pages := len(textsA)
	if len(textsB) > pages {
		pages = len(textsB)
	}

	report := gofpdf.New("P", "pt", "Letter", "")
	report.SetFont("Helvetica", "", 11)
	report.AddPage()
	report.SetFont("Helvetica", "B", 16)
	report.CellFormat(0, 24, "Comparison Report", "", 1, "L", false, 0, "")
	report.SetFont("Helvetica", "", 11)
	report.CellFormat(0, 16, fmt.Sprintf("Document A: %d pages", len(textsA)), "", 1, "L", false, 0, "")
	report.CellFormat(0, 16, fmt.Sprintf("Document B: %d pages", len(textsB)), "", 1, "L", false, 0, "")
	report.Ln(8)

	differing := 0
	for i := 0; i < pages; i++ {
		a, okA := pageText(textsA, i)
		b, okB := pageText(textsB, i)

		var status string
		switch {
		case !okA:
			status = "only in document B"
			differing++
		case !okB:
			status = "only in document A"
			differing++
		case a == b:
			status = "identical"
		default:
			status = "differs"
			differing++
		}

		report.SetFont("Helvetica", "B", 11)
		report.CellFormat(0, 16, fmt.Sprintf("Page %d: %s", i+1, status), "", 1, "L", false, 0, "")
		if status == "differs" {
			report.SetFont("Helvetica", "", 9)
			report.MultiCell(0, 12, "A: "+truncateText(a, 300), "", "L", false)
			report.MultiCell(0, 12, "B: "+truncateText(b, 300), "", "L", false)
		}
	}

	report.Ln(8)
	report.SetFont("Helvetica", "B", 11)
	report.CellFormat(0, 16, fmt.Sprintf("%d of %d pages differ", differing, pages), "", 1, "L", false, 0, "")

	var sb strings.Builder
	if err := report.Output(&sb); err != nil {
		return nil, apperrors.NewInternal("could not render comparison report", err)
	}
	s.logger.Info("comparison finished", "pages", pages, "differing", differing)
	return []byte(sb.String()), nil
}

func pageText(texts []string, i int) (string, bool) {
	if i >= len(texts) {
		return "", false
	}
	return strings.TrimSpace(texts[i]), true
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
