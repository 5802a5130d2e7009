package adapter

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

// PlainTextExtractor pulls per-page text out of PDF bytes, pure Go, no CGO.
type PlainTextExtractor struct {
	logger domain.Logger
}

// NewPlainTextExtractor creates the text extractor
func NewPlainTextExtractor(logger domain.Logger) *PlainTextExtractor {
	return &PlainTextExtractor{logger: logger}
}

func (e *PlainTextExtractor) PageTexts(pdfData []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return nil, apperrors.NewMalformedDocument("failed to open PDF for text extraction", err)
	}

	numPages := r.NumPage()
	fonts := make(map[string]*pdf.Font)
	texts := make([]string, 0, numPages)

	for i := 1; i <= numPages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := p.Font(name)
				fonts[name] = &f
			}
		}
		text, pageErr := p.GetPlainText(fonts)
		if pageErr != nil {
			return nil, apperrors.NewMalformedDocument(fmt.Sprintf("failed to read page %d", i), pageErr)
		}
		texts = append(texts, text)
	}
	return texts, nil
}
