package adapter

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"strings"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// PDFToWordConverter turns the text content of a PDF into a minimal .docx
// package, one Word paragraph per extracted line and a page break between
// source pages. Layout, images, and fonts are not carried over.
type PDFToWordConverter struct {
	extractor domain.TextExtractor
	logger    domain.Logger
}

// NewPDFToWordConverter creates the pdf-to-word converter
func NewPDFToWordConverter(extractor domain.TextExtractor, logger domain.Logger) *PDFToWordConverter {
	return &PDFToWordConverter{extractor: extractor, logger: logger}
}

func (c *PDFToWordConverter) Convert(ctx context.Context, input domain.InputFile) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pages, err := c.extractor.PageTexts(input.Data)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.NewAdapterFailure("could not extract text from PDF", err)
	}
	c.logger.Debug("converting pdf to word", "pages", len(pages))
	return buildDocx(pages)
}

// buildDocx assembles the three-part OOXML package Word needs to open a file.
func buildDocx(pages []string) ([]byte, error) {
	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for i, page := range pages {
		if i > 0 {
			body.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
		}
		for _, line := range strings.Split(page, "\n") {
			line = strings.TrimRight(line, " \t")
			body.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
			body.WriteString(escapeXMLText(line))
			body.WriteString(`</w:t></w:r></w:p>`)
		}
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries := []struct {
		name, content string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRels},
		{"word/document.xml", body.String()},
	}
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			return nil, apperrors.NewAdapterFailure("failed to build docx package", err)
		}
		if _, err := w.Write([]byte(e.content)); err != nil {
			return nil, apperrors.NewAdapterFailure("failed to build docx package", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, apperrors.NewAdapterFailure("failed to build docx package", err)
	}
	return buf.Bytes(), nil
}

func escapeXMLText(s string) string {
	var buf bytes.Buffer
	// EscapeText only fails on a failing writer; bytes.Buffer never does.
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
