package adapter

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

// WordConverter renders the text content of a .docx file as a PDF. The
// document body is read straight out of the OOXML package; formatting beyond
// paragraph breaks is not preserved.
type WordConverter struct {
	logger domain.Logger
}

// NewWordConverter creates the word-to-pdf converter
func NewWordConverter(logger domain.Logger) *WordConverter {
	return &WordConverter{logger: logger}
}

func (c *WordConverter) Convert(ctx context.Context, input domain.InputFile) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := readZipEntry(input.Data, "word/document.xml")
	if err != nil {
		return nil, apperrors.NewAdapterFailure("not a readable Word document", err)
	}
	paragraphs, err := extractParagraphs(doc, "p", "t")
	if err != nil {
		return nil, apperrors.NewAdapterFailure("could not parse document body", err)
	}
	c.logger.Debug("converted word document", "paragraphs", len(paragraphs))
	return renderTextPDF(paragraphs)
}

// PowerPointConverter renders the slide text of a .pptx file as a PDF, one
// page per slide.
type PowerPointConverter struct {
	logger domain.Logger
}

// NewPowerPointConverter creates the powerpoint-to-pdf converter
func NewPowerPointConverter(logger domain.Logger) *PowerPointConverter {
	return &PowerPointConverter{logger: logger}
}

func (c *PowerPointConverter) Convert(ctx context.Context, input domain.InputFile) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slides, err := readSlideEntries(input.Data)
	if err != nil {
		return nil, apperrors.NewAdapterFailure("not a readable PowerPoint document", err)
	}
	if len(slides) == 0 {
		return nil, apperrors.NewAdapterFailure("presentation has no slides", nil)
	}

	pdf := gofpdf.New("L", "pt", "Letter", "")
	for i, slide := range slides {
		texts, err := extractParagraphs(slide, "sp", "t")
		if err != nil {
			return nil, apperrors.NewAdapterFailure(fmt.Sprintf("could not parse slide %d", i+1), err)
		}
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 24)
		if len(texts) > 0 {
			pdf.MultiCell(0, 30, texts[0], "", "C", false)
			pdf.SetFont("Helvetica", "", 14)
			for _, t := range texts[1:] {
				pdf.MultiCell(0, 18, t, "", "L", false)
			}
		}
	}
	c.logger.Debug("converted presentation", "slides", len(slides))
	return outputPDF(pdf)
}

// ExcelConverter renders each worksheet of an .xlsx file as a PDF page of
// tab-separated rows.
type ExcelConverter struct {
	logger domain.Logger
}

// NewExcelConverter creates the excel-to-pdf converter
func NewExcelConverter(logger domain.Logger) *ExcelConverter {
	return &ExcelConverter{logger: logger}
}

func (c *ExcelConverter) Convert(ctx context.Context, input domain.InputFile) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wb, err := excelize.OpenReader(bytes.NewReader(input.Data))
	if err != nil {
		return nil, apperrors.NewAdapterFailure("not a readable Excel workbook", err)
	}
	defer wb.Close()

	pdf := gofpdf.New("L", "pt", "Letter", "")
	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return nil, apperrors.NewAdapterFailure(fmt.Sprintf("could not read sheet %q", sheet), err)
		}
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 20, sheet, "", 1, "L", false, 0, "")
		pdf.SetFont("Courier", "", 9)
		for _, row := range rows {
			pdf.MultiCell(0, 12, strings.Join(row, "\t"), "", "L", false)
		}
	}
	if pdf.PageCount() == 0 {
		return nil, apperrors.NewAdapterFailure("workbook has no sheets", nil)
	}
	c.logger.Debug("converted workbook", "sheets", len(wb.GetSheetList()))
	return outputPDF(pdf)
}

func readZipEntry(data []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("entry %s not found", name)
}

// readSlideEntries returns the XML of ppt/slides/slideN.xml in slide order.
func readSlideEntries(data []byte) ([][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			names = append(names, f.Name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		// slide10.xml sorts after slide2.xml
		if len(names[i]) != len(names[j]) {
			return len(names[i]) < len(names[j])
		}
		return names[i] < names[j]
	})

	slides := make([][]byte, 0, len(names))
	for _, name := range names {
		body, err := readZipEntry(data, name)
		if err != nil {
			return nil, err
		}
		slides = append(slides, body)
	}
	return slides, nil
}

// extractParagraphs walks the OOXML token stream and joins the text runs of
// each block element (w:p for documents, p:sp for slides) into one string.
func extractParagraphs(body []byte, blockTag, textTag string) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	var paragraphs []string
	var current strings.Builder
	blockDepth := 0
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case blockTag:
				blockDepth++
			case textTag:
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case blockTag:
				blockDepth--
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			case textTag:
				inText = false
			}
		case xml.CharData:
			if blockDepth > 0 && inText {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}

func renderTextPDF(paragraphs []string) ([]byte, error) {
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 11)
	if len(paragraphs) == 0 {
		pdf.CellFormat(0, 14, "", "", 1, "L", false, 0, "")
	}
	for _, p := range paragraphs {
		pdf.MultiCell(0, 14, p, "", "L", false)
		pdf.Ln(4)
	}
	return outputPDF(pdf)
}

func outputPDF(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperrors.NewAdapterFailure("failed to render PDF", err)
	}
	return buf.Bytes(), nil
}
