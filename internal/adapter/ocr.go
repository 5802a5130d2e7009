package adapter

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/jung-kurt/gofpdf"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

// TesseractOCR recognizes text in a scanned PDF by rasterizing each page and
// running the external tesseract binary on it. The output is a new PDF with
// the recognized text laid out page for page.
type TesseractOCR struct {
	binary string
	logger domain.Logger
}

// NewTesseractOCR creates the OCR engine
func NewTesseractOCR(logger domain.Logger) *TesseractOCR {
	return &TesseractOCR{binary: "tesseract", logger: logger}
}

func (t *TesseractOCR) Recognize(ctx context.Context, pdfData []byte, language string) ([]byte, error) {
	if _, err := exec.LookPath(t.binary); err != nil {
		return nil, apperrors.NewAdapterFailure("tesseract is not installed", err)
	}

	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, apperrors.NewAdapterFailure("failed to open PDF for OCR", err)
	}
	defer doc.Close()

	tmpDir, err := os.MkdirTemp("", "ocr-*")
	if err != nil {
		return nil, apperrors.NewAdapterFailure("failed to create work directory", err)
	}
	defer os.RemoveAll(tmpDir)

	out := gofpdf.New("P", "pt", "Letter", "")
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := t.recognizePage(ctx, doc, n, language, tmpDir)
		if err != nil {
			return nil, err
		}
		out.AddPage()
		out.SetFont("Helvetica", "", 11)
		if strings.TrimSpace(text) == "" {
			text = fmt.Sprintf("[page %d: no text recognized]", n+1)
		}
		out.MultiCell(0, 14, text, "", "L", false)
	}

	t.logger.Info("ocr finished", "pages", doc.NumPage(), "language", language)
	return outputPDF(out)
}

func (t *TesseractOCR) recognizePage(ctx context.Context, doc *fitz.Document, page int, language, tmpDir string) (string, error) {
	img, err := doc.Image(page)
	if err != nil {
		return "", apperrors.NewAdapterFailure(fmt.Sprintf("failed to render page %d", page+1), err)
	}

	imgPath := filepath.Join(tmpDir, fmt.Sprintf("page_%d.png", page+1))
	f, err := os.Create(imgPath)
	if err != nil {
		return "", apperrors.NewAdapterFailure("failed to write page image", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", apperrors.NewAdapterFailure("failed to encode page image", err)
	}
	f.Close()

	// "-" sends recognized text to stdout
	cmd := exec.CommandContext(ctx, t.binary, imgPath, "-", "-l", language)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", apperrors.NewAdapterFailure(
			fmt.Sprintf("tesseract failed on page %d: %s", page+1, strings.TrimSpace(stderr.String())), err)
	}
	return stdout.String(), nil
}
