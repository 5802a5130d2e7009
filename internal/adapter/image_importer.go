package adapter

import (
	"bytes"
	"context"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

// PDFCPUImageImporter lays raster images onto PDF pages, one image per page.
type PDFCPUImageImporter struct {
	logger domain.Logger
}

// NewPDFCPUImageImporter creates the image importer
func NewPDFCPUImageImporter(logger domain.Logger) *PDFCPUImageImporter {
	return &PDFCPUImageImporter{logger: logger}
}

// ImportImages builds one PDF from the given images, in input order.
func (m *PDFCPUImageImporter) ImportImages(ctx context.Context, inputs []domain.InputFile) ([]byte, error) {
	if len(inputs) == 0 {
		return nil, apperrors.NewInvalidRequest("no images given")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	readers := make([]io.Reader, 0, len(inputs))
	for _, in := range inputs {
		readers = append(readers, bytes.NewReader(in.Data))
	}

	var out bytes.Buffer
	imp := pdfcpu.DefaultImportConfig()
	if err := api.ImportImages(nil, &out, readers, imp, model.NewDefaultConfiguration()); err != nil {
		return nil, apperrors.NewAdapterFailure("failed to import images", err)
	}

	m.logger.Debug("imported images", "count", len(inputs), "bytes", out.Len())
	return out.Bytes(), nil
}
