package adapter

import (
	"context"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

// PDFAConverter stamps PDF/A conformance metadata onto a document and
// rewrites it through the codec. This mirrors the metadata-level conversion
// of the original tool; it does not validate fonts or color spaces.
type PDFAConverter struct {
	codec  domain.Codec
	logger domain.Logger
}

// NewPDFAConverter creates the pdf-to-pdfa converter
func NewPDFAConverter(codec domain.Codec, logger domain.Logger) *PDFAConverter {
	return &PDFAConverter{codec: codec, logger: logger}
}

func (c *PDFAConverter) Convert(ctx context.Context, input domain.InputFile) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := c.codec.Load(input.Data)
	if err != nil {
		return nil, err
	}

	out := doc.Clone()
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	out.Metadata["GTS_PDFXVersion"] = "PDF/A-1b"
	out.Metadata["Producer"] = "pdf-workbench"

	data, err := c.codec.Serialize(out)
	if err != nil {
		return nil, apperrors.NewAdapterFailure("failed to rewrite document", err)
	}
	c.logger.Debug("stamped pdf/a metadata", "pages", out.PageCount())
	return data, nil
}
