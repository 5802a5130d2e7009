package adapter

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"image/png"

	"github.com/gen2brain/go-fitz"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

const jpegQuality = 90

// FitzRasterizer renders PDF pages to images with MuPDF.
type FitzRasterizer struct {
	logger domain.Logger
}

// NewFitzRasterizer creates the page rasterizer
func NewFitzRasterizer(logger domain.Logger) *FitzRasterizer {
	return &FitzRasterizer{logger: logger}
}

// PageImages renders every page of the given PDF to the requested image
// format ("jpg" or "png"), one artifact per page.
func (r *FitzRasterizer) PageImages(ctx context.Context, pdfData []byte, format string) ([]domain.Artifact, error) {
	if format != "jpg" && format != "jpeg" && format != "png" {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("unsupported image format %q", format))
	}

	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, apperrors.NewAdapterFailure("failed to open PDF for rendering", err)
	}
	defer doc.Close()

	artifacts := make([]domain.Artifact, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.Image(n)
		if err != nil {
			return nil, apperrors.NewAdapterFailure(fmt.Sprintf("failed to render page %d", n+1), err)
		}

		var buf bytes.Buffer
		var contentType string
		if format == "png" {
			err = png.Encode(&buf, img)
			contentType = "image/png"
		} else {
			err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
			contentType = "image/jpeg"
		}
		if err != nil {
			return nil, apperrors.NewAdapterFailure(fmt.Sprintf("failed to encode page %d", n+1), err)
		}

		artifacts = append(artifacts, domain.Artifact{
			Name:        fmt.Sprintf("page_%d.%s", n+1, format),
			ContentType: contentType,
			Data:        buf.Bytes(),
		})
	}

	r.logger.Debug("rasterized document", "pages", len(artifacts), "format", format)
	return artifacts, nil
}
