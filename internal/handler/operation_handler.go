package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

// optionFields is every form field forwarded into the operation options bag.
var optionFields = []string{
	"pages", "angle", "password", "owner_password", "permissions", "text",
	"position", "page_order", "left", "right", "bottom", "top", "language",
	"html_content", "signature", "areas", "format",
}

// pdfInputKinds are the operations whose uploads must actually be PDFs.
var pdfInputKinds = map[domain.OperationKind]bool{
	domain.OpMerge: true, domain.OpSplit: true, domain.OpCompress: true,
	domain.OpOptimize: true, domain.OpRotate: true, domain.OpUnlock: true,
	domain.OpProtect: true, domain.OpWatermark: true, domain.OpExtract: true,
	domain.OpAddPageNumbers: true, domain.OpOrganize: true,
	domain.OpRemovePages: true, domain.OpOCR: true, domain.OpCrop: true,
	domain.OpCompare: true, domain.OpSign: true, domain.OpRedact: true,
	domain.OpPDFToPDFA: true, domain.OpPDFToJPG: true, domain.OpPDFToWord: true,
}

// multiResultKinds always answer with output_files, even for one artifact.
var multiResultKinds = map[domain.OperationKind]bool{
	domain.OpSplit:    true,
	domain.OpPDFToJPG: true,
}

// OperationHandler turns multipart uploads into operation requests and
// stored artifacts.
type OperationHandler struct {
	orchestrator domain.Orchestrator
	store        domain.ArtifactStore
	config       domain.Config
	logger       domain.Logger
}

// NewOperationHandler creates a new operation handler instance
func NewOperationHandler(orchestrator domain.Orchestrator, store domain.ArtifactStore, config domain.Config, logger domain.Logger) *OperationHandler {
	return &OperationHandler{
		orchestrator: orchestrator,
		store:        store,
		config:       config,
		logger:       logger,
	}
}

// Handle returns the http handler for one operation kind.
func (h *OperationHandler) Handle(kind domain.OperationKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := h.buildRequest(kind, r)
		if err != nil {
			writeError(w, err)
			return
		}

		result, err := h.orchestrator.Execute(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}

		names, err := h.store.SaveArtifacts(result.Artifacts)
		if err != nil {
			writeError(w, err)
			return
		}

		if multiResultKinds[kind] || len(names) > 1 {
			writeJSON(w, http.StatusOK, map[string]interface{}{"output_files": names})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"output_file": names[0]})
	}
}

func (h *OperationHandler) buildRequest(kind domain.OperationKind, r *http.Request) (*domain.OperationRequest, error) {
	if err := r.ParseMultipartForm(h.config.GetMaxFileSize()); err != nil {
		if kind == domain.OpHTMLToPDF {
			// html-to-pdf may arrive as a plain form without any file part
			if err := r.ParseForm(); err != nil {
				return nil, apperrors.NewInvalidRequest("could not parse request body")
			}
		} else {
			return nil, apperrors.NewInvalidRequest("could not parse multipart upload", err.Error())
		}
	}

	inputs, err := h.collectInputs(kind, r)
	if err != nil {
		return nil, err
	}

	options := domain.Options{}
	for _, field := range optionFields {
		if value := r.FormValue(field); value != "" {
			options[field] = value
		}
	}

	return &domain.OperationRequest{Kind: kind, Inputs: inputs, Options: options}, nil
}

func (h *OperationHandler) collectInputs(kind domain.OperationKind, r *http.Request) ([]domain.InputFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	var headers []*multipart.FileHeader
	if kind == domain.OpCompare {
		for _, field := range []string{"file1", "file2"} {
			hs := r.MultipartForm.File[field]
			if len(hs) == 0 {
				return nil, apperrors.NewInvalidRequest(fmt.Sprintf("missing upload field %q", field))
			}
			headers = append(headers, hs[0])
		}
	} else {
		headers = append(headers, r.MultipartForm.File["files"]...)
		headers = append(headers, r.MultipartForm.File["file"]...)
	}

	inputs := make([]domain.InputFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readUpload(fh, h.config.GetMaxFileSize())
		if err != nil {
			return nil, err
		}
		if pdfInputKinds[kind] && !mimetype.Detect(data).Is("application/pdf") {
			return nil, apperrors.NewInvalidRequest(fmt.Sprintf("%s is not a PDF file", fh.Filename))
		}
		inputs = append(inputs, domain.InputFile{Name: fh.Filename, Data: data})
	}

	// uploads are kept so a failed request can be inspected before cleanup
	for _, in := range inputs {
		if _, err := h.store.SaveUpload(in.Name, in.Data); err != nil {
			h.logger.Warn("failed to keep upload copy", "name", in.Name, "error", err.Error())
		}
	}
	return inputs, nil
}

func readUpload(fh *multipart.FileHeader, maxSize int64) ([]byte, error) {
	if fh.Size > maxSize {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("%s exceeds the upload size limit", fh.Filename))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.NewInvalidRequest("could not read upload " + fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, apperrors.NewInvalidRequest("could not read upload " + fh.Filename)
	}
	if int64(len(data)) > maxSize {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("%s exceeds the upload size limit", fh.Filename))
	}
	if strings.TrimSpace(fh.Filename) == "" {
		return nil, apperrors.NewInvalidRequest("upload has no filename")
	}
	return data, nil
}
