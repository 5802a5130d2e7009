package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

// defaultPermissions grants everything the standard security handler can
// express, reserved bits set as required.
const defaultPermissions domain.Permissions = -4

const adapterRetryBackoff = 500 * time.Millisecond

// opSpec declares how one operation kind is validated before dispatch:
// how many inputs it takes and which option keys it understands.
type opSpec struct {
	minInputs  int
	maxInputs  int // 0 means unbounded
	required   []string
	recognized []string
}

var opSpecs = map[domain.OperationKind]opSpec{
	domain.OpMerge:           {minInputs: 2},
	domain.OpSplit:           {minInputs: 1, maxInputs: 1, recognized: []string{"pages"}},
	domain.OpCompress:        {minInputs: 1, maxInputs: 1},
	domain.OpOptimize:        {minInputs: 1, maxInputs: 1},
	domain.OpRotate:          {minInputs: 1, maxInputs: 1, required: []string{"angle"}, recognized: []string{"pages"}},
	domain.OpUnlock:          {minInputs: 1, maxInputs: 1, required: []string{"password"}},
	domain.OpProtect:         {minInputs: 1, maxInputs: 1, required: []string{"password"}, recognized: []string{"owner_password", "permissions"}},
	domain.OpWatermark:       {minInputs: 1, maxInputs: 1, required: []string{"text"}},
	domain.OpExtract:         {minInputs: 1, maxInputs: 1, required: []string{"pages"}},
	domain.OpAddPageNumbers:  {minInputs: 1, maxInputs: 1, recognized: []string{"position"}},
	domain.OpOrganize:        {minInputs: 1, maxInputs: 1, required: []string{"page_order"}},
	domain.OpRemovePages:     {minInputs: 1, maxInputs: 1, required: []string{"pages"}},
	domain.OpOCR:             {minInputs: 1, maxInputs: 1, recognized: []string{"language"}},
	domain.OpHTMLToPDF:       {required: []string{"html_content"}},
	domain.OpRepair:          {minInputs: 1, maxInputs: 1},
	domain.OpCrop:            {minInputs: 1, maxInputs: 1, recognized: []string{"pages", "left", "right", "bottom", "top"}},
	domain.OpCompare:         {minInputs: 2, maxInputs: 2},
	domain.OpSign:            {minInputs: 1, maxInputs: 1, required: []string{"signature"}},
	domain.OpRedact:          {minInputs: 1, maxInputs: 1, required: []string{"areas"}},
	domain.OpPDFToPDFA:       {minInputs: 1, maxInputs: 1},
	domain.OpPDFToWord:       {minInputs: 1, maxInputs: 1},
	domain.OpWordToPDF:       {minInputs: 1, maxInputs: 1},
	domain.OpExcelToPDF:      {minInputs: 1, maxInputs: 1},
	domain.OpPowerPointToPDF: {minInputs: 1, maxInputs: 1},
	domain.OpJPGToPDF:        {minInputs: 1},
	domain.OpPDFToJPG:        {minInputs: 1, maxInputs: 1, recognized: []string{"format"}},
}

// OrchestratorDeps collects everything the orchestrator dispatches to.
type OrchestratorDeps struct {
	Codec      domain.Codec
	PageOps    domain.PageOperations
	Security   domain.SecurityEngine
	Overlay    domain.OverlayEngine
	Comparer   domain.Comparer
	Repairer   domain.Repairer
	Rasterizer domain.Rasterizer
	Images     domain.ImageImporter
	OCR        domain.OCREngine
	Converters map[domain.OperationKind]domain.Converter
}

// OrchestratorService is the single synchronous entry point for all
// operations. It validates requests before any document is decoded, bounds
// in-flight work, and enforces a wall-clock timeout per request.
type OrchestratorService struct {
	deps           OrchestratorDeps
	sem            *semaphore.Weighted
	opTimeout      time.Duration
	adapterTimeout time.Duration
	logger         domain.Logger
}

// NewOrchestratorService creates the orchestrator
func NewOrchestratorService(deps OrchestratorDeps, config domain.Config, logger domain.Logger) *OrchestratorService {
	maxJobs := config.GetMaxConcurrentJobs()
	if maxJobs < 1 {
		maxJobs = 1
	}
	return &OrchestratorService{
		deps:           deps,
		sem:            semaphore.NewWeighted(maxJobs),
		opTimeout:      time.Duration(config.GetOperationTimeout()) * time.Second,
		adapterTimeout: time.Duration(config.GetAdapterTimeout()) * time.Second,
		logger:         logger,
	}
}

// Execute runs one operation request to completion.
func (s *OrchestratorService) Execute(ctx context.Context, req *domain.OperationRequest) (*domain.OperationResult, error) {
	if !domain.KnownOperations[req.Kind] {
		return nil, apperrors.NewUnsupportedOperation(fmt.Sprintf("unknown operation %q", req.Kind))
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, apperrors.NewTimeout("gave up waiting for a worker slot")
	}
	defer s.sem.Release(1)

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	start := time.Now()
	type outcome struct {
		result *domain.OperationResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := s.dispatch(opCtx, req)
		done <- outcome{result, err}
	}()

	select {
	case <-opCtx.Done():
		if errors.Is(opCtx.Err(), context.Canceled) {
			s.logger.Warn("operation canceled by caller", "kind", req.Kind, "elapsed", time.Since(start).String())
			return nil, opCtx.Err()
		}
		s.logger.Warn("operation abandoned", "kind", req.Kind, "elapsed", time.Since(start).String())
		return nil, apperrors.NewTimeout(fmt.Sprintf("operation %s did not finish in time", req.Kind))
	case o := <-done:
		if o.err != nil {
			s.logger.Error("operation failed", o.err, "kind", req.Kind)
			return nil, o.err
		}
		s.logger.Info("operation finished",
			"kind", req.Kind, "artifacts", len(o.result.Artifacts), "elapsed", time.Since(start).String())
		return o.result, nil
	}
}

func validateRequest(req *domain.OperationRequest) error {
	spec := opSpecs[req.Kind]
	if len(req.Inputs) < spec.minInputs {
		return apperrors.NewInvalidRequest(
			fmt.Sprintf("%s needs at least %d input file(s), got %d", req.Kind, spec.minInputs, len(req.Inputs)))
	}
	if spec.maxInputs > 0 && len(req.Inputs) > spec.maxInputs {
		return apperrors.NewInvalidRequest(
			fmt.Sprintf("%s takes at most %d input file(s), got %d", req.Kind, spec.maxInputs, len(req.Inputs)))
	}
	for _, key := range spec.required {
		if strings.TrimSpace(req.Options[key]) == "" {
			return apperrors.NewInvalidRequest(fmt.Sprintf("%s requires option %q", req.Kind, key))
		}
	}
	allowed := make(map[string]bool, len(spec.required)+len(spec.recognized))
	for _, key := range spec.required {
		allowed[key] = true
	}
	for _, key := range spec.recognized {
		allowed[key] = true
	}
	for key := range req.Options {
		if !allowed[key] {
			return apperrors.NewInvalidRequest(fmt.Sprintf("%s does not recognize option %q", req.Kind, key))
		}
	}
	for i, in := range req.Inputs {
		if len(in.Data) == 0 {
			return apperrors.NewInvalidRequest(fmt.Sprintf("input file %d (%s) is empty", i+1, in.Name))
		}
	}
	return nil
}

func (s *OrchestratorService) dispatch(ctx context.Context, req *domain.OperationRequest) (*domain.OperationResult, error) {
	switch req.Kind {
	case domain.OpMerge:
		return s.runMerge(req)
	case domain.OpSplit:
		return s.runSplit(req)
	case domain.OpCompress, domain.OpOptimize:
		return s.runCompress(req)
	case domain.OpRotate:
		return s.runRotate(req)
	case domain.OpUnlock:
		return s.runUnlock(req)
	case domain.OpProtect:
		return s.runProtect(req)
	case domain.OpWatermark:
		return s.runWatermark(req)
	case domain.OpExtract:
		return s.runExtract(req)
	case domain.OpAddPageNumbers:
		return s.runAddPageNumbers(req)
	case domain.OpOrganize:
		return s.runOrganize(req)
	case domain.OpRemovePages:
		return s.runRemovePages(req)
	case domain.OpRepair:
		return s.runRepair(req)
	case domain.OpCrop:
		return s.runCrop(req)
	case domain.OpCompare:
		return s.runCompare(req)
	case domain.OpSign:
		return s.runSign(req)
	case domain.OpRedact:
		return s.runRedact(req)
	case domain.OpOCR:
		return s.runOCR(ctx, req)
	case domain.OpPDFToJPG:
		return s.runPDFToJPG(ctx, req)
	case domain.OpJPGToPDF:
		return s.runJPGToPDF(ctx, req)
	case domain.OpHTMLToPDF:
		return s.runHTMLToPDF(ctx, req)
	case domain.OpWordToPDF, domain.OpExcelToPDF, domain.OpPowerPointToPDF, domain.OpPDFToPDFA:
		return s.runConversion(ctx, req, "converted.pdf", "application/pdf")
	case domain.OpPDFToWord:
		return s.runConversion(ctx, req, "converted.docx",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	default:
		return nil, apperrors.NewUnsupportedOperation(fmt.Sprintf("unknown operation %q", req.Kind))
	}
}

func (s *OrchestratorService) loadInput(in domain.InputFile) (*domain.Document, error) {
	return s.deps.Codec.Load(in.Data)
}

func (s *OrchestratorService) pdfResult(req *domain.OperationRequest, doc *domain.Document, name string) (*domain.OperationResult, error) {
	data, err := s.deps.Codec.Serialize(doc)
	if err != nil {
		return nil, err
	}
	return &domain.OperationResult{
		Kind:      req.Kind,
		Artifacts: []domain.Artifact{{Name: name, ContentType: "application/pdf", Data: data}},
	}, nil
}

func (s *OrchestratorService) runMerge(req *domain.OperationRequest) (*domain.OperationResult, error) {
	docs := make([]*domain.Document, 0, len(req.Inputs))
	for _, in := range req.Inputs {
		doc, err := s.loadInput(in)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	merged, err := s.deps.PageOps.Merge(docs)
	if err != nil {
		return nil, err
	}
	return s.pdfResult(req, merged, "merged.pdf")
}

func (s *OrchestratorService) runSplit(req *domain.OperationRequest) (*domain.OperationResult, error) {
	doc, err := s.loadInput(req.Inputs[0])
	if err != nil {
		return nil, err
	}
	pages, err := optionalRange(req.Options, "pages")
	if err != nil {
		return nil, err
	}
	parts, err := s.deps.PageOps.Split(doc, pages)
	if err != nil {
		return nil, err
	}
	result := &domain.OperationResult{Kind: req.Kind}
	for i, part := range parts {
		data, err := s.deps.Codec.Serialize(part)
		if err != nil {
			return nil, err
		}
		result.Artifacts = append(result.Artifacts, domain.Artifact{
			Name:        fmt.Sprintf("split_part_%d.pdf", i+1),
			ContentType: "application/pdf",
			Data:        data,
		})
	}
	return result, nil
}

func (s *OrchestratorService) runCompress(req *domain.OperationRequest) (*domain.OperationResult, error) {
	doc, err := s.loadInput(req.Inputs[0])
	if err != nil {
		return nil, err
	}
	out, err := s.deps.PageOps.Compress(doc)
	if err != nil {
		return nil, err
	}
	return s.pdfResult(req, out, "compressed.pdf")
}

func (s *OrchestratorService) runRotate(req *domain.OperationRequest) (*domain.OperationResult, error) {
	angle, err := parseAngle(req.Options["angle"])
	if err != nil {
		return nil, err
	}
	pages, err := optionalRange(req.Options, "pages")
	if err != nil {
		return nil, err
	}
	doc, err := s.loadInput(req.Inputs[0])
	if err != nil {
		return nil, err
	}
	out, err := s.deps.PageOps.Rotate(doc, pages, angle)
	if err != nil {
		return nil, err
	}
	return s.pdfResult(req, out, "rotated.pdf")
}

func (s *OrchestratorService) runUnlock(req *domain.OperationRequest) (*domain.OperationResult, error) {
	password := req.Options["password"]
	doc, err := s.deps.Codec.LoadWithPassword(req.Inputs[0].Data, password)
	if err != nil {
		return nil, err
	}
	out, err := s.deps.Security.Unlock(doc, password)
	if err != nil {
		return nil, err
	}
	return s.pdfResult(req, out, "unlocked.pdf")
}

func (s *OrchestratorService) runProtect(req *domain.OperationRequest) (*domain.OperationResult, error) {
	perms := defaultPermissions
	if raw, ok := req.Options["permissions"]; ok {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, apperrors.NewInvalidRequest(fmt.Sprintf("invalid permissions value %q", raw))
		}
		perms = domain.Permissions(parsed)
	}
	doc, err := s.loadInput(req.Inputs[0])
	if err != nil {
		return nil, err
	}
	out, err := s.deps.Security.Protect(doc, req.Options["password"], req.Options["owner_password"], perms)
	if err != nil {
		return nil, err
	}
	return s.pdfResult(req, out, "protected.pdf")
}

func (s *OrchestratorService) runWatermark(req *domain.OperationRequest) (*domain.OperationResult, error) {
	doc, err := s.loadInput(req.Inputs[0])
	if err != nil {
		return nil, err
	}
	out, err := s.deps.Overlay.Watermark(doc, req.Options["text"])
	if err != nil {
		return nil, err
	}
	return s.pdfResult(req, out, "watermarked.pdf")
}

func (s *OrchestratorService) runExtract(req *domain.OperationRequest) (*domain.OperationResult, error) {
	pages, err := domain.ParsePageRange(req.Options["pages"])
	if err != nil {
		return nil, err
	}
	doc, err := s.loadInput(req.Inputs[0])
	if err != nil {
		return nil, err
	}
	out, err := s.deps.PageOps.Extract(doc, pages)
	if err != nil {
		return nil, err
	}
	return s.pdfResult(req, out, "extracted.pdf")
}

func (s *OrchestratorService) runAddPageNumbers(req *domain.OperationRequest) (*domain.OperationResult, error) {
	doc, err := s.loadInput(req.Inputs[0])
	if err != nil {
		return nil, err
	}
	out, err := s.deps.Overlay.AddPageNumbers(doc, req.Options["position"])
	if err != nil {
		return nil, err
	}
	return s.pdfResult(req, out, "numbered.pdf")
}

func (s *OrchestratorService) runOrganize(req *domain.OperationRequest) (*domain.OperationResult, error) {
	order, err := parsePageOrder(req.Options["page_order"])
	if err != nil {
		return nil, err
	}
	doc, err := s.loadInput(req.Inputs[0])
	if err != nil {
		return nil, err
	}
	out, err := s.deps.PageOps.Organize(doc, order)
	if err != nil {
		return nil, err
	}
	return s.pdfResult(req, out, "organized.pdf")
}

func (s *OrchestratorService) runRemovePages(req *domain.OperationRequest) (*domain.OperationResult, error) {
	pages, err := domain.ParsePageRange(req.Options["pages"])
	if err != nil {
		return nil, err
	}
	doc, err := s.loadInput(req.Inputs[0])
	if err != nil {
		return nil, err
	}
	out, err := s.deps.PageOps.RemovePages(doc, pages)
	if err != nil {
		return nil, err
	}
	return s.pdfResult(req, out, "removed.pdf")
}

func (s *OrchestratorService) runRepair(req *domain.OperationRequest) (*domain.OperationResult, error) {
	out, err := s.deps.Repairer.Repair(req.Inputs[0].Data)
	if err != nil {
		return nil, err
	}
	return s.pdfResult(req, out, "repaired.pdf")
}

func (s *OrchestratorService) runCrop(req *domain.OperationRequest) (*domain.OperationResult, error) {
	margins, err := parseMargins(req.Options)
	if err != nil {
		return nil, err
	}
	pages, err := optionalRange(req.Options, "pages")
	if err != nil {
		return nil, err
	}
	doc, err := s.loadInput(req.Inputs[0])
	if err != nil {
		return nil, err
	}
	out, err := s.deps.PageOps.Crop(doc, pages, margins)
	if err != nil {
		return nil, err
	}
	return s.pdfResult(req, out, "cropped.pdf")
}

func (s *OrchestratorService) runCompare(req *domain.OperationRequest) (*domain.OperationResult, error) {
	report, err := s.deps.Comparer.Compare(req.Inputs[0].Data, req.Inputs[1].Data)
	if err != nil {
		return nil, err
	}
	return &domain.OperationResult{
		Kind:      req.Kind,
		Artifacts: []domain.Artifact{{Name: "comparison_report.pdf", ContentType: "application/pdf", Data: report}},
	}, nil
}

func (s *OrchestratorService) runSign(req *domain.OperationRequest) (*domain.OperationResult, error) {
	doc, err := s.loadInput(req.Inputs[0])
	if err != nil {
		return nil, err
	}
	out, err := s.deps.Overlay.Sign(doc, req.Options["signature"])
	if err != nil {
		return nil, err
	}
	return s.pdfResult(req, out, "signed.pdf")
}

func (s *OrchestratorService) runRedact(req *domain.OperationRequest) (*domain.OperationResult, error) {
	var areas []domain.RedactArea
	if err := json.Unmarshal([]byte(req.Options["areas"]), &areas); err != nil {
		return nil, apperrors.NewInvalidRequest("areas must be a JSON list of rectangles", err.Error())
	}
	doc, err := s.loadInput(req.Inputs[0])
	if err != nil {
		return nil, err
	}
	out, err := s.deps.Overlay.Redact(doc, areas)
	if err != nil {
		return nil, err
	}
	return s.pdfResult(req, out, "redacted.pdf")
}

func (s *OrchestratorService) runOCR(ctx context.Context, req *domain.OperationRequest) (*domain.OperationResult, error) {
	language := req.Options["language"]
	if language == "" {
		language = "eng"
	}
	var data []byte
	err := s.withAdapterRetry(ctx, func(callCtx context.Context) error {
		var callErr error
		data, callErr = s.deps.OCR.Recognize(callCtx, req.Inputs[0].Data, language)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return &domain.OperationResult{
		Kind:      req.Kind,
		Artifacts: []domain.Artifact{{Name: "ocr.pdf", ContentType: "application/pdf", Data: data}},
	}, nil
}

func (s *OrchestratorService) runPDFToJPG(ctx context.Context, req *domain.OperationRequest) (*domain.OperationResult, error) {
	format := req.Options["format"]
	if format == "" {
		format = "jpg"
	}
	var images []domain.Artifact
	err := s.withAdapterRetry(ctx, func(callCtx context.Context) error {
		var callErr error
		images, callErr = s.deps.Rasterizer.PageImages(callCtx, req.Inputs[0].Data, format)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return &domain.OperationResult{Kind: req.Kind, Artifacts: images}, nil
}

func (s *OrchestratorService) runHTMLToPDF(ctx context.Context, req *domain.OperationRequest) (*domain.OperationResult, error) {
	input := domain.InputFile{Name: "content.html", Data: []byte(req.Options["html_content"])}
	return s.convert(ctx, req, input, "converted.pdf", "application/pdf")
}

func (s *OrchestratorService) runJPGToPDF(ctx context.Context, req *domain.OperationRequest) (*domain.OperationResult, error) {
	var data []byte
	err := s.withAdapterRetry(ctx, func(callCtx context.Context) error {
		var callErr error
		data, callErr = s.deps.Images.ImportImages(callCtx, req.Inputs)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return &domain.OperationResult{
		Kind:      req.Kind,
		Artifacts: []domain.Artifact{{Name: "converted.pdf", ContentType: "application/pdf", Data: data}},
	}, nil
}

func (s *OrchestratorService) runConversion(ctx context.Context, req *domain.OperationRequest, name, contentType string) (*domain.OperationResult, error) {
	return s.convert(ctx, req, req.Inputs[0], name, contentType)
}

func (s *OrchestratorService) convert(ctx context.Context, req *domain.OperationRequest, input domain.InputFile, name, contentType string) (*domain.OperationResult, error) {
	conv, ok := s.deps.Converters[req.Kind]
	if !ok {
		return nil, apperrors.NewUnsupportedOperation(fmt.Sprintf("no converter registered for %s", req.Kind))
	}
	var data []byte
	err := s.withAdapterRetry(ctx, func(callCtx context.Context) error {
		var callErr error
		data, callErr = conv.Convert(callCtx, input)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return &domain.OperationResult{
		Kind:      req.Kind,
		Artifacts: []domain.Artifact{{Name: name, ContentType: contentType, Data: data}},
	}, nil
}

// withAdapterRetry invokes an external adapter under the adapter timeout,
// retrying once with backoff. Deterministic classifications (bad input,
// malformed document) are never retried; adapter failures and unclassified
// errors get one more attempt before surfacing.
func (s *OrchestratorService) withAdapterRetry(ctx context.Context, call func(context.Context) error) error {
	attempt := func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.adapterTimeout)
		defer cancel()
		return call(callCtx)
	}

	err := attempt()
	if err == nil {
		return nil
	}
	surfaced, retryable := classifyAdapterError(err)
	if !retryable {
		return surfaced
	}

	s.logger.Warn("adapter call failed, retrying", "error", err.Error())
	time.Sleep(adapterRetryBackoff)

	err = attempt()
	if err == nil {
		return nil
	}
	surfaced, _ = classifyAdapterError(err)
	return surfaced
}

// classifyAdapterError maps an adapter error to the form surfaced to the
// caller and reports whether another attempt may help.
func classifyAdapterError(err error) (surfaced error, retryable bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewAdapterTimeout("conversion tool did not respond in time", err), false
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err, appErr.Kind == apperrors.KindAdapterFailure
	}
	return apperrors.NewAdapterFailure("conversion tool failed", err), true
}

func optionalRange(opts domain.Options, key string) (*domain.PageRange, error) {
	raw := strings.TrimSpace(opts[key])
	if raw == "" {
		return nil, nil
	}
	return domain.ParsePageRange(raw)
}

func parseAngle(raw string) (int, error) {
	angle, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperrors.NewInvalidRequest(fmt.Sprintf("invalid angle %q", raw))
	}
	switch angle {
	case 90, 180, 270, -90:
		return angle, nil
	default:
		return 0, apperrors.NewInvalidRequest(fmt.Sprintf("angle must be one of 90, 180, 270, -90, got %d", angle))
	}
}

func parsePageOrder(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	order := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, apperrors.NewInvalidRequest(fmt.Sprintf("invalid page order entry %q", part))
		}
		order = append(order, n)
	}
	return order, nil
}

func parseMargins(opts domain.Options) (domain.CropMargins, error) {
	var m domain.CropMargins
	fields := []struct {
		key string
		dst *float64
	}{
		{"left", &m.Left}, {"right", &m.Right}, {"bottom", &m.Bottom}, {"top", &m.Top},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(opts[f.key])
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return m, apperrors.NewInvalidRequest(fmt.Sprintf("invalid %s margin %q", f.key, raw))
		}
		*f.dst = v
	}
	return m, nil
}
