package config

import (
	"log"

	"github.com/spf13/afero"

	"pdf-workbench/internal/adapter"
	"pdf-workbench/internal/domain"
	"pdf-workbench/internal/pdf"
	"pdf-workbench/internal/service"
	"pdf-workbench/internal/storage"
	"pdf-workbench/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config       domain.Config
	Logger       domain.Logger
	Codec        domain.Codec
	Orchestrator domain.Orchestrator
	Store        domain.ArtifactStore
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	config := NewConfig()
	appLogger := logger.NewLogger(config.GetLogLevel())

	codec := pdf.NewCodec()

	// Engines
	pageOps := service.NewPageOpsService(appLogger)
	security := service.NewSecurityService(appLogger)
	overlay := service.NewOverlayService(appLogger)
	extractor := adapter.NewPlainTextExtractor(appLogger)
	comparer := service.NewCompareService(extractor, appLogger)
	repairer := pdf.NewRepairer(nil)

	// External conversion adapters
	converters := map[domain.OperationKind]domain.Converter{
		domain.OpWordToPDF:       adapter.NewWordConverter(appLogger),
		domain.OpExcelToPDF:      adapter.NewExcelConverter(appLogger),
		domain.OpPowerPointToPDF: adapter.NewPowerPointConverter(appLogger),
		domain.OpHTMLToPDF:       adapter.NewHTMLConverter(appLogger),
		domain.OpPDFToPDFA:       adapter.NewPDFAConverter(codec, appLogger),
		domain.OpPDFToWord:       adapter.NewPDFToWordConverter(extractor, appLogger),
	}

	orchestrator := service.NewOrchestratorService(service.OrchestratorDeps{
		Codec:      codec,
		PageOps:    pageOps,
		Security:   security,
		Overlay:    overlay,
		Comparer:   comparer,
		Repairer:   repairer,
		Rasterizer: adapter.NewFitzRasterizer(appLogger),
		Images:     adapter.NewPDFCPUImageImporter(appLogger),
		OCR:        adapter.NewTesseractOCR(appLogger),
		Converters: converters,
	}, config, appLogger)

	store, err := storage.NewFileArtifactStore(afero.NewOsFs(), config, appLogger)
	if err != nil {
		log.Fatalf("failed to initialize artifact store: %v", err)
	}

	return &Container{
		Config:       config,
		Logger:       appLogger,
		Codec:        codec,
		Orchestrator: orchestrator,
		Store:        store,
	}
}
