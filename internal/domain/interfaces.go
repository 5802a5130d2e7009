package domain

import "context"

// Codec loads raw PDF bytes into the Document model and serializes back.
// Load classifies damage: a damaged cross-reference table with a walkable
// object stream yields a Repairable document rather than an error.
type Codec interface {
	Load(data []byte) (*Document, error)
	LoadWithPassword(data []byte, password string) (*Document, error)
	Serialize(doc *Document) ([]byte, error)
}

// PageOperations is the pure transformation engine over the Document model.
type PageOperations interface {
	Merge(docs []*Document) (*Document, error)
	Split(doc *Document, pages *PageRange) ([]*Document, error)
	Extract(doc *Document, pages *PageRange) (*Document, error)
	RemovePages(doc *Document, pages *PageRange) (*Document, error)
	Organize(doc *Document, order []int) (*Document, error)
	Rotate(doc *Document, pages *PageRange, angle int) (*Document, error)
	Crop(doc *Document, pages *PageRange, margins CropMargins) (*Document, error)
	Compress(doc *Document) (*Document, error)
}

// CropMargins shrink a page's media box from each edge, in points.
type CropMargins struct {
	Left   float64
	Right  float64
	Bottom float64
	Top    float64
}

// Permissions is the /P bit set granted to the user password holder.
type Permissions int32

// SecurityEngine manages the document encryption state machine:
// Unencrypted -> protect -> Encrypted -> unlock -> Unencrypted.
type SecurityEngine interface {
	Protect(doc *Document, userPassword, ownerPassword string, perms Permissions) (*Document, error)
	Unlock(doc *Document, password string) (*Document, error)
}

// OverlayEngine draws generated content over existing pages.
type OverlayEngine interface {
	Watermark(doc *Document, text string) (*Document, error)
	AddPageNumbers(doc *Document, position string) (*Document, error)
	Sign(doc *Document, signature string) (*Document, error)
	Redact(doc *Document, areas []RedactArea) (*Document, error)
}

// RedactArea is one rectangle to black out, on a 1-based page.
type RedactArea struct {
	Page   int     `json:"page"`
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
}

// Repairer rebuilds a document from damaged bytes.
type Repairer interface {
	Repair(data []byte) (*Document, error)
}

// RepairPolicy decides whether a partially recovered document is worth
// keeping. The recoverability boundary is deliberately pluggable.
type RepairPolicy interface {
	Recoverable(recoveredPages, totalObjects int) bool
}

// Rasterizer renders pages to images.
type Rasterizer interface {
	PageImages(ctx context.Context, pdfData []byte, format string) ([]Artifact, error)
}

// Converter bridges one external format to PDF bytes. Implementations are
// invoked with a timeout; a hung call is an adapter fault, not an engine
// fault.
type Converter interface {
	Convert(ctx context.Context, input InputFile) ([]byte, error)
}

// ImageImporter builds a single PDF out of one or more raster images.
type ImageImporter interface {
	ImportImages(ctx context.Context, inputs []InputFile) ([]byte, error)
}

// OCREngine recognizes text in a scanned document via an external tool.
type OCREngine interface {
	Recognize(ctx context.Context, pdfData []byte, language string) ([]byte, error)
}

// Comparer reports per-page differences between two documents as a PDF.
type Comparer interface {
	Compare(first, second []byte) ([]byte, error)
}

// TextExtractor pulls per-page text out of PDF bytes, for comparison.
type TextExtractor interface {
	PageTexts(pdfData []byte) ([]string, error)
}

// Orchestrator is the single synchronous entry point for all operations.
type Orchestrator interface {
	Execute(ctx context.Context, req *OperationRequest) (*OperationResult, error)
}

// ArtifactStore persists produced artifacts and serves them back by name.
type ArtifactStore interface {
	SaveArtifacts(artifacts []Artifact) ([]string, error)
	SaveUpload(name string, data []byte) (string, error)
	Open(path string) ([]byte, string, error)
	Zip(paths []string) (string, error)
	Cleanup() (int, error)
}

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetUploadPath() string
	GetOutputPath() string
	GetMaxFileSize() int64
	GetMaxConcurrentJobs() int64
	GetOperationTimeout() int
	GetAdapterTimeout() int
	GetArtifactTTLMinutes() int
	GetLogLevel() string
}
