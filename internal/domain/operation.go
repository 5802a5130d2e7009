package domain

// OperationKind names one PDF transformation. The set is fixed; anything
// else is rejected before dispatch.
type OperationKind string

const (
	OpMerge           OperationKind = "merge"
	OpSplit           OperationKind = "split"
	OpCompress        OperationKind = "compress"
	OpOptimize        OperationKind = "optimize"
	OpRotate          OperationKind = "rotate"
	OpUnlock          OperationKind = "unlock"
	OpProtect         OperationKind = "protect"
	OpWatermark       OperationKind = "watermark"
	OpExtract         OperationKind = "extract"
	OpAddPageNumbers  OperationKind = "add-page-numbers"
	OpOrganize        OperationKind = "organize"
	OpRemovePages     OperationKind = "remove-pages"
	OpOCR             OperationKind = "ocr"
	OpHTMLToPDF       OperationKind = "html-to-pdf"
	OpRepair          OperationKind = "repair"
	OpCrop            OperationKind = "crop"
	OpCompare         OperationKind = "compare"
	OpSign            OperationKind = "sign"
	OpRedact          OperationKind = "redact"
	OpPDFToPDFA       OperationKind = "pdf-to-pdfa"
	OpWordToPDF       OperationKind = "word-to-pdf"
	OpExcelToPDF      OperationKind = "excel-to-pdf"
	OpPowerPointToPDF OperationKind = "powerpoint-to-pdf"
	OpJPGToPDF        OperationKind = "jpg-to-pdf"
	OpPDFToJPG        OperationKind = "pdf-to-jpg"
	OpPDFToWord       OperationKind = "pdf-to-word"
)

// KnownOperations is the closed set of dispatchable operation kinds.
var KnownOperations = map[OperationKind]bool{
	OpMerge: true, OpSplit: true, OpCompress: true, OpOptimize: true,
	OpRotate: true, OpUnlock: true, OpProtect: true, OpWatermark: true,
	OpExtract: true, OpAddPageNumbers: true, OpOrganize: true,
	OpRemovePages: true, OpOCR: true, OpHTMLToPDF: true, OpRepair: true,
	OpCrop: true, OpCompare: true, OpSign: true, OpRedact: true,
	OpPDFToPDFA: true, OpWordToPDF: true, OpExcelToPDF: true,
	OpPowerPointToPDF: true, OpJPGToPDF: true, OpPDFToJPG: true,
	OpPDFToWord: true,
}

// InputFile is one uploaded byte blob with its original filename.
type InputFile struct {
	Name string
	Data []byte
}

// Options is the configuration bag submitted with a request. Values are
// the raw form-field strings; each operation validates its own recognized
// keys before any document is decoded.
type Options map[string]string

// OperationRequest is the unit of work submitted to the orchestrator.
// Constructed from validated inputs, consumed once, never retained.
type OperationRequest struct {
	Kind    OperationKind
	Inputs  []InputFile
	Options Options
}

// Artifact is one named output produced by an operation, handed to the
// artifact store for persistence.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// OperationResult carries the ordered artifacts of a completed operation.
type OperationResult struct {
	Kind      OperationKind
	Artifacts []Artifact
	Message   string
}
