package domain

// OrderStatus is the signature state of a single order row.
type OrderStatus string

const (
	OrderStatusSigned   OrderStatus = "Signed"
	OrderStatusUnsigned OrderStatus = "Unsigned"
	OrderStatusUnknown  OrderStatus = "Unknown"
)

// Outcome is the scoring verdict for a single order row.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// CohortLabel identifies which side of a pairing an export belongs to.
type CohortLabel string

const (
	CohortSigned   CohortLabel = "Signed"
	CohortUnsigned CohortLabel = "Unsigned"
)

// Template types inferred from export file names.
const (
	TemplateSigned   = "signed"
	TemplateUnsigned = "unsigned"
	TemplateMixed    = "mixed"
)

// RunStatus is the derived business outcome of an audit run.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "Success"
	RunStatusFailed  RunStatus = "Failed"
)

// ReasonUnparseableRow is recorded for rows whose structure could not be read.
const ReasonUnparseableRow = "Unparseable row"

// ExportFormat is a supported tabular export format.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// AllowedExtensions maps file extensions (without dot) to ExportFormat.
var AllowedExtensions = map[string]ExportFormat{
	"csv":  FormatCSV,
	"xlsx": FormatXLSX,
	"xlsm": FormatXLSX,
}
