package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FileMeta describes one export file independently of its contents.
type FileMeta struct {
	Name         string      `json:"file_name"`
	TemplateType string      `json:"template_type"`
	Cohort       CohortLabel `json:"cohort"`
	CohortKey    string      `json:"cohort_key"`
	Agency       string      `json:"agency"`
	EHR          string      `json:"ehr"`
}

// ExportFile is a raw tabular export supplied to a run.
type ExportFile struct {
	FileMeta
	Data []byte
}

// AgencyInput is everything a single audit run needs.
type AgencyInput struct {
	FolderID    string
	Agency      string
	EHR         string
	TriggeredAt time.Time
	Files       []ExportFile
}

// Annotation is a status-detail cell carried from the export.
type Annotation struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// OrderRecord is the canonical form of one export row.
type OrderRecord struct {
	OrderID      string       `json:"order_id"`
	Status       OrderStatus  `json:"status"`
	Reason       string       `json:"reason,omitempty"`
	TemplateType string       `json:"template_type"`
	SourceFile   string       `json:"source_file"`
	RowIndex     int          `json:"row_index"`
	SentAt       *time.Time   `json:"sent_at,omitempty"`
	SignedAt     *time.Time   `json:"signed_at,omitempty"`
	Annotations  []Annotation `json:"annotations,omitempty"`
	Unparseable  bool         `json:"unparseable,omitempty"`
}

// ScoredOrder is the per-row outcome kept on a FileScoreResult.
type ScoredOrder struct {
	OrderID  string      `json:"order_id"`
	Status   OrderStatus `json:"status"`
	Outcome  Outcome     `json:"outcome"`
	Reason   string      `json:"reason"`
	RowIndex int         `json:"row_index"`
	// DaysToSign is set when both the sent and signed dates are known.
	DaysToSign *int `json:"days_to_sign,omitempty"`
}

// Ref is how the order is referenced in failure details: its id, or its
// sheet row when the id is empty.
func (o ScoredOrder) Ref() string {
	if o.OrderID != "" {
		return o.OrderID
	}
	return fmt.Sprintf("Row %d", o.RowIndex)
}

// SLAMetrics summarizes days between sending to and signing by a physician.
type SLAMetrics struct {
	AverageDaysToSign *float64 `json:"average_days_to_sign"`
	MaxDaysToSign     *int     `json:"max_days_to_sign"`
	MinDaysToSign     *int     `json:"min_days_to_sign"`
	MeasuredOrders    int      `json:"measured_orders"`
}

// FileStats aggregates a scored export.
type FileStats struct {
	TotalRows           int           `json:"total_rows"`
	SuccessCount        int           `json:"success_count"`
	FailureCount        int           `json:"failure_count"`
	SuccessRate         float64       `json:"success_rate"`
	FailureRate         float64       `json:"failure_rate"`
	FailureReasonCounts ReasonCounts  `json:"failure_reason_counts"`
	FailureDetails      ReasonDetails `json:"failure_details"`
	SignedCount         int           `json:"signed_count"`
	UnsignedCount       int           `json:"unsigned_count"`
	SLA                 SLAMetrics    `json:"sla"`
}

// FileScoreResult is the scored form of one export (or one merged cohort side).
type FileScoreResult struct {
	FileName     string        `json:"file_name"`
	TemplateType string        `json:"template_type"`
	Cohort       CohortLabel   `json:"cohort"`
	CohortKey    string        `json:"cohort_key"`
	Agency       string        `json:"agency"`
	Stats        FileStats     `json:"stats"`
	Orders       []ScoredOrder `json:"orders"`
	Diagnostic   string        `json:"diagnostic,omitempty"`
}

// OrderIDs returns the distinct non-empty normalized ids of the result.
func (r *FileScoreResult) OrderIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(r.Orders))
	for _, o := range r.Orders {
		if id := NormalizeOrderID(o.OrderID); id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids
}

// DocumentsProcessed counts raw rows on each side of a pair.
type DocumentsProcessed struct {
	Signed   int `json:"signed"`
	Unsigned int `json:"unsigned"`
}

// CombinedSummary is the cross-cohort comparison of a pair. Side rates are
// null when that side has no export.
type CombinedSummary struct {
	DocumentsProcessed          DocumentsProcessed `json:"documents_processed"`
	MatchesFound                int                `json:"matches_found"`
	DiscrepanciesFound          int                `json:"discrepancies_found"`
	FailureRateUnsigned         *float64           `json:"failure_rate_unsigned"`
	FailureRateSigned           *float64           `json:"failure_rate_signed"`
	SuccessRateUnsigned         *float64           `json:"success_rate_unsigned"`
	SuccessRateSigned           *float64           `json:"success_rate_signed"`
	PendingSignatureOrders      []string           `json:"pending_signature_orders"`
	SignedWithoutUnsignedSource []string           `json:"signed_without_unsigned_source"`
	DominantFailureReasons      []string           `json:"dominant_failure_reasons"`
}

// PartialPairingWarning records a cohort that lacks one side. It is data,
// never an error.
type PartialPairingWarning struct {
	MissingCohort CohortLabel `json:"missing_cohort"`
	Message       string      `json:"message"`
}

// PairResult is the matching of one cohort's Signed and Unsigned sides.
type PairResult struct {
	CohortKey       string                 `json:"cohort_key"`
	Agency          string                 `json:"agency"`
	Signed          FileScoreResult        `json:"signed"`
	Unsigned        FileScoreResult        `json:"unsigned"`
	CombinedSummary CombinedSummary        `json:"combined_summary"`
	Warning         *PartialPairingWarning `json:"warning,omitempty"`
}

// ReconciliationSummary is the per-agency roll-up of a run.
type ReconciliationSummary struct {
	Agency                      string   `json:"agency"`
	SignedTotal                 int      `json:"signed_total"`
	UnsignedTotal               int      `json:"unsigned_total"`
	PendingSignatureOrders      []string `json:"pending_signature_orders"`
	SignedWithoutUnsignedSource []string `json:"signed_without_unsigned_source"`
}

// AuditRecord is the immutable historical record of one run.
type AuditRecord struct {
	ID                    uuid.UUID               `json:"id"`
	FolderID              string                  `json:"folder_id"`
	Agency                string                  `json:"agency"`
	EHR                   string                  `json:"ehr"`
	Status                RunStatus               `json:"status"`
	Timestamp             time.Time               `json:"timestamp"`
	RuleSetVersion        string                  `json:"rule_set_version"`
	AuditResults          []FileScoreResult       `json:"audit_results"`
	PairedResults         []PairResult            `json:"paired_results"`
	ReconciliationSummary []ReconciliationSummary `json:"reconciliation_summary"`
}

// RecordFilter narrows an audit history listing.
type RecordFilter struct {
	From   *time.Time
	To     *time.Time
	Agency string
	Limit  int
}

// FileAlert flags an export whose failure rate reached the alert threshold.
type FileAlert struct {
	Agency         string   `json:"agency"`
	FileName       string   `json:"file_name"`
	FailureRate    float64  `json:"failure_rate"`
	FailureReasons []string `json:"failure_reasons"`
}
