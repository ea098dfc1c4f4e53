package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"orderaudit/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"Agency",
	"Cohort Key",
	"Cohort",
	"File Name",
	"Row",
	"Order ID",
	"Status",
	"Outcome",
	"Reason",
	"Days To Sign",
}

// Writer wraps csv.Writer for exporting scored orders of an audit record.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteRecord writes one row per scored order of rec, in file and row
// order. With failuresOnly set, successful orders are skipped.
func (w *Writer) WriteRecord(rec *domain.AuditRecord, failuresOnly bool) error {
	for i := range rec.AuditResults {
		res := &rec.AuditResults[i]
		for _, o := range res.Orders {
			if failuresOnly && o.Outcome != domain.OutcomeFailed {
				continue
			}
			if err := w.csv.Write(orderToRow(res, o)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func orderToRow(res *domain.FileScoreResult, o domain.ScoredOrder) []string {
	row := make([]string, len(columns))
	row[0] = res.Agency
	row[1] = res.CohortKey
	row[2] = string(res.Cohort)
	row[3] = res.FileName
	row[4] = strconv.Itoa(o.RowIndex)
	row[5] = o.OrderID
	row[6] = string(o.Status)
	row[7] = string(o.Outcome)
	row[8] = o.Reason
	if o.DaysToSign != nil {
		row[9] = strconv.Itoa(*o.DaysToSign)
	}
	return row
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns the download name for a record's export.
// Format: {sanitized_agency}_audit_{YYYY-MM-DD}.csv using the run date.
func BuildFilename(rec *domain.AuditRecord) string {
	agency := SanitizeFilename(rec.Agency)
	if agency == "" {
		agency = "orders"
	}
	return fmt.Sprintf("%s_audit_%s.csv", agency, rec.Timestamp.UTC().Format(time.DateOnly))
}
