// Package normalizer turns raw CSV and XLSX order exports into canonical
// domain.OrderRecord sequences.
package normalizer

import (
	"path/filepath"
	"strings"

	"orderaudit/internal/config"
	"orderaudit/internal/domain"
)

// Normalizer reads exports using configured header aliases.
type Normalizer struct {
	idAliases         []string
	statusAliases     []string
	reasonAliases     []string
	signedDateAliases []string
	sentDateAliases   []string
	annotations       map[string]bool
}

// New creates a Normalizer from alias configuration.
func New(cfg config.NormalizerConfig) *Normalizer {
	n := &Normalizer{
		idAliases:         canonicalAll(cfg.IDAliases),
		statusAliases:     canonicalAll(cfg.StatusAliases),
		reasonAliases:     canonicalAll(cfg.ReasonAliases),
		signedDateAliases: canonicalAll(cfg.SignedDateAliases),
		sentDateAliases:   canonicalAll(cfg.SentDateAliases),
		annotations:       make(map[string]bool, len(cfg.AnnotationColumns)),
	}
	for _, c := range canonicalAll(cfg.AnnotationColumns) {
		n.annotations[c] = true
	}
	return n
}

// Normalize parses file into records in source row order. A file whose
// required columns cannot be found returns *domain.MalformedFileError.
// Rows that cannot be read are returned with Unparseable set.
func (n *Normalizer) Normalize(file domain.ExportFile) ([]domain.OrderRecord, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Name)), ".")
	format, ok := domain.AllowedExtensions[ext]
	if !ok {
		return nil, &domain.MalformedFileError{FileName: file.Name, Reason: "unsupported format"}
	}

	var (
		tbl *table
		err error
	)
	switch format {
	case domain.FormatCSV:
		tbl, err = readCSV(file.Data)
	case domain.FormatXLSX:
		tbl, err = readXLSX(file.Data)
	}
	if err != nil {
		return nil, &domain.MalformedFileError{FileName: file.Name, Reason: "unreadable " + string(format) + " (" + err.Error() + ")"}
	}
	if tbl == nil {
		return []domain.OrderRecord{}, nil
	}

	cols, err := n.resolve(file.Name, tbl.header)
	if err != nil {
		return nil, err
	}

	records := make([]domain.OrderRecord, 0, len(tbl.rows))
	for _, row := range tbl.rows {
		rec := domain.OrderRecord{
			TemplateType: file.TemplateType,
			SourceFile:   file.Name,
			RowIndex:     row.index,
			Status:       domain.OrderStatusUnknown,
		}
		if row.broken || (len(row.cells) > len(tbl.header) && hasContent(row.cells[len(tbl.header):])) {
			rec.Unparseable = true
			records = append(records, rec)
			continue
		}
		cols.fill(&rec, row.cells)
		records = append(records, rec)
	}
	return records, nil
}

// columns holds resolved header positions; -1 means absent.
type columns struct {
	id, status, reason, signedAt, sentAt int
	annotations                          []int
	header                               []string
}

func (n *Normalizer) resolve(fileName string, header []string) (*columns, error) {
	canon := make([]string, len(header))
	for i, h := range header {
		canon[i] = canonical(h)
	}

	cols := &columns{
		id:       find(canon, n.idAliases),
		status:   find(canon, n.statusAliases),
		reason:   find(canon, n.reasonAliases),
		signedAt: find(canon, n.signedDateAliases),
		sentAt:   find(canon, n.sentDateAliases),
		header:   header,
	}
	if cols.id < 0 {
		return nil, &domain.MalformedFileError{FileName: fileName, Reason: "missing order id column"}
	}
	if cols.status < 0 {
		return nil, &domain.MalformedFileError{FileName: fileName, Reason: "missing status column"}
	}
	for i, c := range canon {
		if n.annotations[c] {
			cols.annotations = append(cols.annotations, i)
		}
	}
	return cols, nil
}

func (c *columns) fill(rec *domain.OrderRecord, cells []string) {
	rec.OrderID = domain.NormalizeOrderID(cell(cells, c.id))
	rec.Status = ParseStatus(cell(cells, c.status))
	rec.Reason = strings.TrimSpace(cell(cells, c.reason))
	rec.SignedAt = parseDate(cell(cells, c.signedAt))
	rec.SentAt = parseDate(cell(cells, c.sentAt))
	for _, idx := range c.annotations {
		if v := strings.TrimSpace(cell(cells, idx)); v != "" {
			rec.Annotations = append(rec.Annotations, domain.Annotation{
				Column: strings.TrimSpace(c.header[idx]),
				Value:  v,
			})
		}
	}
}

// ParseStatus maps a free-text status cell onto OrderStatus. Negative forms
// are checked first because "unsigned" contains "signed".
func ParseStatus(raw string) domain.OrderStatus {
	v := canonical(raw)
	switch {
	case v == "":
		return domain.OrderStatusUnknown
	case strings.Contains(v, "unsigned"), strings.Contains(v, "not signed"), strings.Contains(v, "pending"):
		return domain.OrderStatusUnsigned
	case strings.Contains(v, "signed"), strings.Contains(v, "completed"):
		return domain.OrderStatusSigned
	default:
		return domain.OrderStatusUnknown
	}
}

// canonical lower-cases, trims, strips a BOM and collapses inner whitespace.
func canonical(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func canonicalAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if c := canonical(s); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// find returns the first header position matching the highest-priority alias.
func find(header, aliases []string) int {
	for _, alias := range aliases {
		for i, h := range header {
			if h == alias {
				return i
			}
		}
	}
	return -1
}

func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

func hasContent(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}
