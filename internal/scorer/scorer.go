// Package scorer classifies normalized order records and aggregates them into
// a domain.FileScoreResult. Everything here is a pure function of its inputs.
package scorer

import (
	"strings"

	"github.com/shopspring/decimal"

	"orderaudit/internal/domain"
	"orderaudit/internal/rules"
)

var hundred = decimal.NewFromInt(100)

// Score evaluates every record against rs and aggregates the outcomes.
// The first failing rule decides a record's reason; unparseable rows fail
// with domain.ReasonUnparseableRow.
func Score(meta domain.FileMeta, records []domain.OrderRecord, rs *rules.RuleSet) domain.FileScoreResult {
	orders := make([]domain.ScoredOrder, 0, len(records))
	for i := range records {
		orders = append(orders, scoreOne(&records[i], rs))
	}
	return aggregate(meta, orders)
}

func scoreOne(rec *domain.OrderRecord, rs *rules.RuleSet) domain.ScoredOrder {
	o := domain.ScoredOrder{
		OrderID:  rec.OrderID,
		Status:   rec.Status,
		Outcome:  domain.OutcomeSuccess,
		RowIndex: rec.RowIndex,
	}
	if rec.Unparseable {
		o.Outcome = domain.OutcomeFailed
		o.Reason = domain.ReasonUnparseableRow
		return o
	}
	if rec.SentAt != nil && rec.SignedAt != nil && !rec.SignedAt.Before(*rec.SentAt) {
		days := int(rec.SignedAt.Sub(*rec.SentAt).Hours() / 24)
		o.DaysToSign = &days
	}
	if rs == nil {
		return o
	}
	if reason, failed := rs.Evaluate(rec); failed {
		o.Outcome = domain.OutcomeFailed
		o.Reason = reason
	}
	return o
}

// Malformed is the zero-score result recorded for a file that could not be
// normalized.
func Malformed(meta domain.FileMeta, diagnostic string) domain.FileScoreResult {
	res := Empty(meta)
	res.Diagnostic = diagnostic
	return res
}

// Empty is the placeholder result for a cohort side with no file.
func Empty(meta domain.FileMeta) domain.FileScoreResult {
	return aggregate(meta, nil)
}

// Merge concatenates several results of one cohort side, in argument order,
// and recomputes the statistics over the combined orders.
func Merge(results ...domain.FileScoreResult) domain.FileScoreResult {
	switch len(results) {
	case 0:
		return Empty(domain.FileMeta{})
	case 1:
		return results[0]
	}

	first := results[0]
	meta := domain.FileMeta{
		TemplateType: first.TemplateType,
		Cohort:       first.Cohort,
		CohortKey:    first.CohortKey,
		Agency:       first.Agency,
	}
	var (
		names       []string
		diagnostics []string
		orders      []domain.ScoredOrder
	)
	for _, r := range results {
		names = append(names, r.FileName)
		if r.Diagnostic != "" {
			diagnostics = append(diagnostics, r.Diagnostic)
		}
		orders = append(orders, r.Orders...)
	}
	meta.Name = strings.Join(names, ", ")

	merged := aggregate(meta, orders)
	merged.Diagnostic = strings.Join(diagnostics, "; ")
	return merged
}

func aggregate(meta domain.FileMeta, orders []domain.ScoredOrder) domain.FileScoreResult {
	if orders == nil {
		orders = []domain.ScoredOrder{}
	}
	stats := domain.FileStats{
		TotalRows:           len(orders),
		FailureReasonCounts: domain.ReasonCounts{},
		FailureDetails:      domain.ReasonDetails{},
	}
	for _, o := range orders {
		switch o.Status {
		case domain.OrderStatusSigned:
			stats.SignedCount++
		case domain.OrderStatusUnsigned:
			stats.UnsignedCount++
		}
		if o.Outcome == domain.OutcomeFailed {
			stats.FailureCount++
			stats.FailureReasonCounts.Add(o.Reason, 1)
			stats.FailureDetails.Append(o.Reason, o.Ref())
			continue
		}
		stats.SuccessCount++
	}
	stats.SuccessRate, stats.FailureRate = Rates(stats.SuccessCount, stats.TotalRows)
	stats.SLA = sla(orders)

	return domain.FileScoreResult{
		FileName:     meta.Name,
		TemplateType: meta.TemplateType,
		Cohort:       meta.Cohort,
		CohortKey:    meta.CohortKey,
		Agency:       meta.Agency,
		Stats:        stats,
		Orders:       orders,
	}
}

// Rates returns the success and failure percentages for success of total
// rows, rounded to one decimal place. The failure rate is derived from the
// rounded success rate so the pair always sums to 100; a total of zero
// yields 0 and 0.
func Rates(success, total int) (successRate, failureRate float64) {
	if total <= 0 {
		return 0, 0
	}
	s := decimal.NewFromInt(int64(success)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(1)
	f := hundred.Sub(s)
	return s.InexactFloat64(), f.InexactFloat64()
}

func sla(orders []domain.ScoredOrder) domain.SLAMetrics {
	var (
		m     domain.SLAMetrics
		sum   int64
		lo    int
		hi    int
		first = true
	)
	for _, o := range orders {
		if o.DaysToSign == nil {
			continue
		}
		d := *o.DaysToSign
		m.MeasuredOrders++
		sum += int64(d)
		if first || d < lo {
			lo = d
		}
		if first || d > hi {
			hi = d
		}
		first = false
	}
	if m.MeasuredOrders == 0 {
		return m
	}
	avg := decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(m.MeasuredOrders))).Round(2).InexactFloat64()
	m.AverageDaysToSign = &avg
	m.MinDaysToSign = &lo
	m.MaxDaysToSign = &hi
	return m
}
