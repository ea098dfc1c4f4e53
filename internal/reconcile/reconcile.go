// Package reconcile rolls pair results up into per-agency reconciliation
// summaries.
package reconcile

import (
	"orderaudit/internal/domain"
	"orderaudit/internal/pairing"
)

type agencyTotals struct {
	summary  domain.ReconciliationSummary
	signed   map[string]struct{}
	unsigned map[string]struct{}
}

// Summarize produces one ReconciliationSummary per agency, in order of first
// appearance. Pending ids are the union of unsigned ids minus the union of
// signed ids across all of the agency's cohorts. Totals are raw row counts.
func Summarize(pairs []domain.PairResult) []domain.ReconciliationSummary {
	index := make(map[string]int)
	var acc []*agencyTotals
	for i := range pairs {
		p := &pairs[i]
		idx, ok := index[p.Agency]
		if !ok {
			idx = len(acc)
			index[p.Agency] = idx
			acc = append(acc, &agencyTotals{
				summary:  domain.ReconciliationSummary{Agency: p.Agency},
				signed:   make(map[string]struct{}),
				unsigned: make(map[string]struct{}),
			})
		}
		a := acc[idx]
		a.summary.SignedTotal += p.Signed.Stats.TotalRows
		a.summary.UnsignedTotal += p.Unsigned.Stats.TotalRows
		for id := range p.Signed.OrderIDs() {
			a.signed[id] = struct{}{}
		}
		for id := range p.Unsigned.OrderIDs() {
			a.unsigned[id] = struct{}{}
		}
	}

	out := make([]domain.ReconciliationSummary, 0, len(acc))
	for _, a := range acc {
		a.summary.PendingSignatureOrders = pairing.Difference(a.unsigned, a.signed)
		a.summary.SignedWithoutUnsignedSource = pairing.Difference(a.signed, a.unsigned)
		out = append(out, a.summary)
	}
	return out
}
