// Package pairing matches the Signed and Unsigned sides of each cohort by
// normalized order id.
package pairing

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"orderaudit/internal/domain"
	"orderaudit/internal/scorer"
)

// maxDominantReasons caps CombinedSummary.DominantFailureReasons.
const maxDominantReasons = 5

// Cohort is every scored file sharing one agency and cohort key, split by side.
type Cohort struct {
	Key      string
	Agency   string
	Signed   []domain.FileScoreResult
	Unsigned []domain.FileScoreResult
}

// GroupCohorts buckets results by (agency, cohort key) in first-appearance
// order. Files keep their input order within a side.
func GroupCohorts(results []domain.FileScoreResult) []Cohort {
	type key struct{ agency, cohort string }
	index := make(map[key]int)
	var out []Cohort
	for _, r := range results {
		k := key{r.Agency, r.CohortKey}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Cohort{Key: r.CohortKey, Agency: r.Agency})
		}
		if r.Cohort == domain.CohortSigned {
			out[i].Signed = append(out[i].Signed, r)
		} else {
			out[i].Unsigned = append(out[i].Unsigned, r)
		}
	}
	return out
}

// Engine pairs cohorts and reports partial pairings.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates an Engine logging to log.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "pairing").Logger()}
}

// PairCohort merges each side of c and pairs them.
func (e *Engine) PairCohort(c Cohort) domain.PairResult {
	var signed, unsigned *domain.FileScoreResult
	if len(c.Signed) > 0 {
		m := scorer.Merge(c.Signed...)
		signed = &m
	}
	if len(c.Unsigned) > 0 {
		m := scorer.Merge(c.Unsigned...)
		unsigned = &m
	}
	return e.Pair(c.Key, c.Agency, signed, unsigned)
}

// Pair matches signed against unsigned. A nil side is replaced by an empty
// placeholder and recorded as a PartialPairingWarning.
func (e *Engine) Pair(key, agency string, signed, unsigned *domain.FileScoreResult) domain.PairResult {
	res := domain.PairResult{CohortKey: key, Agency: agency}

	switch {
	case signed == nil && unsigned == nil:
		res.Signed = placeholder(key, agency, domain.CohortSigned)
		res.Unsigned = placeholder(key, agency, domain.CohortUnsigned)
		res.Warning = &domain.PartialPairingWarning{
			MissingCohort: domain.CohortSigned,
			Message:       fmt.Sprintf("cohort %q has no exports", key),
		}
	case signed == nil:
		res.Signed = placeholder(key, agency, domain.CohortSigned)
		res.Unsigned = *unsigned
		res.Warning = missing(key, domain.CohortSigned)
	case unsigned == nil:
		res.Signed = *signed
		res.Unsigned = placeholder(key, agency, domain.CohortUnsigned)
		res.Warning = missing(key, domain.CohortUnsigned)
	default:
		res.Signed = *signed
		res.Unsigned = *unsigned
	}

	if res.Warning != nil {
		e.log.Warn().
			Str("cohort_key", key).
			Str("agency", agency).
			Str("missing_cohort", string(res.Warning.MissingCohort)).
			Msg("partial pairing")
	}

	res.CombinedSummary = combine(&res.Signed, &res.Unsigned)
	if signed != nil {
		res.CombinedSummary.SuccessRateSigned, res.CombinedSummary.FailureRateSigned = rates(signed)
	}
	if unsigned != nil {
		res.CombinedSummary.SuccessRateUnsigned, res.CombinedSummary.FailureRateUnsigned = rates(unsigned)
	}
	return res
}

func rates(r *domain.FileScoreResult) (success, failure *float64) {
	sr, fr := r.Stats.SuccessRate, r.Stats.FailureRate
	return &sr, &fr
}

func placeholder(key, agency string, side domain.CohortLabel) domain.FileScoreResult {
	tmpl := domain.TemplateUnsigned
	if side == domain.CohortSigned {
		tmpl = domain.TemplateSigned
	}
	return scorer.Empty(domain.FileMeta{
		TemplateType: tmpl,
		Cohort:       side,
		CohortKey:    key,
		Agency:       agency,
	})
}

func missing(key string, side domain.CohortLabel) *domain.PartialPairingWarning {
	return &domain.PartialPairingWarning{
		MissingCohort: side,
		Message:       fmt.Sprintf("no %s export found for cohort %q", side, key),
	}
}

func combine(signed, unsigned *domain.FileScoreResult) domain.CombinedSummary {
	s := signed.OrderIDs()
	u := unsigned.OrderIDs()

	matches := 0
	for id := range s {
		if _, ok := u[id]; ok {
			matches++
		}
	}
	pending := Difference(u, s)
	orphans := Difference(s, u)

	return domain.CombinedSummary{
		DocumentsProcessed: domain.DocumentsProcessed{
			Signed:   signed.Stats.TotalRows,
			Unsigned: unsigned.Stats.TotalRows,
		},
		MatchesFound:                matches,
		DiscrepanciesFound:          len(pending) + len(orphans),
		PendingSignatureOrders:      pending,
		SignedWithoutUnsignedSource: orphans,
		DominantFailureReasons:      dominantReasons(unsigned, signed),
	}
}

// Difference returns the sorted ids in a that are absent from b.
func Difference(a, b map[string]struct{}) []string {
	out := make([]string, 0)
	for id := range a {
		if _, ok := b[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func dominantReasons(results ...*domain.FileScoreResult) []string {
	out := make([]string, 0, maxDominantReasons)
	seen := make(map[string]bool)
	for _, r := range results {
		for _, reason := range r.Stats.FailureReasonCounts.Reasons() {
			if seen[reason] {
				continue
			}
			seen[reason] = true
			out = append(out, reason)
			if len(out) == maxDominantReasons {
				return out
			}
		}
	}
	return out
}
