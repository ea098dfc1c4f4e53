package reconcile_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderaudit/internal/domain"
	"orderaudit/internal/pairing"
	"orderaudit/internal/reconcile"
	"orderaudit/internal/scorer"
)

func side(agency, key string, cohort domain.CohortLabel, ids ...string) *domain.FileScoreResult {
	recs := make([]domain.OrderRecord, 0, len(ids))
	for i, id := range ids {
		recs = append(recs, domain.OrderRecord{OrderID: id, RowIndex: i + 2})
	}
	r := scorer.Score(domain.FileMeta{Name: key + string(cohort), Cohort: cohort, CohortKey: key, Agency: agency}, recs, nil)
	return &r
}

func TestSummarize_SingleCohort(t *testing.T) {
	e := pairing.NewEngine(zerolog.Nop())
	pairs := []domain.PairResult{
		e.Pair("k", "Luna",
			side("Luna", "k", domain.CohortSigned, "A", "B", "C"),
			side("Luna", "k", domain.CohortUnsigned, "B", "C", "D")),
	}

	got := reconcile.Summarize(pairs)
	require.Len(t, got, 1)
	assert.Equal(t, "Luna", got[0].Agency)
	assert.Equal(t, 3, got[0].SignedTotal)
	assert.Equal(t, 3, got[0].UnsignedTotal)
	assert.Equal(t, []string{"D"}, got[0].PendingSignatureOrders)
	assert.Equal(t, []string{"A"}, got[0].SignedWithoutUnsignedSource)
}

// An order signed in one cohort is not pending in another cohort of the
// same agency.
func TestSummarize_AcrossCohorts(t *testing.T) {
	e := pairing.NewEngine(zerolog.Nop())
	pairs := []domain.PairResult{
		e.Pair("k1", "Luna",
			side("Luna", "k1", domain.CohortSigned, "A"),
			side("Luna", "k1", domain.CohortUnsigned, "A", "Z", "M")),
		e.Pair("other", "Acme", nil,
			side("Acme", "other", domain.CohortUnsigned, "Q")),
		e.Pair("k2", "Luna",
			side("Luna", "k2", domain.CohortSigned, "Z", "Z"),
			nil),
	}

	got := reconcile.Summarize(pairs)
	require.Len(t, got, 2)

	luna := got[0]
	assert.Equal(t, "Luna", luna.Agency)
	assert.Equal(t, 3, luna.SignedTotal, "raw rows, duplicates counted per row")
	assert.Equal(t, 3, luna.UnsignedTotal)
	assert.Equal(t, []string{"M"}, luna.PendingSignatureOrders)
	assert.Empty(t, luna.SignedWithoutUnsignedSource)

	acme := got[1]
	assert.Equal(t, "Acme", acme.Agency)
	assert.Equal(t, []string{"Q"}, acme.PendingSignatureOrders)
	assert.LessOrEqual(t, len(acme.PendingSignatureOrders), acme.UnsignedTotal)
}

func TestSummarize_SortedAndDeduplicated(t *testing.T) {
	e := pairing.NewEngine(zerolog.Nop())
	pairs := []domain.PairResult{
		e.Pair("k1", "Luna", nil, side("Luna", "k1", domain.CohortUnsigned, "c", "A", "b")),
		e.Pair("k2", "Luna", nil, side("Luna", "k2", domain.CohortUnsigned, "B", "a")),
	}
	got := reconcile.Summarize(pairs)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"A", "B", "C"}, got[0].PendingSignatureOrders)
	assert.Equal(t, 5, got[0].UnsignedTotal)
}

func TestSummarize_Empty(t *testing.T) {
	got := reconcile.Summarize(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
