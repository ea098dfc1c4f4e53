package pairing_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderaudit/internal/domain"
	"orderaudit/internal/pairing"
	"orderaudit/internal/scorer"
)

func scored(name string, cohort domain.CohortLabel, ids ...string) domain.FileScoreResult {
	tmpl := domain.TemplateUnsigned
	if cohort == domain.CohortSigned {
		tmpl = domain.TemplateSigned
	}
	recs := make([]domain.OrderRecord, 0, len(ids))
	for i, id := range ids {
		recs = append(recs, domain.OrderRecord{OrderID: id, RowIndex: i + 2})
	}
	return scorer.Score(domain.FileMeta{
		Name:         name,
		TemplateType: tmpl,
		Cohort:       cohort,
		CohortKey:    "Axxess-Luna",
		Agency:       "Luna",
	}, recs, nil)
}

func TestPair_SignedAndUnsigned(t *testing.T) {
	e := pairing.NewEngine(zerolog.Nop())
	signed := scored("s.csv", domain.CohortSigned, "A", "B", "C")
	unsigned := scored("u.csv", domain.CohortUnsigned, "B", "C", "D")

	res := e.Pair("Axxess-Luna", "Luna", &signed, &unsigned)

	cs := res.CombinedSummary
	assert.Equal(t, 2, cs.MatchesFound)
	assert.Equal(t, 2, cs.DiscrepanciesFound)
	assert.Equal(t, []string{"D"}, cs.PendingSignatureOrders)
	assert.Equal(t, []string{"A"}, cs.SignedWithoutUnsignedSource)
	assert.Equal(t, domain.DocumentsProcessed{Signed: 3, Unsigned: 3}, cs.DocumentsProcessed)
	assert.Nil(t, res.Warning)
	assert.LessOrEqual(t, cs.MatchesFound+cs.DiscrepanciesFound, cs.DocumentsProcessed.Signed+cs.DocumentsProcessed.Unsigned)

	require.NotNil(t, cs.SuccessRateSigned)
	require.NotNil(t, cs.FailureRateSigned)
	require.NotNil(t, cs.SuccessRateUnsigned)
	require.NotNil(t, cs.FailureRateUnsigned)
	assert.Equal(t, 100.0, *cs.SuccessRateSigned)
	assert.Equal(t, 0.0, *cs.FailureRateSigned)
	assert.Equal(t, 100.0, *cs.SuccessRateUnsigned)
	assert.Equal(t, 0.0, *cs.FailureRateUnsigned)
}

func TestPair_MissingUnsignedSide(t *testing.T) {
	var buf bytes.Buffer
	e := pairing.NewEngine(zerolog.New(&buf))
	signed := scored("s.csv", domain.CohortSigned, "A", "B", "C", "D", "E")

	res := e.Pair("Axxess-Luna", "Luna", &signed, nil)

	assert.Equal(t, 0, res.CombinedSummary.MatchesFound)
	assert.Equal(t, 5, res.CombinedSummary.DiscrepanciesFound)
	assert.Equal(t, 0, res.Unsigned.Stats.TotalRows)
	assert.Empty(t, res.Unsigned.Orders)
	assert.Equal(t, domain.CohortUnsigned, res.Unsigned.Cohort)
	require.NotNil(t, res.Warning)
	assert.Equal(t, domain.CohortUnsigned, res.Warning.MissingCohort)
	assert.Contains(t, buf.String(), "partial pairing")

	cs := res.CombinedSummary
	assert.Nil(t, cs.SuccessRateUnsigned)
	assert.Nil(t, cs.FailureRateUnsigned)
	require.NotNil(t, cs.SuccessRateSigned)
	assert.Equal(t, 100.0, *cs.SuccessRateSigned)

	data, err := json.Marshal(cs)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"failure_rate_unsigned":null`)
	assert.Contains(t, string(data), `"success_rate_signed":100`)
}

func TestPair_MissingSignedSide(t *testing.T) {
	e := pairing.NewEngine(zerolog.Nop())
	unsigned := scored("u.csv", domain.CohortUnsigned, "X", "Y")

	res := e.Pair("Axxess-Luna", "Luna", nil, &unsigned)

	assert.Equal(t, []string{"X", "Y"}, res.CombinedSummary.PendingSignatureOrders)
	require.NotNil(t, res.Warning)
	assert.Equal(t, domain.CohortSigned, res.Warning.MissingCohort)
	assert.Equal(t, domain.TemplateSigned, res.Signed.TemplateType)
}

func TestPair_NormalizedIDs(t *testing.T) {
	e := pairing.NewEngine(zerolog.Nop())
	signed := scored("s.csv", domain.CohortSigned, "ab-1", " AB-2 ", "")
	unsigned := scored("u.csv", domain.CohortUnsigned, "AB-1", "ab-2", "")

	res := e.Pair("k", "Luna", &signed, &unsigned)

	assert.Equal(t, 2, res.CombinedSummary.MatchesFound)
	assert.Equal(t, 0, res.CombinedSummary.DiscrepanciesFound)
	assert.Equal(t, 3, res.CombinedSummary.DocumentsProcessed.Signed, "empty ids still count as rows")
}

func TestPair_DuplicateIDsCountOnce(t *testing.T) {
	e := pairing.NewEngine(zerolog.Nop())
	signed := scored("s.csv", domain.CohortSigned, "A", "A", "B")
	unsigned := scored("u.csv", domain.CohortUnsigned, "A")

	res := e.Pair("k", "Luna", &signed, &unsigned)
	assert.Equal(t, 1, res.CombinedSummary.MatchesFound)
	assert.Equal(t, 1, res.CombinedSummary.DiscrepanciesFound)
}

func TestPair_DominantFailureReasons(t *testing.T) {
	e := pairing.NewEngine(zerolog.Nop())
	mk := func(cohort domain.CohortLabel, reasons ...string) domain.FileScoreResult {
		r := scored("f.csv", cohort)
		for _, reason := range reasons {
			r.Stats.FailureReasonCounts.Add(reason, 1)
		}
		return r
	}
	signed := mk(domain.CohortSigned, "s1", "shared", "s2", "s3")
	unsigned := mk(domain.CohortUnsigned, "u1", "shared", "u2")

	res := e.Pair("k", "Luna", &signed, &unsigned)
	assert.Equal(t, []string{"u1", "shared", "u2", "s1", "s2"}, res.CombinedSummary.DominantFailureReasons)
}

func TestGroupCohorts(t *testing.T) {
	other := scored("other_Signed.csv", domain.CohortSigned, "Z")
	other.CohortKey = "Kinnser-Acme"
	other.Agency = "Acme"

	results := []domain.FileScoreResult{
		scored("a_Unsigned.csv", domain.CohortUnsigned, "B"),
		other,
		scored("a_Signed.csv", domain.CohortSigned, "A"),
		scored("a_Signed_2.csv", domain.CohortSigned, "C"),
	}
	cohorts := pairing.GroupCohorts(results)

	require.Len(t, cohorts, 2)
	assert.Equal(t, "Axxess-Luna", cohorts[0].Key)
	assert.Len(t, cohorts[0].Signed, 2)
	assert.Len(t, cohorts[0].Unsigned, 1)
	assert.Equal(t, "a_Signed.csv", cohorts[0].Signed[0].FileName)
	assert.Equal(t, "Kinnser-Acme", cohorts[1].Key)
	assert.Empty(t, cohorts[1].Unsigned)
}

// Multiple signed exports for one cohort are concatenated before matching.
func TestPairCohort_MergesMultipleFiles(t *testing.T) {
	e := pairing.NewEngine(zerolog.Nop())
	c := pairing.Cohort{
		Key:    "Axxess-Luna",
		Agency: "Luna",
		Signed: []domain.FileScoreResult{
			scored("s1.csv", domain.CohortSigned, "A"),
			scored("s2.csv", domain.CohortSigned, "B"),
		},
		Unsigned: []domain.FileScoreResult{
			scored("u.csv", domain.CohortUnsigned, "A", "B", "C"),
		},
	}
	res := e.PairCohort(c)

	assert.Equal(t, 2, res.CombinedSummary.MatchesFound)
	assert.Equal(t, []string{"C"}, res.CombinedSummary.PendingSignatureOrders)
	assert.Equal(t, 2, res.Signed.Stats.TotalRows)
	assert.Equal(t, "s1.csv, s2.csv", res.Signed.FileName)
}

func TestPair_MatchingLaw(t *testing.T) {
	e := pairing.NewEngine(zerolog.Nop())
	for n := 0; n < 6; n++ {
		var sIDs, uIDs []string
		for i := 0; i < 8; i++ {
			id := fmt.Sprintf("ID-%d", i)
			if (i+n)%2 == 0 {
				sIDs = append(sIDs, id)
			}
			if (i*n)%3 != 1 {
				uIDs = append(uIDs, id)
			}
		}
		signed := scored("s.csv", domain.CohortSigned, sIDs...)
		unsigned := scored("u.csv", domain.CohortUnsigned, uIDs...)
		res := e.Pair("k", "Luna", &signed, &unsigned)

		inter, sym := 0, 0
		u := map[string]bool{}
		for _, id := range uIDs {
			u[id] = true
		}
		s := map[string]bool{}
		for _, id := range sIDs {
			s[id] = true
			if u[id] {
				inter++
			} else {
				sym++
			}
		}
		for id := range u {
			if !s[id] {
				sym++
			}
		}
		assert.Equal(t, inter, res.CombinedSummary.MatchesFound)
		assert.Equal(t, sym, res.CombinedSummary.DiscrepanciesFound)
		for _, id := range res.CombinedSummary.PendingSignatureOrders {
			assert.False(t, s[id])
		}
	}
}
