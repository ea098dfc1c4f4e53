package sqlite_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderaudit/internal/audit"
	"orderaudit/internal/domain"
	"orderaudit/internal/repository/sqlite"
	"orderaudit/internal/scorer"
)

func openDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func record(agency string, at time.Time) *domain.AuditRecord {
	res := scorer.Score(domain.FileMeta{Name: "a_Signed.csv", Cohort: domain.CohortSigned, CohortKey: "a", Agency: agency},
		[]domain.OrderRecord{{OrderID: "A", RowIndex: 2}, {RowIndex: 3, Unparseable: true}}, nil)
	return &domain.AuditRecord{
		ID:             uuid.New(),
		FolderID:       "folder",
		Agency:         agency,
		EHR:            "Axxess",
		Status:         audit.DeriveStatus([]domain.FileScoreResult{res}),
		Timestamp:      at.UTC(),
		RuleSetVersion: "2025.1",
		AuditResults:   []domain.FileScoreResult{res},
		PairedResults:  []domain.PairResult{},
		ReconciliationSummary: []domain.ReconciliationSummary{
			{Agency: agency, SignedTotal: 2, PendingSignatureOrders: []string{}, SignedWithoutUnsignedSource: []string{"A"}},
		},
	}
}

func TestAuditRecordRepo_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewAuditRecordRepo(openDB(t))
	rec := record("Luna", time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC))

	inserted, err := repo.InsertIfAbsent(ctx, rec)
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)

	want, err := json.Marshal(rec)
	require.NoError(t, err)
	have, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(have))
	assert.Equal(t, []string{domain.ReasonUnparseableRow}, got.AuditResults[0].Stats.FailureReasonCounts.Reasons())

	exists, err := repo.Exists(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAuditRecordRepo_InsertIfAbsentKeepsFirst(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewAuditRecordRepo(openDB(t))
	rec := record("Luna", time.Now())

	inserted, err := repo.InsertIfAbsent(ctx, rec)
	require.NoError(t, err)
	require.True(t, inserted)

	second := *rec
	second.Agency = "Someone Else"
	inserted, err = repo.InsertIfAbsent(ctx, &second)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Luna", got.Agency)
}

func TestAuditRecordRepo_GetMissing(t *testing.T) {
	repo := sqlite.NewAuditRecordRepo(openDB(t))
	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuditRecordRepo_List(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewAuditRecordRepo(openDB(t))
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, agency := range []string{"Luna", "Acme", "Luna", "Luna"} {
		_, err := repo.InsertIfAbsent(ctx, record(agency, base.Add(time.Duration(i)*24*time.Hour)))
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, domain.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.True(t, all[0].Timestamp.After(all[1].Timestamp), "newest first")

	from := base.Add(24 * time.Hour)
	to := base.Add(2 * 24 * time.Hour)
	ranged, err := repo.List(ctx, domain.RecordFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	luna, err := repo.List(ctx, domain.RecordFilter{Agency: "Luna", Limit: 2})
	require.NoError(t, err)
	require.Len(t, luna, 2)
	assert.Equal(t, base.Add(3*24*time.Hour), luna[0].Timestamp)
}

func TestRunRegistry(t *testing.T) {
	ctx := context.Background()
	reg := sqlite.NewRunRegistry(openDB(t))
	key := uuid.New()

	ok, err := reg.Reserve(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.Reserve(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, reg.Release(ctx, key))
	ok, err = reg.Reserve(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

// Concurrent builders racing on one run key persist exactly one record.
func TestBuilderIdempotency(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	repo := sqlite.NewAuditRecordRepo(db)
	b := audit.NewBuilder(sqlite.NewRunRegistry(db), repo)
	at := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	key := audit.NewRunKey("folder", at)
	rec := record("Luna", at)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		built int
		dupes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Build(ctx, audit.BuildInput{
				Key:       key,
				FolderID:  "folder",
				Agency:    "Luna",
				Timestamp: at,
				Results:   rec.AuditResults,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				built++
			case errors.Is(err, domain.ErrDuplicateRun):
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, built)
	assert.Equal(t, 7, dupes)
	all, err := repo.List(ctx, domain.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
