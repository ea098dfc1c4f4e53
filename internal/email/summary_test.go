package email_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderaudit/internal/domain"
	"orderaudit/internal/email"
	"orderaudit/internal/email/noop"
)

func sampleRecord() *domain.AuditRecord {
	counts := domain.ReasonCounts{}
	counts.Add("Missing signature date", 3)
	counts.Add("<script>", 1)
	return &domain.AuditRecord{
		ID:             uuid.MustParse("6f1c1f4e-8a67-5b5e-9d1e-0c4f6a2b9c11"),
		Agency:         "Luna & Co",
		EHR:            "Axxess",
		Status:         domain.RunStatusFailed,
		Timestamp:      time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC),
		RuleSetVersion: "2025.1",
		AuditResults: []domain.FileScoreResult{
			{FileName: "bad.csv", Agency: "Luna & Co", Stats: domain.FileStats{TotalRows: 4, FailureCount: 4, FailureRate: 100, FailureReasonCounts: counts}},
			{FileName: "ok.csv", Agency: "Luna & Co", Stats: domain.FileStats{TotalRows: 10, FailureCount: 1, SuccessRate: 90, FailureRate: 10}},
			{FileName: "empty.csv", Diagnostic: "Malformed file: missing status column"},
		},
		ReconciliationSummary: []domain.ReconciliationSummary{
			{Agency: "Luna & Co", SignedTotal: 4, UnsignedTotal: 10, PendingSignatureOrders: []string{"A", "B"}},
		},
	}
}

func TestAlerts(t *testing.T) {
	rec := sampleRecord()

	alerts := email.Alerts(rec, 50)
	require.Len(t, alerts, 1)
	assert.Equal(t, "bad.csv", alerts[0].FileName)
	assert.Equal(t, 100.0, alerts[0].FailureRate)
	assert.Equal(t, []string{"Missing signature date", "<script>"}, alerts[0].FailureReasons)

	assert.Len(t, email.Alerts(rec, 10), 2, "threshold is inclusive")
	assert.Empty(t, email.Alerts(rec, 100.1))
}

func TestBuildSummary(t *testing.T) {
	rec := sampleRecord()
	msg := email.BuildSummary(rec, email.Alerts(rec, 50), "https://dash.example.com/")

	assert.Contains(t, msg.Subject, "[ALERT]")
	assert.Contains(t, msg.Subject, "Failed")
	assert.Contains(t, msg.Text, "bad.csv: 4 rows")
	assert.Contains(t, msg.Text, "Malformed file: missing status column")
	assert.Contains(t, msg.Text, "2 pending signature")
	assert.Contains(t, msg.Text, "https://dash.example.com/audits/6f1c1f4e-8a67-5b5e-9d1e-0c4f6a2b9c11")
	assert.Contains(t, msg.HTML, "Luna &amp; Co")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
	assert.NotContains(t, msg.HTML, "<script>")
}

func TestBuildSummary_NoAlertsNoLink(t *testing.T) {
	rec := sampleRecord()
	msg := email.BuildSummary(rec, nil, "")
	assert.NotContains(t, msg.Subject, "[ALERT]")
	assert.NotContains(t, msg.Text, "Details:")
	assert.NotContains(t, msg.HTML, "View audit")
}

func TestNoopSender(t *testing.T) {
	var buf bytes.Buffer
	sender := noop.NewNoopSender(zerolog.New(&buf), "")
	require.NoError(t, sender.SendAuditSummary(context.Background(), sampleRecord(), nil))
	assert.Contains(t, buf.String(), "noop email: audit summary")
	assert.Contains(t, buf.String(), "6f1c1f4e-8a67-5b5e-9d1e-0c4f6a2b9c11")
}
