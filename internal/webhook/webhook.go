// Package webhook posts audit alerts and run summaries as JSON to
// configured URLs.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"orderaudit/internal/config"
	"orderaudit/internal/domain"
	"orderaudit/internal/port"
)

const topReasons = 3

// AlertPayload is posted to the alert URL when files breach the threshold.
type AlertPayload struct {
	Text    string             `json:"text"`
	AuditID string             `json:"audit_id"`
	Alerts  []domain.FileAlert `json:"alerts"`
}

// FileSummary is one export in a SummaryPayload.
type FileSummary struct {
	Agency            string   `json:"agency"`
	FileName          string   `json:"file_name"`
	TemplateType      string   `json:"template_type"`
	SuccessRate       float64  `json:"success_rate"`
	FailureRate       float64  `json:"failure_rate"`
	SignedCount       int      `json:"signed_count"`
	UnsignedCount     int      `json:"unsigned_count"`
	TopFailureReasons []string `json:"top_failure_reasons"`
}

// PairSummary is one cohort in a SummaryPayload.
type PairSummary struct {
	CohortKey       string                 `json:"cohort_key"`
	Agency          string                 `json:"agency"`
	SignedFile      string                 `json:"signed_file,omitempty"`
	UnsignedFile    string                 `json:"unsigned_file,omitempty"`
	CombinedSummary domain.CombinedSummary `json:"combined_summary"`
}

// SummaryPayload is posted to the summary URL after every recorded run.
type SummaryPayload struct {
	Text          string           `json:"text"`
	AuditID       string           `json:"audit_id"`
	Agency        string           `json:"agency"`
	EHR           string           `json:"ehr"`
	Status        domain.RunStatus `json:"status"`
	Timestamp     time.Time        `json:"audit_timestamp"`
	Summary       []FileSummary    `json:"summary"`
	PairedSummary []PairSummary    `json:"paired_summary"`
}

type notifier struct {
	cfg    config.WebhookConfig
	client *http.Client
	log    zerolog.Logger
}

// NewNotifier creates a Notifier for cfg. Empty URLs are skipped.
func NewNotifier(cfg config.WebhookConfig, log zerolog.Logger) port.Notifier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &notifier{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, log: log}
}

func (n *notifier) NotifyAudit(ctx context.Context, rec *domain.AuditRecord, alerts []domain.FileAlert) error {
	var errs []error
	if n.cfg.AlertURL != "" && len(alerts) > 0 {
		payload := AlertPayload{Text: "Order audit alert", AuditID: rec.ID.String(), Alerts: alerts}
		if err := n.post(ctx, n.cfg.AlertURL, payload); err != nil {
			errs = append(errs, fmt.Errorf("alert webhook: %w", err))
		} else {
			n.log.Info().Str("audit_id", rec.ID.String()).Int("alerts", len(alerts)).Msg("alert webhook delivered")
		}
	}
	if n.cfg.SummaryURL != "" {
		if err := n.post(ctx, n.cfg.SummaryURL, BuildSummary(rec)); err != nil {
			errs = append(errs, fmt.Errorf("summary webhook: %w", err))
		} else {
			n.log.Info().Str("audit_id", rec.ID.String()).Msg("summary webhook delivered")
		}
	}
	return errors.Join(errs...)
}

// BuildSummary condenses rec into the summary webhook payload.
func BuildSummary(rec *domain.AuditRecord) SummaryPayload {
	p := SummaryPayload{
		Text:          "Order audit summary",
		AuditID:       rec.ID.String(),
		Agency:        rec.Agency,
		EHR:           rec.EHR,
		Status:        rec.Status,
		Timestamp:     rec.Timestamp,
		Summary:       make([]FileSummary, 0, len(rec.AuditResults)),
		PairedSummary: make([]PairSummary, 0, len(rec.PairedResults)),
	}
	for _, r := range rec.AuditResults {
		reasons := r.Stats.FailureReasonCounts.Reasons()
		if len(reasons) > topReasons {
			reasons = reasons[:topReasons]
		}
		p.Summary = append(p.Summary, FileSummary{
			Agency:            r.Agency,
			FileName:          r.FileName,
			TemplateType:      r.TemplateType,
			SuccessRate:       r.Stats.SuccessRate,
			FailureRate:       r.Stats.FailureRate,
			SignedCount:       r.Stats.SignedCount,
			UnsignedCount:     r.Stats.UnsignedCount,
			TopFailureReasons: reasons,
		})
	}
	for _, pr := range rec.PairedResults {
		p.PairedSummary = append(p.PairedSummary, PairSummary{
			CohortKey:       pr.CohortKey,
			Agency:          pr.Agency,
			SignedFile:      pr.Signed.FileName,
			UnsignedFile:    pr.Unsigned.FileName,
			CombinedSummary: pr.CombinedSummary,
		})
	}
	return p
}

// post delivers payload, retrying transport errors, 429 and 5xx with
// exponential backoff.
func (n *notifier) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	wait := n.cfg.Backoff
	var lastErr error
	for attempt := 1; attempt <= n.cfg.MaxAttempts; attempt++ {
		retry, err := n.send(ctx, url, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == n.cfg.MaxAttempts {
			break
		}
		n.log.Warn().Err(err).Int("attempt", attempt).Str("url", url).Msg("webhook delivery failed; retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return lastErr
}

func (n *notifier) send(ctx context.Context, url string, body []byte) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 300 {
		return false, nil
	}
	retry = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	return retry, fmt.Errorf("webhook status %d", resp.StatusCode)
}
