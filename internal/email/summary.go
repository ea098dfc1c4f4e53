// Package email renders audit run summaries for notification senders.
package email

import (
	"fmt"
	"html"
	"strings"

	"orderaudit/internal/domain"
)

// Message is a rendered notification.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// Alerts returns the files of rec whose failure rate is at or above
// threshold, in record order. Files with no rows never alert.
func Alerts(rec *domain.AuditRecord, threshold float64) []domain.FileAlert {
	var out []domain.FileAlert
	for _, r := range rec.AuditResults {
		if r.Stats.TotalRows == 0 || r.Stats.FailureRate < threshold {
			continue
		}
		out = append(out, domain.FileAlert{
			Agency:         r.Agency,
			FileName:       r.FileName,
			FailureRate:    r.Stats.FailureRate,
			FailureReasons: r.Stats.FailureReasonCounts.Reasons(),
		})
	}
	return out
}

// BuildSummary renders the run summary sent after each audit.
func BuildSummary(rec *domain.AuditRecord, alerts []domain.FileAlert, dashboardURL string) Message {
	subject := fmt.Sprintf("Order audit %s: %s (%s)", rec.Status, rec.Agency, rec.Timestamp.Format("2006-01-02 15:04 MST"))
	if len(alerts) > 0 {
		subject = fmt.Sprintf("[ALERT] %s, %d file(s) over threshold", subject, len(alerts))
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Audit %s for %s (%s)\nStatus: %s\nRule set: %s\n\n",
		rec.ID, rec.Agency, rec.EHR, rec.Status, rec.RuleSetVersion)
	for _, r := range rec.AuditResults {
		fmt.Fprintf(&text, "- %s: %d rows, %.1f%% success, %.1f%% failure\n",
			r.FileName, r.Stats.TotalRows, r.Stats.SuccessRate, r.Stats.FailureRate)
		if r.Diagnostic != "" {
			fmt.Fprintf(&text, "  %s\n", r.Diagnostic)
		}
	}
	for _, s := range rec.ReconciliationSummary {
		fmt.Fprintf(&text, "\n%s: %d signed, %d unsigned, %d pending signature\n",
			s.Agency, s.SignedTotal, s.UnsignedTotal, len(s.PendingSignatureOrders))
	}
	if len(alerts) > 0 {
		text.WriteString("\nAlerts:\n")
		for _, a := range alerts {
			fmt.Fprintf(&text, "- %s (%s): %.1f%% failure; %s\n",
				a.FileName, a.Agency, a.FailureRate, strings.Join(a.FailureReasons, ", "))
		}
	}
	link := recordLink(dashboardURL, rec)
	if link != "" {
		fmt.Fprintf(&text, "\nDetails: %s\n", link)
	}

	return Message{Subject: subject, HTML: buildHTML(rec, alerts, link), Text: text.String()}
}

func recordLink(dashboardURL string, rec *domain.AuditRecord) string {
	if dashboardURL == "" {
		return ""
	}
	return strings.TrimRight(dashboardURL, "/") + "/audits/" + rec.ID.String()
}

func buildHTML(rec *domain.AuditRecord, alerts []domain.FileAlert, link string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 700px; margin: 0 auto; padding: 20px;">
`)
	fmt.Fprintf(&b, "  <h2 style=\"color: #333;\">Order audit: %s</h2>\n", html.EscapeString(rec.Agency))
	fmt.Fprintf(&b, "  <p>Status: <strong>%s</strong> &middot; EHR: %s &middot; Rule set: %s</p>\n",
		html.EscapeString(string(rec.Status)), html.EscapeString(rec.EHR), html.EscapeString(rec.RuleSetVersion))

	b.WriteString(`  <table style="border-collapse: collapse; width: 100%;">
    <tr><th align="left">File</th><th>Rows</th><th>Success</th><th>Failure</th></tr>
`)
	for _, r := range rec.AuditResults {
		fmt.Fprintf(&b, "    <tr><td>%s</td><td align=\"center\">%d</td><td align=\"center\">%.1f%%</td><td align=\"center\">%.1f%%</td></tr>\n",
			html.EscapeString(r.FileName), r.Stats.TotalRows, r.Stats.SuccessRate, r.Stats.FailureRate)
	}
	b.WriteString("  </table>\n")

	for _, s := range rec.ReconciliationSummary {
		fmt.Fprintf(&b, "  <p>%s: %d signed, %d unsigned, <strong>%d pending signature</strong></p>\n",
			html.EscapeString(s.Agency), s.SignedTotal, s.UnsignedTotal, len(s.PendingSignatureOrders))
	}

	if len(alerts) > 0 {
		b.WriteString("  <h3 style=\"color: #B91C1C;\">Alerts</h3>\n  <ul>\n")
		for _, a := range alerts {
			fmt.Fprintf(&b, "    <li>%s (%s): %.1f%% failure. %s</li>\n",
				html.EscapeString(a.FileName), html.EscapeString(a.Agency), a.FailureRate,
				html.EscapeString(strings.Join(a.FailureReasons, ", ")))
		}
		b.WriteString("  </ul>\n")
	}
	if link != "" {
		fmt.Fprintf(&b, `  <p style="text-align: center; margin: 30px 0;">
    <a href="%s" style="background-color: #4F46E5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">View audit</a>
  </p>
`, html.EscapeString(link))
	}
	b.WriteString("</body>\n</html>")
	return b.String()
}
