// Package rules holds the ordered failure predicates used to score orders.
package rules

import (
	"strings"

	"orderaudit/internal/domain"
)

// Kind tags a rule variant.
type Kind string

const (
	KindMissingOrderID       Kind = "missing_order_id"
	KindKeyword              Kind = "keyword"
	KindMissingSignatureDate Kind = "missing_signature_date"
	KindMissingSentDate      Kind = "missing_sent_date"
	KindStatus               Kind = "status"
)

// Rule is a single named failure predicate.
type Rule interface {
	Name() string
	Kind() Kind
	// Evaluate returns the failure reason and true when rec fails the rule.
	Evaluate(rec *domain.OrderRecord) (string, bool)
}

// statusFilter limits a rule to records whose status is listed. An empty
// filter applies to every record.
type statusFilter []domain.OrderStatus

func (f statusFilter) applies(s domain.OrderStatus) bool {
	if len(f) == 0 {
		return true
	}
	for _, want := range f {
		if want == s {
			return true
		}
	}
	return false
}

// MissingOrderIDRule fails records without an order id.
type MissingOrderIDRule struct {
	RuleName string
	Reason   string
}

func (r *MissingOrderIDRule) Name() string { return r.RuleName }
func (r *MissingOrderIDRule) Kind() Kind   { return KindMissingOrderID }

func (r *MissingOrderIDRule) Evaluate(rec *domain.OrderRecord) (string, bool) {
	if rec.OrderID == "" {
		return r.Reason, true
	}
	return "", false
}

// KeywordRule fails records whose remark or status-detail cells contain any
// keyword, case-insensitively. With no fixed Reason, the matching cell text
// becomes the reason.
type KeywordRule struct {
	RuleName string
	Reason   string
	Keywords []string
	lowered  []string
}

// NewKeywordRule builds a KeywordRule with its keywords pre-lowered.
func NewKeywordRule(name, reason string, keywords []string) *KeywordRule {
	r := &KeywordRule{RuleName: name, Reason: reason, Keywords: keywords}
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			r.lowered = append(r.lowered, k)
		}
	}
	return r
}

func (r *KeywordRule) Name() string { return r.RuleName }
func (r *KeywordRule) Kind() Kind   { return KindKeyword }

func (r *KeywordRule) Evaluate(rec *domain.OrderRecord) (string, bool) {
	if text, ok := r.match(rec.Reason); ok {
		return r.reasonFor(text), true
	}
	for _, a := range rec.Annotations {
		if text, ok := r.match(a.Value); ok {
			return r.reasonFor(text), true
		}
	}
	return "", false
}

func (r *KeywordRule) match(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	lowered := strings.ToLower(text)
	for _, k := range r.lowered {
		if strings.Contains(lowered, k) {
			return text, true
		}
	}
	return "", false
}

func (r *KeywordRule) reasonFor(text string) string {
	if r.Reason != "" {
		return r.Reason
	}
	return text
}

// MissingSignatureDateRule fails records without a physician signature date.
type MissingSignatureDateRule struct {
	RuleName string
	Reason   string
	Statuses statusFilter
}

func (r *MissingSignatureDateRule) Name() string { return r.RuleName }
func (r *MissingSignatureDateRule) Kind() Kind   { return KindMissingSignatureDate }

func (r *MissingSignatureDateRule) Evaluate(rec *domain.OrderRecord) (string, bool) {
	if rec.SignedAt == nil && r.Statuses.applies(rec.Status) {
		return r.Reason, true
	}
	return "", false
}

// MissingSentDateRule fails records never sent to a physician.
type MissingSentDateRule struct {
	RuleName string
	Reason   string
	Statuses statusFilter
}

func (r *MissingSentDateRule) Name() string { return r.RuleName }
func (r *MissingSentDateRule) Kind() Kind   { return KindMissingSentDate }

func (r *MissingSentDateRule) Evaluate(rec *domain.OrderRecord) (string, bool) {
	if rec.SentAt == nil && r.Statuses.applies(rec.Status) {
		return r.Reason, true
	}
	return "", false
}

// StatusRule fails records whose status is one of Statuses.
type StatusRule struct {
	RuleName string
	Reason   string
	Statuses statusFilter
}

func (r *StatusRule) Name() string { return r.RuleName }
func (r *StatusRule) Kind() Kind   { return KindStatus }

func (r *StatusRule) Evaluate(rec *domain.OrderRecord) (string, bool) {
	if len(r.Statuses) > 0 && r.Statuses.applies(rec.Status) {
		return r.Reason, true
	}
	return "", false
}
