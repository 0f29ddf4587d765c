// Package notice holds the regulatory filing aggregate: one notice bundles
// the alerts of a reporting period and carries the rendered document through
// submission and acknowledgment.
package notice

import (
	"time"

	"github.com/google/uuid"

	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

// Status is the filing state of a notice.  Transitions are one-way doors:
// DRAFT → GENERATED → SUBMITTED → ACKNOWLEDGED, no skips, no reversals.
type Status string

const (
	StatusDraft        Status = "DRAFT"
	StatusGenerated    Status = "GENERATED"
	StatusSubmitted    Status = "SUBMITTED"
	StatusAcknowledged Status = "ACKNOWLEDGED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusGenerated, StatusSubmitted, StatusAcknowledged:
		return true
	}
	return false
}

// Pending reports whether the notice still blocks creating another one for
// the same period.  A fully submitted or acknowledged filing does not.
func (s Status) Pending() bool {
	return s == StatusDraft || s == StatusGenerated
}

// Notice is one regulatory filing covering a reporting period.
type Notice struct {
	ID    common.ID    `json:"id"`
	OrgID common.OrgID `json:"org_id"`

	Name string `json:"name"`

	// ReportedMonth is the authority's period label (YYYYMM of the period's
	// closing month), not a calendar month: the window runs day 17 of the
	// preceding month through day 16 of this one.
	ReportedMonth string `json:"reported_month"`

	Status      Status    `json:"status"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	// RecordCount always equals the number of alerts pointing at this
	// notice.
	RecordCount int64 `json:"record_count"`

	DocumentKey  string `json:"document_key,omitempty"`
	DocumentSize int64  `json:"document_size,omitempty"`

	GeneratedAt    *time.Time `json:"generated_at,omitempty"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`

	// Folio is the authority-issued acknowledgment reference number.
	Folio string `json:"folio,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewNotice constructs a DRAFT notice for a period.
func NewNotice(orgID common.OrgID, name, reportedMonth string, periodStart, periodEnd time.Time) (*Notice, error) {
	if orgID == "" {
		return nil, errors.Validation("organization id cannot be empty")
	}
	if reportedMonth == "" {
		return nil, errors.Validation("reported month cannot be empty")
	}
	if !periodEnd.After(periodStart) {
		return nil, errors.Validation("period end must follow period start")
	}
	if name == "" {
		name = "Aviso " + reportedMonth
	}

	now := time.Now().UTC()
	return &Notice{
		ID:            common.ID(uuid.New().String()),
		OrgID:         orgID,
		Name:          name,
		ReportedMonth: reportedMonth,
		Status:        StatusDraft,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// MarkGenerated records the rendered document and advances to GENERATED.
func (n *Notice) MarkGenerated(key string, size int64, at time.Time) error {
	if n.Status != StatusDraft {
		return errors.New(errors.ErrCodeNoticeNotDraft, "notice can only be generated from DRAFT").
			WithDetail("status=" + string(n.Status))
	}
	n.Status = StatusGenerated
	n.DocumentKey = key
	n.DocumentSize = size
	n.GeneratedAt = &at
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkSubmitted advances to SUBMITTED.  The notice must have been generated
// first.
func (n *Notice) MarkSubmitted(at time.Time, folio string) error {
	if n.Status == StatusDraft {
		return errors.New(errors.ErrCodeNoticeNotGenerated, "notice file must be generated before submission")
	}
	if n.Status != StatusGenerated {
		return errors.InvalidState("notice already submitted").WithDetail("status=" + string(n.Status))
	}
	n.Status = StatusSubmitted
	n.SubmittedAt = &at
	if folio != "" {
		n.Folio = folio
	}
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkAcknowledged records the authority folio and advances to ACKNOWLEDGED.
func (n *Notice) MarkAcknowledged(folio string, at time.Time) error {
	if n.Status != StatusSubmitted {
		return errors.New(errors.ErrCodeNoticeNotSubmitted, "notice must be submitted before acknowledgment").
			WithDetail("status=" + string(n.Status))
	}
	if folio == "" {
		return errors.Validation("acknowledgment folio cannot be empty")
	}
	n.Status = StatusAcknowledged
	n.Folio = folio
	n.AcknowledgedAt = &at
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// Deletable reports whether the notice may still be removed.  Only drafts
// are, and only after releasing their claimed alerts.
func (n *Notice) Deletable() bool {
	return n.Status == StatusDraft
}
