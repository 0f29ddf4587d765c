// Package alert holds the suspicious-activity alert aggregate: its payload
// shapes, status machine, and persistence contract.
package alert

import (
	"time"

	"github.com/google/uuid"

	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

// Status is the lifecycle state of an alert.
type Status string

const (
	StatusDetected      Status = "DETECTED"
	StatusFileGenerated Status = "FILE_GENERATED"
	StatusSubmitted     Status = "SUBMITTED"
	StatusOverdue       Status = "OVERDUE"
	StatusCancelled     Status = "CANCELLED"
)

// IsTerminal reports whether no further transition is accepted out of s.
func (s Status) IsTerminal() bool {
	return s == StatusSubmitted || s == StatusCancelled
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDetected, StatusFileGenerated, StatusSubmitted, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Severity classifies how serious the triggering detection was.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Alert is one suspicious-activity record requiring disclosure to the
// authority.  It is scoped to an organization and de-duplicated on creation
// by IdempotencyKey.
type Alert struct {
	ID    common.ID    `json:"id"`
	OrgID common.OrgID `json:"org_id"`

	// IdempotencyKey is the sole de-duplication key for creation, unique per
	// organization.  Callers derive it from (client, rule, triggering
	// context) so re-submitting the same detection never creates a second
	// row.
	IdempotencyKey string `json:"idempotency_key"`

	// ContextHash fingerprints the triggering context.  Audit/debug only; it
	// plays no role in de-duplication.
	ContextHash string `json:"context_hash,omitempty"`

	RuleID        common.ID  `json:"rule_id"`
	ClientID      common.ID  `json:"client_id"`
	TransactionID *common.ID `json:"transaction_id,omitempty"`
	Severity      Severity   `json:"severity"`
	IsManual      bool       `json:"is_manual"`

	Payload Payload `json:"payload"`

	Status             Status     `json:"status"`
	SubmissionDeadline *time.Time `json:"submission_deadline,omitempty"`

	// IsOverdue is derived (deadline passed and status outside
	// SUBMITTED/CANCELLED) but persisted for query efficiency.  It is never
	// caller-settable.
	IsOverdue bool `json:"is_overdue"`

	NoticeID *common.ID `json:"notice_id,omitempty"`

	FileGeneratedAt *time.Time `json:"file_generated_at,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`

	// Acknowledgment receipt, copied down from the notice once the authority
	// confirms reception.
	AckFolio       string     `json:"ack_folio,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`

	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy  string     `json:"cancelled_by,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`

	ReviewedBy string     `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAlert constructs a DETECTED alert.  The deadline is optional; assignment
// to a notice is what stamps an authoritative deadline when the caller and
// the rule supply none.
func NewAlert(orgID common.OrgID, idempotencyKey string, ruleID, clientID common.ID, severity Severity) (*Alert, error) {
	if orgID == "" {
		return nil, errors.Validation("organization id cannot be empty")
	}
	if idempotencyKey == "" {
		return nil, errors.Validation("idempotency key cannot be empty")
	}
	if ruleID == "" {
		return nil, errors.Validation("rule id cannot be empty")
	}
	if clientID == "" {
		return nil, errors.Validation("client id cannot be empty")
	}
	if !severity.Valid() {
		return nil, errors.Validation("unknown severity " + string(severity))
	}

	now := time.Now().UTC()
	return &Alert{
		ID:             common.ID(uuid.New().String()),
		OrgID:          orgID,
		IdempotencyKey: idempotencyKey,
		RuleID:         ruleID,
		ClientID:       clientID,
		Severity:       severity,
		Status:         StatusDetected,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ComputeOverdue applies the single derivation rule for the persisted
// IsOverdue flag: the deadline has passed and the alert has not reached a
// terminal curing state.  Every call site goes through this method; nothing
// else writes IsOverdue.
func (a *Alert) ComputeOverdue(now time.Time) bool {
	if a.Status == StatusSubmitted || a.Status == StatusCancelled {
		return false
	}
	if a.SubmissionDeadline == nil {
		return false
	}
	return now.After(*a.SubmissionDeadline)
}

// CanTransitionTo reports whether the status machine permits moving from the
// current status to target.  Terminal states accept nothing.
func (a *Alert) CanTransitionTo(target Status) bool {
	if a.Status.IsTerminal() {
		return false
	}
	switch target {
	case StatusFileGenerated:
		return a.Status == StatusDetected || a.Status == StatusOverdue
	case StatusSubmitted, StatusCancelled, StatusOverdue:
		return true
	case StatusDetected:
		return false
	}
	return false
}

// MarkFileGenerated moves the alert to FILE_GENERATED and stamps the
// generation time.
func (a *Alert) MarkFileGenerated(at time.Time) error {
	if !a.CanTransitionTo(StatusFileGenerated) {
		return errors.InvalidState("cannot generate file from status " + string(a.Status)).
			WithDetail("alert=" + string(a.ID))
	}
	a.Status = StatusFileGenerated
	a.FileGeneratedAt = &at
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkSubmitted moves the alert to SUBMITTED.  Submission retroactively cures
// overdue status: IsOverdue is forced false and stays false permanently.
func (a *Alert) MarkSubmitted(at time.Time, folio string) error {
	if !a.CanTransitionTo(StatusSubmitted) {
		return errors.InvalidState("cannot submit from status " + string(a.Status)).
			WithDetail("alert=" + string(a.ID))
	}
	a.Status = StatusSubmitted
	a.SubmittedAt = &at
	a.IsOverdue = false
	if folio != "" {
		a.AckFolio = folio
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCancelled moves the alert to CANCELLED.  An actor is mandatory.
func (a *Alert) MarkCancelled(at time.Time, actor, reason string) error {
	if actor == "" {
		return errors.New(errors.ErrCodeAlertMissingActor, "cancelled_by is required")
	}
	if !a.CanTransitionTo(StatusCancelled) {
		return errors.InvalidState("cannot cancel from status " + string(a.Status)).
			WithDetail("alert=" + string(a.ID))
	}
	a.Status = StatusCancelled
	a.CancelledAt = &at
	a.CancelledBy = actor
	a.CancelReason = reason
	a.IsOverdue = false
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkOverdue moves the alert to OVERDUE.  Callers may only do this when the
// deadline has actually passed; the lazy sweep is the normal path.
func (a *Alert) MarkOverdue(now time.Time) error {
	if !a.CanTransitionTo(StatusOverdue) {
		return errors.InvalidState("cannot mark overdue from status " + string(a.Status)).
			WithDetail("alert=" + string(a.ID))
	}
	if a.SubmissionDeadline == nil || !now.After(*a.SubmissionDeadline) {
		return errors.New(errors.ErrCodeAlertDeadlineFuture, "submission deadline has not passed").
			WithDetail("alert=" + string(a.ID))
	}
	a.Status = StatusOverdue
	a.IsOverdue = true
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Review stamps the reviewer, independent of status.
func (a *Alert) Review(actor string, at time.Time) {
	a.ReviewedBy = actor
	a.ReviewedAt = &at
	a.UpdatedAt = time.Now().UTC()
}

// Assigned reports whether the alert currently belongs to a notice.
func (a *Alert) Assigned() bool {
	return a.NoticeID != nil && *a.NoticeID != ""
}
