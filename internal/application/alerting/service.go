// Package alerting implements the alert lifecycle: idempotent creation
// against the rule registry, status transitions as conditional updates, and
// the lazy overdue sweep that runs ahead of every read path.
package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/vigiamx/satavisos/internal/application/events"
	"github.com/vigiamx/satavisos/internal/application/period"
	"github.com/vigiamx/satavisos/internal/application/reporting"
	"github.com/vigiamx/satavisos/internal/domain/alert"
	"github.com/vigiamx/satavisos/internal/domain/document"
	"github.com/vigiamx/satavisos/internal/domain/rule"
	"github.com/vigiamx/satavisos/internal/infrastructure/monitoring/logging"
	"github.com/vigiamx/satavisos/internal/infrastructure/monitoring/prometheus"
	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

// Service drives the alert lifecycle.
type Service struct {
	alerts    alert.Repository
	rules     rule.Repository
	assembler *reporting.Assembler
	store     document.Store
	publisher events.Publisher
	metrics   *prometheus.Metrics
	logger    logging.Logger

	// now is swapped in tests.
	now func() time.Time
}

// NewService wires the alert lifecycle service.  metrics may be nil.
func NewService(
	alerts alert.Repository,
	rules rule.Repository,
	assembler *reporting.Assembler,
	store document.Store,
	publisher events.Publisher,
	metrics *prometheus.Metrics,
	logger logging.Logger,
) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		alerts:    alerts,
		rules:     rules,
		assembler: assembler,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.Named("alerting"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput carries everything needed to raise an alert.
type CreateInput struct {
	OrgID          common.OrgID
	IdempotencyKey string
	ContextHash    string
	RuleID         common.ID
	ClientID       common.ID
	TransactionID  *common.ID
	Severity       alert.Severity
	IsManual       bool
	Payload        alert.Payload

	// Deadline, when set, overrides the rule's default deadline policy.
	Deadline *time.Time
}

// Create raises an alert, de-duplicated on (org, idempotency key).  The
// returned bool reports whether a new row was created; re-submitting the same
// detection returns the existing alert unchanged.
func (s *Service) Create(ctx context.Context, in CreateInput) (*alert.Alert, bool, error) {
	// Replay resolves before any rule gating: an alert accepted once comes
	// back unchanged even if its rule has since been deactivated or flipped
	// manual-only.
	existing, err := s.alerts.FindByIdempotencyKey(ctx, in.OrgID, in.IdempotencyKey)
	if err == nil {
		return existing, false, nil
	}
	if !errors.IsCode(err, errors.ErrCodeAlertNotFound) {
		return nil, false, err
	}

	r, err := s.rules.FindByID(ctx, in.OrgID, in.RuleID)
	if err != nil {
		return nil, false, err
	}
	if !r.Active {
		return nil, false, errors.New(errors.ErrCodeRuleInactive, "rule is not active").
			WithDetail("rule=" + r.Key)
	}
	if r.ManualOnly && !in.IsManual {
		return nil, false, errors.New(errors.ErrCodeRuleManualOnly, "rule only accepts manually raised alerts").
			WithDetail("rule=" + r.Key)
	}

	a, err := alert.NewAlert(in.OrgID, in.IdempotencyKey, in.RuleID, in.ClientID, in.Severity)
	if err != nil {
		return nil, false, err
	}
	a.ContextHash = in.ContextHash
	a.TransactionID = in.TransactionID
	a.IsManual = in.IsManual
	a.Payload = in.Payload
	if in.Deadline != nil {
		a.SubmissionDeadline = in.Deadline
	} else {
		a.SubmissionDeadline = r.DefaultDeadline(a.CreatedAt)
	}

	if err := s.alerts.Create(ctx, a); err != nil {
		if errors.IsCode(err, errors.ErrCodeConflict) {
			existing, findErr := s.alerts.FindByIdempotencyKey(ctx, in.OrgID, in.IdempotencyKey)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	s.metrics.AlertCreated(string(a.Severity))
	s.publish(ctx, events.TypeAlertCreated, a.OrgID, map[string]any{
		"alert_id": a.ID,
		"rule_id":  a.RuleID,
		"severity": a.Severity,
		"manual":   a.IsManual,
	})
	s.logger.Info("alert created",
		logging.String("alert_id", string(a.ID)),
		logging.String("severity", string(a.Severity)),
	)
	return a, true, nil
}

// Get returns the alert after running the lazy overdue sweep.
func (s *Service) Get(ctx context.Context, orgID common.OrgID, id common.ID) (*alert.Alert, error) {
	s.sweep(ctx, orgID)
	return s.alerts.FindByID(ctx, orgID, id)
}

// List returns a page of alerts after running the lazy overdue sweep.
func (s *Service) List(ctx context.Context, orgID common.OrgID, opts ...alert.QueryOption) ([]*alert.Alert, int64, error) {
	s.sweep(ctx, orgID)
	return s.alerts.List(ctx, orgID, opts...)
}

// MarkFileGenerated renders the alert's standalone filing document, stores
// it, and records the transition.  Valid from DETECTED and OVERDUE only.
// Validations and the store write run before the transition, so a failure
// leaves the alert's status untouched.
func (s *Service) MarkFileGenerated(ctx context.Context, orgID common.OrgID, id common.ID) (*alert.Alert, error) {
	a, err := s.alerts.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if !a.CanTransitionTo(alert.StatusFileGenerated) {
		return nil, errors.InvalidState(
			fmt.Sprintf("cannot generate a file for a %s alert", a.Status)).
			WithDetail("id=" + string(id))
	}

	p, err := period.Containing(a.CreatedAt)
	if err != nil {
		return nil, err
	}
	records, err := s.assembler.Assemble(ctx, orgID, []*alert.Alert{a})
	if err != nil {
		return nil, err
	}

	start := s.now()
	data, err := reporting.RenderSingle(s.assembler.Header(p.ReportedMonth), records[0])
	if err != nil {
		return nil, err
	}
	s.metrics.RenderObserved(s.now().Sub(start), len(data))

	key := fmt.Sprintf("alerts/%s/%s/%s.xml", orgID, p.ReportedMonth, a.ID)
	stored, err := s.store.Put(ctx, key, data, "application/xml", map[string]string{
		"org_id":         string(orgID),
		"alert_id":       string(a.ID),
		"reported_month": p.ReportedMonth,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentStoreError, "store rendered document").
			WithDetail("key=" + key)
	}

	now := s.now()
	updated, err := s.alerts.ApplyTransition(ctx, orgID, id, alert.Transition{
		FromStatuses:    []alert.Status{alert.StatusDetected, alert.StatusOverdue},
		To:              alert.StatusFileGenerated,
		FileGeneratedAt: &now,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AlertTransition(string(alert.StatusFileGenerated))
	s.logger.Info("alert document generated",
		logging.String("alert_id", string(updated.ID)),
		logging.String("document_key", stored.Key),
		logging.Int64("size", stored.Size),
	)
	return updated, nil
}

// Submit marks the alert SUBMITTED.  Submission retroactively cures overdue
// status.  The folio is optional at this point; acknowledgment propagation
// can fill it later.
func (s *Service) Submit(ctx context.Context, orgID common.OrgID, id common.ID, folio string) (*alert.Alert, error) {
	now := s.now()
	a, err := s.alerts.ApplyTransition(ctx, orgID, id, alert.Transition{
		FromStatuses:      []alert.Status{alert.StatusDetected, alert.StatusFileGenerated, alert.StatusOverdue},
		To:                alert.StatusSubmitted,
		SubmittedAt:       &now,
		AckFolio:          folio,
		ForceOverdueFalse: true,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AlertTransition(string(alert.StatusSubmitted))
	return a, nil
}

// Cancel marks the alert CANCELLED.  The acting user is mandatory; the
// reason is kept for the audit trail.
func (s *Service) Cancel(ctx context.Context, orgID common.OrgID, id common.ID, actor, reason string) (*alert.Alert, error) {
	if actor == "" {
		return nil, errors.New(errors.ErrCodeAlertMissingActor, "cancelled_by is required")
	}
	now := s.now()
	a, err := s.alerts.ApplyTransition(ctx, orgID, id, alert.Transition{
		FromStatuses:      []alert.Status{alert.StatusDetected, alert.StatusFileGenerated, alert.StatusOverdue},
		To:                alert.StatusCancelled,
		CancelledAt:       &now,
		CancelledBy:       actor,
		CancelReason:      reason,
		ForceOverdueFalse: true,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AlertTransition(string(alert.StatusCancelled))
	s.publish(ctx, events.TypeAlertCancelled, orgID, map[string]any{
		"alert_id":     a.ID,
		"cancelled_by": actor,
	})
	return a, nil
}

// Review stamps the reviewer on the alert without touching its status.
func (s *Service) Review(ctx context.Context, orgID common.OrgID, id common.ID, actor string) (*alert.Alert, error) {
	if actor == "" {
		return nil, errors.Validation("reviewer cannot be empty")
	}
	return s.alerts.SetReview(ctx, orgID, id, actor, s.now())
}

// SweepOverdue flips every past-deadline alert to OVERDUE and returns the
// number flipped.  It is the explicit entry point; reads run it lazily.
func (s *Service) SweepOverdue(ctx context.Context, orgID common.OrgID) (int64, error) {
	n, err := s.alerts.SweepOverdue(ctx, orgID, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.OverdueSwept(n)
		s.publish(ctx, events.TypeAlertOverdue, orgID, map[string]any{"swept": n})
		s.logger.Info("overdue sweep flipped alerts", logging.Int64("count", n))
	}
	return n, nil
}

// sweep is the lazy variant: failures are logged and swallowed so a read
// never breaks because the sweep could not run.
func (s *Service) sweep(ctx context.Context, orgID common.OrgID) {
	if _, err := s.SweepOverdue(ctx, orgID); err != nil {
		s.logger.Warn("lazy overdue sweep failed", logging.Err(err))
	}
}

// publish is best-effort: a bus outage must not fail the state change that
// already committed.
func (s *Service) publish(ctx context.Context, eventType string, orgID common.OrgID, payload any) {
	e, err := events.New(eventType, orgID, payload)
	if err != nil {
		s.logger.Warn("event envelope build failed", logging.String("type", eventType), logging.Err(err))
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.metrics.EventFailed(eventType)
		s.logger.Warn("event publish failed", logging.String("type", eventType), logging.Err(err))
		return
	}
	s.metrics.EventPublished(eventType)
}
