// Package notices implements the filing workflow: creating a notice for a
// reporting period, atomically claiming its member alerts, rendering and
// storing the regulatory document, and walking the one-way submission chain.
package notices

import (
	"context"
	"fmt"
	"time"

	"github.com/vigiamx/satavisos/internal/application/events"
	"github.com/vigiamx/satavisos/internal/application/period"
	"github.com/vigiamx/satavisos/internal/application/reporting"
	"github.com/vigiamx/satavisos/internal/domain/alert"
	"github.com/vigiamx/satavisos/internal/domain/document"
	"github.com/vigiamx/satavisos/internal/domain/notice"
	"github.com/vigiamx/satavisos/internal/infrastructure/monitoring/logging"
	"github.com/vigiamx/satavisos/internal/infrastructure/monitoring/prometheus"
	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

// Service drives the notice filing workflow.
type Service struct {
	notices   notice.Repository
	alerts    alert.Repository
	assembler *reporting.Assembler
	store     document.Store
	publisher events.Publisher
	metrics   *prometheus.Metrics
	logger    logging.Logger

	now func() time.Time
}

// NewService wires the notice workflow service.  metrics may be nil.
func NewService(
	notices notice.Repository,
	alerts alert.Repository,
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
		notices:   notices,
		alerts:    alerts,
		assembler: assembler,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.Named("notices"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateForPeriod opens a DRAFT notice for the period and atomically claims
// every eligible alert created inside its window.  At most one pending notice
// may exist per organization and period; a second creation fails with
// ErrCodeNoticePeriodPending regardless of interleaving, because the claim
// predicate and the partial unique index both live in the database.
func (s *Service) CreateForPeriod(ctx context.Context, orgID common.OrgID, year int, month time.Month, name string) (*notice.Notice, error) {
	p, err := period.For(year, month)
	if err != nil {
		return nil, err
	}
	deadline, err := period.DeadlineFor(year, month)
	if err != nil {
		return nil, err
	}

	n, err := notice.NewNotice(orgID, name, p.ReportedMonth, p.Start, p.End)
	if err != nil {
		return nil, err
	}
	if err := s.notices.Create(ctx, n); err != nil {
		return nil, err
	}

	window := common.DateRange{From: p.Start, To: p.End}
	claimed, err := s.alerts.ClaimForNotice(ctx, orgID, n.ID, window, deadline)
	if err != nil {
		return nil, err
	}
	if err := s.notices.SetRecordCount(ctx, orgID, n.ID, claimed); err != nil {
		return nil, err
	}
	n.RecordCount = claimed

	s.metrics.NoticeClaimed(claimed)
	s.logger.Info("notice created",
		logging.String("notice_id", string(n.ID)),
		logging.String("reported_month", n.ReportedMonth),
		logging.Int64("claimed", claimed),
	)
	return n, nil
}

// Get returns the notice.
func (s *Service) Get(ctx context.Context, orgID common.OrgID, id common.ID) (*notice.Notice, error) {
	return s.notices.FindByID(ctx, orgID, id)
}

// List returns a page of notices, newest first.
func (s *Service) List(ctx context.Context, orgID common.OrgID, opts ...notice.QueryOption) ([]*notice.Notice, int64, error) {
	return s.notices.List(ctx, orgID, opts...)
}

// Members returns the alerts claimed by the notice, in creation order.
func (s *Service) Members(ctx context.Context, orgID common.OrgID, id common.ID) ([]*alert.Alert, error) {
	if _, err := s.notices.FindByID(ctx, orgID, id); err != nil {
		return nil, err
	}
	return s.alerts.ListByNotice(ctx, orgID, id)
}

// Generate renders the regulatory document for a DRAFT notice, stores it,
// and advances the notice to GENERATED and its members to FILE_GENERATED.
// Every validation runs before the store write, so a failure leaves the
// notice in DRAFT with nothing persisted.
func (s *Service) Generate(ctx context.Context, orgID common.OrgID, id common.ID) (*notice.Notice, error) {
	n, err := s.notices.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if n.Status != notice.StatusDraft {
		return nil, errors.New(errors.ErrCodeNoticeNotDraft, "notice can only be generated from DRAFT").
			WithDetail("status=" + string(n.Status))
	}

	members, err := s.alerts.ListByNotice(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, errors.New(errors.ErrCodeNoticeEmpty, "notice has no alerts to report").
			WithDetail("notice=" + string(id))
	}

	records, err := s.assembler.Assemble(ctx, orgID, members)
	if err != nil {
		return nil, err
	}

	start := s.now()
	data, err := reporting.RenderNotice(s.assembler.Header(n.ReportedMonth), records)
	if err != nil {
		return nil, err
	}
	s.metrics.RenderObserved(s.now().Sub(start), len(data))

	key := documentKey(orgID, n)
	stored, err := s.store.Put(ctx, key, data, "application/xml", map[string]string{
		"org_id":         string(orgID),
		"notice_id":      string(n.ID),
		"reported_month": n.ReportedMonth,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentStoreError, "store rendered document").
			WithDetail("key=" + key)
	}

	now := s.now()
	updated, err := s.notices.MarkGenerated(ctx, orgID, id, stored.Key, stored.Size, now)
	if err != nil {
		return nil, err
	}
	if _, err := s.alerts.BulkMarkFileGenerated(ctx, orgID, id, now); err != nil {
		return nil, err
	}

	s.metrics.NoticeTransition(string(notice.StatusGenerated))
	s.publish(ctx, events.TypeNoticeGenerated, orgID, map[string]any{
		"notice_id":      updated.ID,
		"reported_month": updated.ReportedMonth,
		"document_key":   updated.DocumentKey,
		"record_count":   len(members),
	})
	s.logger.Info("notice document generated",
		logging.String("notice_id", string(updated.ID)),
		logging.String("document_key", stored.Key),
		logging.Int64("size", stored.Size),
	)
	return updated, nil
}

// Submit advances a GENERATED notice to SUBMITTED and propagates the
// transition to every non-cancelled member alert, permanently curing their
// overdue flags.
func (s *Service) Submit(ctx context.Context, orgID common.OrgID, id common.ID, folio string) (*notice.Notice, error) {
	now := s.now()
	updated, err := s.notices.MarkSubmitted(ctx, orgID, id, now, folio)
	if err != nil {
		return nil, err
	}
	if _, err := s.alerts.BulkMarkSubmitted(ctx, orgID, id, now, folio); err != nil {
		return nil, err
	}

	s.metrics.NoticeTransition(string(notice.StatusSubmitted))
	s.publish(ctx, events.TypeNoticeSubmitted, orgID, map[string]any{
		"notice_id":      updated.ID,
		"reported_month": updated.ReportedMonth,
	})
	return updated, nil
}

// Acknowledge records the authority's folio on a SUBMITTED notice and copies
// it down to every member alert.
func (s *Service) Acknowledge(ctx context.Context, orgID common.OrgID, id common.ID, folio string) (*notice.Notice, error) {
	if folio == "" {
		return nil, errors.Validation("acknowledgment folio cannot be empty")
	}
	now := s.now()
	updated, err := s.notices.MarkAcknowledged(ctx, orgID, id, folio, now)
	if err != nil {
		return nil, err
	}
	if _, err := s.alerts.BulkSetAckFolio(ctx, orgID, id, folio, now); err != nil {
		return nil, err
	}

	s.metrics.NoticeTransition(string(notice.StatusAcknowledged))
	s.publish(ctx, events.TypeNoticeAcknowledged, orgID, map[string]any{
		"notice_id": updated.ID,
		"folio":     folio,
	})
	return updated, nil
}

// Delete removes a DRAFT notice after releasing its member alerts back to
// the unassigned pool.
func (s *Service) Delete(ctx context.Context, orgID common.OrgID, id common.ID) error {
	n, err := s.notices.FindByID(ctx, orgID, id)
	if err != nil {
		return err
	}
	if !n.Deletable() {
		return errors.InvalidState("only draft notices can be deleted").
			WithDetail("status=" + string(n.Status))
	}
	released, err := s.alerts.ReleaseFromNotice(ctx, orgID, id)
	if err != nil {
		return err
	}
	if err := s.notices.Delete(ctx, orgID, id); err != nil {
		return err
	}
	s.logger.Info("draft notice deleted",
		logging.String("notice_id", string(id)),
		logging.Int64("released", released),
	)
	return nil
}

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

func documentKey(orgID common.OrgID, n *notice.Notice) string {
	return fmt.Sprintf("notices/%s/%s/%s.xml", orgID, n.ReportedMonth, n.ID)
}
