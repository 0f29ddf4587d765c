// Package testutil provides testify mocks for the domain ports, shared by
// the application-layer test suites.
package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/vigiamx/satavisos/internal/application/events"
	"github.com/vigiamx/satavisos/internal/domain/alert"
	"github.com/vigiamx/satavisos/internal/domain/catalog"
	"github.com/vigiamx/satavisos/internal/domain/document"
	"github.com/vigiamx/satavisos/internal/domain/notice"
	"github.com/vigiamx/satavisos/internal/domain/rule"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

// MockAlertRepository mocks alert.Repository.
type MockAlertRepository struct {
	mock.Mock
}

var _ alert.Repository = (*MockAlertRepository)(nil)

func (m *MockAlertRepository) Create(ctx context.Context, a *alert.Alert) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockAlertRepository) FindByID(ctx context.Context, orgID common.OrgID, id common.ID) (*alert.Alert, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*alert.Alert), args.Error(1)
}

func (m *MockAlertRepository) FindByIdempotencyKey(ctx context.Context, orgID common.OrgID, key string) (*alert.Alert, error) {
	args := m.Called(ctx, orgID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*alert.Alert), args.Error(1)
}

func (m *MockAlertRepository) List(ctx context.Context, orgID common.OrgID, opts ...alert.QueryOption) ([]*alert.Alert, int64, error) {
	args := m.Called(ctx, orgID, opts)
	var alerts []*alert.Alert
	if args.Get(0) != nil {
		alerts = args.Get(0).([]*alert.Alert)
	}
	return alerts, args.Get(1).(int64), args.Error(2)
}

func (m *MockAlertRepository) ListByNotice(ctx context.Context, orgID common.OrgID, noticeID common.ID) ([]*alert.Alert, error) {
	args := m.Called(ctx, orgID, noticeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*alert.Alert), args.Error(1)
}

func (m *MockAlertRepository) ApplyTransition(ctx context.Context, orgID common.OrgID, id common.ID, t alert.Transition) (*alert.Alert, error) {
	args := m.Called(ctx, orgID, id, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*alert.Alert), args.Error(1)
}

func (m *MockAlertRepository) SetReview(ctx context.Context, orgID common.OrgID, id common.ID, actor string, at time.Time) (*alert.Alert, error) {
	args := m.Called(ctx, orgID, id, actor, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*alert.Alert), args.Error(1)
}

func (m *MockAlertRepository) SweepOverdue(ctx context.Context, orgID common.OrgID, now time.Time) (int64, error) {
	args := m.Called(ctx, orgID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAlertRepository) ClaimForNotice(ctx context.Context, orgID common.OrgID, noticeID common.ID, window common.DateRange, deadline time.Time) (int64, error) {
	args := m.Called(ctx, orgID, noticeID, window, deadline)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAlertRepository) ReleaseFromNotice(ctx context.Context, orgID common.OrgID, noticeID common.ID) (int64, error) {
	args := m.Called(ctx, orgID, noticeID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAlertRepository) BulkMarkFileGenerated(ctx context.Context, orgID common.OrgID, noticeID common.ID, at time.Time) (int64, error) {
	args := m.Called(ctx, orgID, noticeID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAlertRepository) BulkMarkSubmitted(ctx context.Context, orgID common.OrgID, noticeID common.ID, at time.Time, folio string) (int64, error) {
	args := m.Called(ctx, orgID, noticeID, at, folio)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAlertRepository) BulkSetAckFolio(ctx context.Context, orgID common.OrgID, noticeID common.ID, folio string, at time.Time) (int64, error) {
	args := m.Called(ctx, orgID, noticeID, folio, at)
	return args.Get(0).(int64), args.Error(1)
}

// MockNoticeRepository mocks notice.Repository.
type MockNoticeRepository struct {
	mock.Mock
}

var _ notice.Repository = (*MockNoticeRepository)(nil)

func (m *MockNoticeRepository) Create(ctx context.Context, n *notice.Notice) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockNoticeRepository) FindByID(ctx context.Context, orgID common.OrgID, id common.ID) (*notice.Notice, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notice.Notice), args.Error(1)
}

func (m *MockNoticeRepository) FindPendingByMonth(ctx context.Context, orgID common.OrgID, reportedMonth string) (*notice.Notice, error) {
	args := m.Called(ctx, orgID, reportedMonth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notice.Notice), args.Error(1)
}

func (m *MockNoticeRepository) List(ctx context.Context, orgID common.OrgID, opts ...notice.QueryOption) ([]*notice.Notice, int64, error) {
	args := m.Called(ctx, orgID, opts)
	var notices []*notice.Notice
	if args.Get(0) != nil {
		notices = args.Get(0).([]*notice.Notice)
	}
	return notices, args.Get(1).(int64), args.Error(2)
}

func (m *MockNoticeRepository) SetRecordCount(ctx context.Context, orgID common.OrgID, id common.ID, count int64) error {
	return m.Called(ctx, orgID, id, count).Error(0)
}

func (m *MockNoticeRepository) MarkGenerated(ctx context.Context, orgID common.OrgID, id common.ID, key string, size int64, at time.Time) (*notice.Notice, error) {
	args := m.Called(ctx, orgID, id, key, size, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notice.Notice), args.Error(1)
}

func (m *MockNoticeRepository) MarkSubmitted(ctx context.Context, orgID common.OrgID, id common.ID, at time.Time, folio string) (*notice.Notice, error) {
	args := m.Called(ctx, orgID, id, at, folio)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notice.Notice), args.Error(1)
}

func (m *MockNoticeRepository) MarkAcknowledged(ctx context.Context, orgID common.OrgID, id common.ID, folio string, at time.Time) (*notice.Notice, error) {
	args := m.Called(ctx, orgID, id, folio, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notice.Notice), args.Error(1)
}

func (m *MockNoticeRepository) Delete(ctx context.Context, orgID common.OrgID, id common.ID) error {
	return m.Called(ctx, orgID, id).Error(0)
}

// MockRuleRepository mocks rule.Repository.
type MockRuleRepository struct {
	mock.Mock
}

var _ rule.Repository = (*MockRuleRepository)(nil)

func (m *MockRuleRepository) Create(ctx context.Context, r *rule.Rule) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRuleRepository) FindByID(ctx context.Context, orgID common.OrgID, id common.ID) (*rule.Rule, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rule.Rule), args.Error(1)
}

func (m *MockRuleRepository) FindByKey(ctx context.Context, orgID common.OrgID, key string) (*rule.Rule, error) {
	args := m.Called(ctx, orgID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rule.Rule), args.Error(1)
}

func (m *MockRuleRepository) List(ctx context.Context, orgID common.OrgID) ([]*rule.Rule, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rule.Rule), args.Error(1)
}

func (m *MockRuleRepository) SetActive(ctx context.Context, orgID common.OrgID, id common.ID, active bool) error {
	return m.Called(ctx, orgID, id, active).Error(0)
}

// MockCatalogResolver mocks catalog.Resolver.
type MockCatalogResolver struct {
	mock.Mock
}

var _ catalog.Resolver = (*MockCatalogResolver)(nil)

func (m *MockCatalogResolver) ResolveByIDs(ctx context.Context, ids []common.ID, opts ...catalog.ResolveOption) (map[common.ID]*catalog.Record, error) {
	args := m.Called(ctx, ids, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[common.ID]*catalog.Record), args.Error(1)
}

func (m *MockCatalogResolver) ResolveByCode(ctx context.Context, key catalog.Key, codes []string, opts ...catalog.ResolveOption) (map[string]*catalog.Record, error) {
	args := m.Called(ctx, key, codes, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*catalog.Record), args.Error(1)
}

func (m *MockCatalogResolver) ResolveByCodeAcrossCatalogs(ctx context.Context, keys []catalog.Key, codes []string, opts ...catalog.ResolveOption) (map[string]*catalog.Record, error) {
	args := m.Called(ctx, keys, codes, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*catalog.Record), args.Error(1)
}

// MockDocumentStore mocks document.Store.
type MockDocumentStore struct {
	mock.Mock
}

var _ document.Store = (*MockDocumentStore)(nil)

func (m *MockDocumentStore) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (*document.Stored, error) {
	args := m.Called(ctx, key, data, contentType, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Stored), args.Error(1)
}

// RecordingPublisher captures published events for assertions.
type RecordingPublisher struct {
	Events []events.Envelope
	Err    error
}

var _ events.Publisher = (*RecordingPublisher)(nil)

func (p *RecordingPublisher) Publish(_ context.Context, e events.Envelope) error {
	if p.Err != nil {
		return p.Err
	}
	p.Events = append(p.Events, e)
	return nil
}

// Types returns the event types published, in order.
func (p *RecordingPublisher) Types() []string {
	types := make([]string, 0, len(p.Events))
	for _, e := range p.Events {
		types = append(types, e.Type)
	}
	return types
}
