package notices

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vigiamx/satavisos/internal/application/events"
	"github.com/vigiamx/satavisos/internal/application/period"
	"github.com/vigiamx/satavisos/internal/application/reporting"
	"github.com/vigiamx/satavisos/internal/domain/alert"
	"github.com/vigiamx/satavisos/internal/domain/catalog"
	"github.com/vigiamx/satavisos/internal/domain/document"
	"github.com/vigiamx/satavisos/internal/domain/notice"
	"github.com/vigiamx/satavisos/internal/domain/rule"
	"github.com/vigiamx/satavisos/internal/infrastructure/monitoring/logging"
	"github.com/vigiamx/satavisos/internal/testutil"
	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

const testOrg = common.OrgID("org-1")

type fixture struct {
	notices   *testutil.MockNoticeRepository
	alerts    *testutil.MockAlertRepository
	rules     *testutil.MockRuleRepository
	catalogs  *testutil.MockCatalogResolver
	store     *testutil.MockDocumentStore
	publisher *testutil.RecordingPublisher
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		notices:   new(testutil.MockNoticeRepository),
		alerts:    new(testutil.MockAlertRepository),
		rules:     new(testutil.MockRuleRepository),
		catalogs:  new(testutil.MockCatalogResolver),
		store:     new(testutil.MockDocumentStore),
		publisher: new(testutil.RecordingPublisher),
	}
	assembler := reporting.NewAssembler(
		reporting.ObligorConfig{ObligorID: "VHC010101ABC", ActivityCode: "VEH"},
		f.catalogs,
		f.rules,
	)
	f.svc = NewService(f.notices, f.alerts, assembler, f.store, f.publisher, nil, logging.NewNopLogger())
	return f
}

func draftNotice(t *testing.T) *notice.Notice {
	t.Helper()
	p, err := period.For(2024, time.January)
	require.NoError(t, err)
	n, err := notice.NewNotice(testOrg, "", p.ReportedMonth, p.Start, p.End)
	require.NoError(t, err)
	return n
}

func memberAlert(t *testing.T) *alert.Alert {
	t.Helper()
	a, err := alert.NewAlert(testOrg, uuid.New().String(), common.ID(uuid.New().String()), common.ID(uuid.New().String()), alert.SeverityMedium)
	require.NoError(t, err)
	a.Payload = alert.Payload{
		Person: &alert.Person{
			Kind: alert.PersonIndividual,
			Individual: &alert.Individual{
				FirstName:       "Carlos",
				PaternalSurname: "Reyes",
			},
			Address: &alert.Address{
				Kind:       alert.AddressDomestic,
				Street:     "Calle 5",
				PostalCode: "06700",
			},
		},
		Operation: &alert.Operation{
			Date:     time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC),
			TypeCode: "501",
			Vehicles: []alert.Vehicle{{
				Kind:      alert.VehicleLand,
				BrandCode: "042",
				Year:      2022,
				VIN:       "VIN0001",
			}},
			Payments: []alert.Payment{{
				Date:         time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC),
				FormCode:     "1",
				CurrencyCode: "MXN",
				Amount:       "250000",
			}},
		},
	}
	return a
}

// resolveAll answers every catalog lookup with a hit for each code the
// fixture payload references.  Membership is checked per requested code, so
// one superset map serves every catalog.
func (f *fixture) resolveAll() {
	hits := make(map[string]*catalog.Record)
	for _, code := range []string{"501", "042", "1", "MXN"} {
		hits[code] = &catalog.Record{Metadata: common.Metadata{"code": code}}
	}
	f.catalogs.On("ResolveByCode", mock.Anything, mock.AnythingOfType("catalog.Key"), mock.Anything, mock.Anything).
		Return(hits, nil)
}

func TestCreateForPeriodClaimsWindow(t *testing.T) {
	f := newFixture(t)

	p, err := period.For(2024, time.January)
	require.NoError(t, err)
	deadline, err := period.DeadlineFor(2024, time.January)
	require.NoError(t, err)

	f.notices.On("Create", mock.Anything, mock.MatchedBy(func(n *notice.Notice) bool {
		return n.ReportedMonth == "202401" && n.Status == notice.StatusDraft &&
			n.PeriodStart.Equal(p.Start) && n.PeriodEnd.Equal(p.End)
	})).Return(nil)
	f.alerts.On("ClaimForNotice", mock.Anything, testOrg, mock.AnythingOfType("common.ID"),
		common.DateRange{From: p.Start, To: p.End}, deadline).Return(int64(4), nil)
	f.notices.On("SetRecordCount", mock.Anything, testOrg, mock.AnythingOfType("common.ID"), int64(4)).Return(nil)

	n, err := f.svc.CreateForPeriod(context.Background(), testOrg, 2024, time.January, "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n.RecordCount)
	assert.Equal(t, "Aviso 202401", n.Name)
	f.alerts.AssertExpectations(t)
	f.notices.AssertExpectations(t)
}

func TestCreateForPeriodPropagatesPendingConflict(t *testing.T) {
	f := newFixture(t)

	f.notices.On("Create", mock.Anything, mock.AnythingOfType("*notice.Notice")).
		Return(errors.New(errors.ErrCodeNoticePeriodPending, "pending notice exists for period"))

	_, err := f.svc.CreateForPeriod(context.Background(), testOrg, 2024, time.January, "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoticePeriodPending))
	f.alerts.AssertNotCalled(t, "ClaimForNotice", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateHappyPath(t *testing.T) {
	f := newFixture(t)
	n := draftNotice(t)
	member := memberAlert(t)

	f.notices.On("FindByID", mock.Anything, testOrg, n.ID).Return(n, nil)
	f.alerts.On("ListByNotice", mock.Anything, testOrg, n.ID).Return([]*alert.Alert{member}, nil)
	f.rules.On("FindByID", mock.Anything, testOrg, member.RuleID).
		Return(&rule.Rule{ID: member.RuleID, Name: "Cash threshold"}, nil)
	f.resolveAll()
	f.store.On("Put", mock.Anything, mock.AnythingOfType("string"), mock.Anything, "application/xml", mock.Anything).
		Return(&document.Stored{Key: "notices/org-1/202401/doc.xml", Size: 2048, Checksum: "abc"}, nil)

	generated := *n
	generated.Status = notice.StatusGenerated
	generated.DocumentKey = "notices/org-1/202401/doc.xml"
	f.notices.On("MarkGenerated", mock.Anything, testOrg, n.ID, "notices/org-1/202401/doc.xml", int64(2048), mock.AnythingOfType("time.Time")).
		Return(&generated, nil)
	f.alerts.On("BulkMarkFileGenerated", mock.Anything, testOrg, n.ID, mock.AnythingOfType("time.Time")).
		Return(int64(1), nil)

	got, err := f.svc.Generate(context.Background(), testOrg, n.ID)
	require.NoError(t, err)
	assert.Equal(t, notice.StatusGenerated, got.Status)
	assert.Equal(t, []string{events.TypeNoticeGenerated}, f.publisher.Types())
	f.store.AssertExpectations(t)
}

func TestGenerateRejectsNonDraft(t *testing.T) {
	f := newFixture(t)
	n := draftNotice(t)
	n.Status = notice.StatusGenerated

	f.notices.On("FindByID", mock.Anything, testOrg, n.ID).Return(n, nil)

	_, err := f.svc.Generate(context.Background(), testOrg, n.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoticeNotDraft))
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateRejectsEmptyNotice(t *testing.T) {
	f := newFixture(t)
	n := draftNotice(t)

	f.notices.On("FindByID", mock.Anything, testOrg, n.ID).Return(n, nil)
	f.alerts.On("ListByNotice", mock.Anything, testOrg, n.ID).Return([]*alert.Alert{}, nil)

	_, err := f.svc.Generate(context.Background(), testOrg, n.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoticeEmpty))
}

func TestGenerateFailsOnCatalogMiss(t *testing.T) {
	f := newFixture(t)
	n := draftNotice(t)
	member := memberAlert(t)

	f.notices.On("FindByID", mock.Anything, testOrg, n.ID).Return(n, nil)
	f.alerts.On("ListByNotice", mock.Anything, testOrg, n.ID).Return([]*alert.Alert{member}, nil)
	f.catalogs.On("ResolveByCode", mock.Anything, mock.AnythingOfType("catalog.Key"), mock.Anything, mock.Anything).
		Return(map[string]*catalog.Record{}, nil)

	_, err := f.svc.Generate(context.Background(), testOrg, n.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCatalogMissingRef))
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateFailsOnIncompletePayload(t *testing.T) {
	f := newFixture(t)
	n := draftNotice(t)
	member := memberAlert(t)
	member.Payload.Person = nil

	f.notices.On("FindByID", mock.Anything, testOrg, n.ID).Return(n, nil)
	f.alerts.On("ListByNotice", mock.Anything, testOrg, n.ID).Return([]*alert.Alert{member}, nil)

	_, err := f.svc.Generate(context.Background(), testOrg, n.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRenderMissingData))
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitPropagatesToMembers(t *testing.T) {
	f := newFixture(t)
	id := common.ID(uuid.New().String())
	submitted := &notice.Notice{ID: id, OrgID: testOrg, Status: notice.StatusSubmitted, ReportedMonth: "202401"}

	f.notices.On("MarkSubmitted", mock.Anything, testOrg, id, mock.AnythingOfType("time.Time"), "FOLIO-9").
		Return(submitted, nil)
	f.alerts.On("BulkMarkSubmitted", mock.Anything, testOrg, id, mock.AnythingOfType("time.Time"), "FOLIO-9").
		Return(int64(3), nil)

	got, err := f.svc.Submit(context.Background(), testOrg, id, "FOLIO-9")
	require.NoError(t, err)
	assert.Equal(t, notice.StatusSubmitted, got.Status)
	assert.Equal(t, []string{events.TypeNoticeSubmitted}, f.publisher.Types())
	f.alerts.AssertExpectations(t)
}

func TestAcknowledgeRequiresFolio(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Acknowledge(context.Background(), testOrg, common.ID(uuid.New().String()), "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestAcknowledgeCopiesFolioToMembers(t *testing.T) {
	f := newFixture(t)
	id := common.ID(uuid.New().String())
	acked := &notice.Notice{ID: id, OrgID: testOrg, Status: notice.StatusAcknowledged, Folio: "SAT-123"}

	f.notices.On("MarkAcknowledged", mock.Anything, testOrg, id, "SAT-123", mock.AnythingOfType("time.Time")).
		Return(acked, nil)
	f.alerts.On("BulkSetAckFolio", mock.Anything, testOrg, id, "SAT-123", mock.AnythingOfType("time.Time")).
		Return(int64(3), nil)

	got, err := f.svc.Acknowledge(context.Background(), testOrg, id, "SAT-123")
	require.NoError(t, err)
	assert.Equal(t, "SAT-123", got.Folio)
	assert.Equal(t, []string{events.TypeNoticeAcknowledged}, f.publisher.Types())
}

func TestDeleteReleasesMembersFirst(t *testing.T) {
	f := newFixture(t)
	n := draftNotice(t)

	f.notices.On("FindByID", mock.Anything, testOrg, n.ID).Return(n, nil)
	f.alerts.On("ReleaseFromNotice", mock.Anything, testOrg, n.ID).Return(int64(2), nil)
	f.notices.On("Delete", mock.Anything, testOrg, n.ID).Return(nil)

	require.NoError(t, f.svc.Delete(context.Background(), testOrg, n.ID))
	f.alerts.AssertExpectations(t)
	f.notices.AssertExpectations(t)
}

func TestDeleteRejectsNonDraft(t *testing.T) {
	f := newFixture(t)
	n := draftNotice(t)
	n.Status = notice.StatusSubmitted

	f.notices.On("FindByID", mock.Anything, testOrg, n.ID).Return(n, nil)

	err := f.svc.Delete(context.Background(), testOrg, n.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidState))
	f.notices.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}
