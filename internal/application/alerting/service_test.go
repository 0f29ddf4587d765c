package alerting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vigiamx/satavisos/internal/application/events"
	"github.com/vigiamx/satavisos/internal/application/reporting"
	"github.com/vigiamx/satavisos/internal/domain/alert"
	"github.com/vigiamx/satavisos/internal/domain/catalog"
	"github.com/vigiamx/satavisos/internal/domain/document"
	"github.com/vigiamx/satavisos/internal/domain/rule"
	"github.com/vigiamx/satavisos/internal/infrastructure/monitoring/logging"
	"github.com/vigiamx/satavisos/internal/testutil"
	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

const testOrg = common.OrgID("org-1")

type fixture struct {
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
	f.svc = NewService(f.alerts, f.rules, assembler, f.store, f.publisher, nil, logging.NewNopLogger())
	return f
}

// expectFreshKey answers the replay lookup with a miss, the normal case for a
// first-time detection.
func (f *fixture) expectFreshKey(key string) {
	f.alerts.On("FindByIdempotencyKey", mock.Anything, testOrg, key).
		Return(nil, errors.New(errors.ErrCodeAlertNotFound, "alert not found")).Once()
}

func activeRule(orgID common.OrgID) *rule.Rule {
	r, _ := rule.NewRule(orgID, "cash-threshold", "Cash above threshold")
	return r
}

func createInput(r *rule.Rule) CreateInput {
	return CreateInput{
		OrgID:          testOrg,
		IdempotencyKey: "client-1|cash-threshold|2024-01",
		RuleID:         r.ID,
		ClientID:       common.ID(uuid.New().String()),
		Severity:       alert.SeverityHigh,
	}
}

// reportableAlert builds an alert whose payload carries everything the
// serializer needs for a standalone filing.
func reportableAlert(t *testing.T) *alert.Alert {
	t.Helper()
	a, err := alert.NewAlert(testOrg, uuid.New().String(), common.ID(uuid.New().String()), common.ID(uuid.New().String()), alert.SeverityMedium)
	require.NoError(t, err)
	a.CreatedAt = time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)
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
// fixture payload references.
func (f *fixture) resolveAll() {
	hits := make(map[string]*catalog.Record)
	for _, code := range []string{"501", "042", "1", "MXN"} {
		hits[code] = &catalog.Record{Metadata: common.Metadata{"code": code}}
	}
	f.catalogs.On("ResolveByCode", mock.Anything, mock.AnythingOfType("catalog.Key"), mock.Anything, mock.Anything).
		Return(hits, nil)
}

func TestCreateNewAlert(t *testing.T) {
	f := newFixture(t)
	r := activeRule(testOrg)
	in := createInput(r)

	f.expectFreshKey(in.IdempotencyKey)
	f.rules.On("FindByID", mock.Anything, testOrg, r.ID).Return(r, nil)
	f.alerts.On("Create", mock.Anything, mock.AnythingOfType("*alert.Alert")).Return(nil)

	a, created, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, alert.StatusDetected, a.Status)
	assert.Equal(t, in.IdempotencyKey, a.IdempotencyKey)
	assert.Nil(t, a.SubmissionDeadline)
	assert.Equal(t, []string{events.TypeAlertCreated}, f.publisher.Types())
	f.alerts.AssertExpectations(t)
}

func TestCreateReplaysExistingAlert(t *testing.T) {
	f := newFixture(t)
	r := activeRule(testOrg)
	in := createInput(r)

	existing, err := alert.NewAlert(testOrg, in.IdempotencyKey, r.ID, in.ClientID, alert.SeverityHigh)
	require.NoError(t, err)

	f.alerts.On("FindByIdempotencyKey", mock.Anything, testOrg, in.IdempotencyKey).Return(existing, nil)

	a, created, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, a.ID)
	assert.Empty(t, f.publisher.Events, "replayed creation must not publish")
	f.alerts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateReplaySkipsRuleGating(t *testing.T) {
	f := newFixture(t)
	r := activeRule(testOrg)
	in := createInput(r)

	existing, err := alert.NewAlert(testOrg, in.IdempotencyKey, r.ID, in.ClientID, alert.SeverityHigh)
	require.NoError(t, err)

	// The rule was deactivated after the alert was first accepted; the
	// replay must still come back unchanged.
	r.Active = false
	f.alerts.On("FindByIdempotencyKey", mock.Anything, testOrg, in.IdempotencyKey).Return(existing, nil)

	a, created, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, a.ID)
	f.rules.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateIdempotentOnInsertRace(t *testing.T) {
	f := newFixture(t)
	r := activeRule(testOrg)
	in := createInput(r)

	existing, err := alert.NewAlert(testOrg, in.IdempotencyKey, r.ID, in.ClientID, alert.SeverityHigh)
	require.NoError(t, err)

	// A second writer lands the row between our lookup and our insert; the
	// unique-key conflict resolves to the row that won.
	f.alerts.On("FindByIdempotencyKey", mock.Anything, testOrg, in.IdempotencyKey).
		Return(nil, errors.New(errors.ErrCodeAlertNotFound, "alert not found")).Once()
	f.rules.On("FindByID", mock.Anything, testOrg, r.ID).Return(r, nil)
	f.alerts.On("Create", mock.Anything, mock.AnythingOfType("*alert.Alert")).
		Return(errors.New(errors.ErrCodeConflict, "duplicate idempotency key"))
	f.alerts.On("FindByIdempotencyKey", mock.Anything, testOrg, in.IdempotencyKey).
		Return(existing, nil).Once()

	a, created, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, a.ID)
	assert.Empty(t, f.publisher.Events, "replayed creation must not publish")
}

func TestCreateRejectsInactiveRule(t *testing.T) {
	f := newFixture(t)
	r := activeRule(testOrg)
	r.Active = false

	in := createInput(r)
	f.expectFreshKey(in.IdempotencyKey)
	f.rules.On("FindByID", mock.Anything, testOrg, r.ID).Return(r, nil)

	_, _, err := f.svc.Create(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRuleInactive))
	f.alerts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateRejectsAutomaticOnManualOnlyRule(t *testing.T) {
	f := newFixture(t)
	r := activeRule(testOrg)
	r.ManualOnly = true

	in := createInput(r)
	f.rules.On("FindByID", mock.Anything, testOrg, r.ID).Return(r, nil)

	f.expectFreshKey(in.IdempotencyKey)
	_, _, err := f.svc.Create(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRuleManualOnly))

	in.IsManual = true
	f.expectFreshKey(in.IdempotencyKey)
	f.alerts.On("Create", mock.Anything, mock.AnythingOfType("*alert.Alert")).Return(nil)
	_, created, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestCreateAppliesRuleDeadlinePolicy(t *testing.T) {
	f := newFixture(t)
	r := activeRule(testOrg)
	days := 15
	r.DeadlineDays = &days

	in := createInput(r)
	f.expectFreshKey(in.IdempotencyKey)
	f.rules.On("FindByID", mock.Anything, testOrg, r.ID).Return(r, nil)
	f.alerts.On("Create", mock.Anything, mock.AnythingOfType("*alert.Alert")).Return(nil)

	a, _, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, a.SubmissionDeadline)
	assert.Equal(t, a.CreatedAt.AddDate(0, 0, 15), *a.SubmissionDeadline)
}

func TestCreateCallerDeadlineOverridesRule(t *testing.T) {
	f := newFixture(t)
	r := activeRule(testOrg)
	days := 15
	r.DeadlineDays = &days

	explicit := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	in := createInput(r)
	in.Deadline = &explicit

	f.expectFreshKey(in.IdempotencyKey)
	f.rules.On("FindByID", mock.Anything, testOrg, r.ID).Return(r, nil)
	f.alerts.On("Create", mock.Anything, mock.AnythingOfType("*alert.Alert")).Return(nil)

	a, _, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, a.SubmissionDeadline)
	assert.Equal(t, explicit, *a.SubmissionDeadline)
}

func TestGetRunsLazySweep(t *testing.T) {
	f := newFixture(t)
	id := common.ID(uuid.New().String())
	a := &alert.Alert{ID: id, OrgID: testOrg, Status: alert.StatusDetected}

	f.alerts.On("SweepOverdue", mock.Anything, testOrg, mock.AnythingOfType("time.Time")).Return(int64(2), nil)
	f.alerts.On("FindByID", mock.Anything, testOrg, id).Return(a, nil)

	got, err := f.svc.Get(context.Background(), testOrg, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, []string{events.TypeAlertOverdue}, f.publisher.Types())
	f.alerts.AssertExpectations(t)
}

func TestGetSurvivesSweepFailure(t *testing.T) {
	f := newFixture(t)
	id := common.ID(uuid.New().String())
	a := &alert.Alert{ID: id, OrgID: testOrg, Status: alert.StatusDetected}

	f.alerts.On("SweepOverdue", mock.Anything, testOrg, mock.AnythingOfType("time.Time")).
		Return(int64(0), errors.Internal("db down"))
	f.alerts.On("FindByID", mock.Anything, testOrg, id).Return(a, nil)

	got, err := f.svc.Get(context.Background(), testOrg, id)
	require.NoError(t, err, "a failed sweep must never break the read")
	assert.Equal(t, id, got.ID)
}

func TestMarkFileGeneratedRendersAndStores(t *testing.T) {
	f := newFixture(t)
	a := reportableAlert(t)

	f.alerts.On("FindByID", mock.Anything, testOrg, a.ID).Return(a, nil)
	f.rules.On("FindByID", mock.Anything, testOrg, a.RuleID).
		Return(&rule.Rule{ID: a.RuleID, Name: "Cash threshold"}, nil)
	f.resolveAll()
	f.store.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "alerts/org-1/202401/") && strings.HasSuffix(key, ".xml")
	}), mock.Anything, "application/xml", mock.Anything).
		Return(&document.Stored{Key: "alerts/org-1/202401/doc.xml", Size: 1024, Checksum: "abc"}, nil)

	generated := *a
	generated.Status = alert.StatusFileGenerated
	f.alerts.On("ApplyTransition", mock.Anything, testOrg, a.ID, mock.MatchedBy(func(tr alert.Transition) bool {
		return tr.To == alert.StatusFileGenerated && tr.FileGeneratedAt != nil
	})).Return(&generated, nil)

	got, err := f.svc.MarkFileGenerated(context.Background(), testOrg, a.ID)
	require.NoError(t, err)
	assert.Equal(t, alert.StatusFileGenerated, got.Status)
	f.store.AssertExpectations(t)
	f.alerts.AssertExpectations(t)
}

func TestMarkFileGeneratedRejectsTerminalStatus(t *testing.T) {
	f := newFixture(t)
	a := reportableAlert(t)
	a.Status = alert.StatusSubmitted

	f.alerts.On("FindByID", mock.Anything, testOrg, a.ID).Return(a, nil)

	_, err := f.svc.MarkFileGenerated(context.Background(), testOrg, a.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidState))
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.alerts.AssertNotCalled(t, "ApplyTransition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkFileGeneratedLeavesStatusOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	a := reportableAlert(t)

	f.alerts.On("FindByID", mock.Anything, testOrg, a.ID).Return(a, nil)
	f.rules.On("FindByID", mock.Anything, testOrg, a.RuleID).
		Return(&rule.Rule{ID: a.RuleID, Name: "Cash threshold"}, nil)
	f.resolveAll()
	f.store.On("Put", mock.Anything, mock.AnythingOfType("string"), mock.Anything, "application/xml", mock.Anything).
		Return(nil, errors.Internal("bucket unreachable"))

	_, err := f.svc.MarkFileGenerated(context.Background(), testOrg, a.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDocumentStoreError))
	f.alerts.AssertNotCalled(t, "ApplyTransition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitCuresOverdue(t *testing.T) {
	f := newFixture(t)
	id := common.ID(uuid.New().String())
	submitted := &alert.Alert{ID: id, OrgID: testOrg, Status: alert.StatusSubmitted}

	f.alerts.On("ApplyTransition", mock.Anything, testOrg, id, mock.MatchedBy(func(tr alert.Transition) bool {
		return tr.To == alert.StatusSubmitted && tr.ForceOverdueFalse && tr.SubmittedAt != nil
	})).Return(submitted, nil)

	got, err := f.svc.Submit(context.Background(), testOrg, id, "FOLIO-1")
	require.NoError(t, err)
	assert.Equal(t, alert.StatusSubmitted, got.Status)
	f.alerts.AssertExpectations(t)
}

func TestCancelRequiresActor(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Cancel(context.Background(), testOrg, common.ID(uuid.New().String()), "", "dup")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAlertMissingActor))
	f.alerts.AssertNotCalled(t, "ApplyTransition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelPublishesEvent(t *testing.T) {
	f := newFixture(t)
	id := common.ID(uuid.New().String())
	cancelled := &alert.Alert{ID: id, OrgID: testOrg, Status: alert.StatusCancelled}

	f.alerts.On("ApplyTransition", mock.Anything, testOrg, id, mock.MatchedBy(func(tr alert.Transition) bool {
		return tr.To == alert.StatusCancelled && tr.CancelledBy == "analyst@org"
	})).Return(cancelled, nil)

	_, err := f.svc.Cancel(context.Background(), testOrg, id, "analyst@org", "duplicate detection")
	require.NoError(t, err)
	assert.Equal(t, []string{events.TypeAlertCancelled}, f.publisher.Types())
}

func TestSweepOverduePublishesOnlyWhenRowsFlip(t *testing.T) {
	f := newFixture(t)

	f.alerts.On("SweepOverdue", mock.Anything, testOrg, mock.AnythingOfType("time.Time")).
		Return(int64(0), nil).Once()
	n, err := f.svc.SweepOverdue(context.Background(), testOrg)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.publisher.Events)

	f.alerts.On("SweepOverdue", mock.Anything, testOrg, mock.AnythingOfType("time.Time")).
		Return(int64(3), nil).Once()
	n, err = f.svc.SweepOverdue(context.Background(), testOrg)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []string{events.TypeAlertOverdue}, f.publisher.Types())
}

func TestReviewRequiresActor(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Review(context.Background(), testOrg, common.ID(uuid.New().String()), "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}
