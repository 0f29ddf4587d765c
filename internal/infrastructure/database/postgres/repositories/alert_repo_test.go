//go:build integration

// Package repositories_test provides integration tests for the PostgreSQL
// repository implementations.  Tests require Docker and are gated behind the
// "integration" build tag.
package repositories_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vigiamx/satavisos/internal/domain/alert"
	"github.com/vigiamx/satavisos/internal/domain/notice"
	dbpostgres "github.com/vigiamx/satavisos/internal/infrastructure/database/postgres"
	"github.com/vigiamx/satavisos/internal/infrastructure/database/postgres/repositories"
	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

// startDatabase launches a PostgreSQL 16 container, applies the migrations,
// and returns an open handle.
func startDatabase(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "satavisos_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/satavisos_test?sslmode=disable", host, port.Port())
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.PingContext(ctx))

	require.NoError(t, dbpostgres.Migrate(db, "../../../../../migrations"))
	return db
}

func newDetectedAlert(t *testing.T, orgID common.OrgID, key string) *alert.Alert {
	t.Helper()
	a, err := alert.NewAlert(orgID, key, common.NewID(), common.NewID(), alert.SeverityHigh)
	require.NoError(t, err)
	return a
}

func TestAlertRepository_CreateAndFindByID(t *testing.T) {
	db := startDatabase(t)
	repo := repositories.NewAlertRepository(db)
	ctx := context.Background()
	orgID := common.OrgID(uuid.New().String())

	a := newDetectedAlert(t, orgID, "det-001")
	require.NoError(t, repo.Create(ctx, a))

	found, err := repo.FindByID(ctx, orgID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.IdempotencyKey, found.IdempotencyKey)
	assert.Equal(t, alert.StatusDetected, found.Status)
	assert.Nil(t, found.NoticeID)

	// Rows outside the organization are invisible.
	_, err = repo.FindByID(ctx, common.OrgID(uuid.New().String()), a.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAlertNotFound))
}

func TestAlertRepository_IdempotencyConflict(t *testing.T) {
	db := startDatabase(t)
	repo := repositories.NewAlertRepository(db)
	ctx := context.Background()
	orgID := common.OrgID(uuid.New().String())

	first := newDetectedAlert(t, orgID, "det-dup")
	require.NoError(t, repo.Create(ctx, first))

	second := newDetectedAlert(t, orgID, "det-dup")
	err := repo.Create(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))

	// The idempotent read resolves to the first row.
	found, err := repo.FindByIdempotencyKey(ctx, orgID, "det-dup")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	// Same key in another organization is a distinct alert.
	other := newDetectedAlert(t, common.OrgID(uuid.New().String()), "det-dup")
	require.NoError(t, repo.Create(ctx, other))
}

func TestAlertRepository_ApplyTransition(t *testing.T) {
	db := startDatabase(t)
	repo := repositories.NewAlertRepository(db)
	ctx := context.Background()
	orgID := common.OrgID(uuid.New().String())
	now := time.Now().UTC().Truncate(time.Microsecond)

	a := newDetectedAlert(t, orgID, "det-trans")
	require.NoError(t, repo.Create(ctx, a))

	updated, err := repo.ApplyTransition(ctx, orgID, a.ID, alert.Transition{
		FromStatuses:    []alert.Status{alert.StatusDetected, alert.StatusOverdue},
		To:              alert.StatusFileGenerated,
		FileGeneratedAt: &now,
	})
	require.NoError(t, err)
	assert.Equal(t, alert.StatusFileGenerated, updated.Status)
	require.NotNil(t, updated.FileGeneratedAt)

	// Predicate mismatch: the row is no longer DETECTED.
	_, err = repo.ApplyTransition(ctx, orgID, a.ID, alert.Transition{
		FromStatuses:    []alert.Status{alert.StatusDetected},
		To:              alert.StatusFileGenerated,
		FileGeneratedAt: &now,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidState))

	submitted, err := repo.ApplyTransition(ctx, orgID, a.ID, alert.Transition{
		FromStatuses:      []alert.Status{alert.StatusFileGenerated, alert.StatusDetected, alert.StatusOverdue},
		To:                alert.StatusSubmitted,
		SubmittedAt:       &now,
		ForceOverdueFalse: true,
	})
	require.NoError(t, err)
	assert.Equal(t, alert.StatusSubmitted, submitted.Status)
	assert.False(t, submitted.IsOverdue)

	// Terminal rows accept no further transition.
	_, err = repo.ApplyTransition(ctx, orgID, a.ID, alert.Transition{
		FromStatuses: []alert.Status{alert.StatusFileGenerated, alert.StatusDetected, alert.StatusOverdue},
		To:           alert.StatusCancelled,
		CancelledAt:  &now,
		CancelledBy:  "analyst",
		CancelReason: "duplicate",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAlertTerminal))

	// Unknown row classifies as not found, not invalid state.
	_, err = repo.ApplyTransition(ctx, orgID, common.NewID(), alert.Transition{
		FromStatuses: []alert.Status{alert.StatusDetected},
		To:           alert.StatusCancelled,
		CancelledAt:  &now,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAlertNotFound))
}

func TestAlertRepository_SweepOverdue(t *testing.T) {
	db := startDatabase(t)
	repo := repositories.NewAlertRepository(db)
	ctx := context.Background()
	orgID := common.OrgID(uuid.New().String())
	now := time.Now().UTC()

	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	late := newDetectedAlert(t, orgID, "det-late")
	late.SubmissionDeadline = &past
	require.NoError(t, repo.Create(ctx, late))

	onTime := newDetectedAlert(t, orgID, "det-on-time")
	onTime.SubmissionDeadline = &future
	require.NoError(t, repo.Create(ctx, onTime))

	noDeadline := newDetectedAlert(t, orgID, "det-no-deadline")
	require.NoError(t, repo.Create(ctx, noDeadline))

	flipped, err := repo.SweepOverdue(ctx, orgID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), flipped)

	found, err := repo.FindByID(ctx, orgID, late.ID)
	require.NoError(t, err)
	assert.Equal(t, alert.StatusOverdue, found.Status)
	assert.True(t, found.IsOverdue)

	// Idempotent: already-flipped rows don't match again.
	flipped, err = repo.SweepOverdue(ctx, orgID, now)
	require.NoError(t, err)
	assert.Zero(t, flipped)
}

func TestAlertRepository_ClaimForNotice(t *testing.T) {
	db := startDatabase(t)
	repo := repositories.NewAlertRepository(db)
	ctx := context.Background()
	orgID := common.OrgID(uuid.New().String())
	now := time.Now().UTC()

	inWindow1 := newDetectedAlert(t, orgID, "det-w1")
	inWindow2 := newDetectedAlert(t, orgID, "det-w2")
	require.NoError(t, repo.Create(ctx, inWindow1))
	require.NoError(t, repo.Create(ctx, inWindow2))

	noticeA := common.NewID()
	noticeB := common.NewID()
	window := common.DateRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}
	deadline := now.AddDate(0, 0, 17)

	claimed, err := repo.ClaimForNotice(ctx, orgID, noticeA, window, deadline)
	require.NoError(t, err)
	assert.Equal(t, int64(2), claimed)

	// Claimed rows are disjoint from any other claim.
	claimed, err = repo.ClaimForNotice(ctx, orgID, noticeB, window, deadline)
	require.NoError(t, err)
	assert.Zero(t, claimed)

	members, err := repo.ListByNotice(ctx, orgID, noticeA)
	require.NoError(t, err)
	require.Len(t, members, 2)
	for _, m := range members {
		require.NotNil(t, m.SubmissionDeadline)
	}

	released, err := repo.ReleaseFromNotice(ctx, orgID, noticeA)
	require.NoError(t, err)
	assert.Equal(t, int64(2), released)

	// Released rows become claimable again.
	claimed, err = repo.ClaimForNotice(ctx, orgID, noticeB, window, deadline)
	require.NoError(t, err)
	assert.Equal(t, int64(2), claimed)
}

func TestAlertRepository_ConcurrentClaimIsExclusive(t *testing.T) {
	db := startDatabase(t)
	repo := repositories.NewAlertRepository(db)
	ctx := context.Background()
	orgID := common.OrgID(uuid.New().String())
	now := time.Now().UTC()

	const eligible = 20
	for i := 0; i < eligible; i++ {
		require.NoError(t, repo.Create(ctx, newDetectedAlert(t, orgID, fmt.Sprintf("det-race-%02d", i))))
	}

	window := common.DateRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}
	deadline := now.AddDate(0, 0, 17)
	noticeIDs := []common.ID{common.NewID(), common.NewID()}

	var wg sync.WaitGroup
	counts := make([]int64, len(noticeIDs))
	claimErrs := make([]error, len(noticeIDs))
	for i := range noticeIDs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			counts[i], claimErrs[i] = repo.ClaimForNotice(ctx, orgID, noticeIDs[i], window, deadline)
		}(i)
	}
	wg.Wait()

	for i := range noticeIDs {
		require.NoError(t, claimErrs[i])
	}
	assert.Equal(t, int64(eligible), counts[0]+counts[1])

	seen := make(map[common.ID]bool)
	for _, nid := range noticeIDs {
		members, err := repo.ListByNotice(ctx, orgID, nid)
		require.NoError(t, err)
		for _, m := range members {
			assert.False(t, seen[m.ID], "alert %s claimed by both notices", m.ID)
			seen[m.ID] = true
		}
	}
	assert.Len(t, seen, eligible)
}

func TestAlertRepository_BulkStatusPropagation(t *testing.T) {
	db := startDatabase(t)
	repo := repositories.NewAlertRepository(db)
	ctx := context.Background()
	orgID := common.OrgID(uuid.New().String())
	now := time.Now().UTC().Truncate(time.Microsecond)

	member := newDetectedAlert(t, orgID, "det-member")
	cancelled := newDetectedAlert(t, orgID, "det-cancelled")
	require.NoError(t, repo.Create(ctx, member))
	require.NoError(t, repo.Create(ctx, cancelled))

	noticeID := common.NewID()
	window := common.DateRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}
	_, err := repo.ClaimForNotice(ctx, orgID, noticeID, window, now.AddDate(0, 0, 17))
	require.NoError(t, err)

	_, err = repo.ApplyTransition(ctx, orgID, cancelled.ID, alert.Transition{
		FromStatuses: []alert.Status{alert.StatusDetected, alert.StatusFileGenerated, alert.StatusOverdue},
		To:           alert.StatusCancelled,
		CancelledAt:  &now,
		CancelledBy:  "analyst",
		CancelReason: "false positive",
	})
	require.NoError(t, err)

	n, err := repo.BulkMarkFileGenerated(ctx, orgID, noticeID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.BulkMarkSubmitted(ctx, orgID, noticeID, now, "FOLIO-42")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := repo.FindByID(ctx, orgID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, alert.StatusSubmitted, found.Status)
	assert.Equal(t, "FOLIO-42", found.AckFolio)

	// Cancelled members are never touched by status propagation.
	found, err = repo.FindByID(ctx, orgID, cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, alert.StatusCancelled, found.Status)

	// Folio propagation covers every member, cancelled ones included.
	n, err = repo.BulkSetAckFolio(ctx, orgID, noticeID, "ACK-99", now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	found, err = repo.FindByID(ctx, orgID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACK-99", found.AckFolio)
	require.NotNil(t, found.AcknowledgedAt)

	found, err = repo.FindByID(ctx, orgID, cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACK-99", found.AckFolio)
	assert.Equal(t, alert.StatusCancelled, found.Status)
}

func newDraftNotice(t *testing.T, orgID common.OrgID, month string) *notice.Notice {
	t.Helper()
	start := time.Date(2024, 7, 17, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 8, 16, 23, 59, 59, 0, time.UTC)
	n, err := notice.NewNotice(orgID, "Aviso "+month, month, start, end)
	require.NoError(t, err)
	return n
}

func TestNoticeRepository_PendingPeriodUniqueness(t *testing.T) {
	db := startDatabase(t)
	repo := repositories.NewNoticeRepository(db)
	ctx := context.Background()
	orgID := common.OrgID(uuid.New().String())

	first := newDraftNotice(t, orgID, "202408")
	require.NoError(t, repo.Create(ctx, first))

	// A second pending notice for the same period collides on the partial
	// unique index.
	second := newDraftNotice(t, orgID, "202408")
	err := repo.Create(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoticePeriodPending))

	// Other periods and other organizations are unaffected.
	require.NoError(t, repo.Create(ctx, newDraftNotice(t, orgID, "202409")))
	require.NoError(t, repo.Create(ctx, newDraftNotice(t, common.OrgID(uuid.New().String()), "202408")))
}
