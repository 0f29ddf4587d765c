package notice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigiamx/satavisos/pkg/errors"
)

func newDraft(t *testing.T) *Notice {
	t.Helper()
	start := time.Date(2023, time.December, 17, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.January, 16, 23, 59, 59, 0, time.UTC)
	n, err := NewNotice("org-1", "", "202401", start, end)
	require.NoError(t, err)
	return n
}

func TestNewNoticeDefaultsName(t *testing.T) {
	n := newDraft(t)
	assert.Equal(t, "Aviso 202401", n.Name)
	assert.Equal(t, StatusDraft, n.Status)
}

func TestNewNoticeValidation(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	_, err := NewNotice("", "x", "202401", start, start.Add(time.Hour))
	require.Error(t, err)

	_, err = NewNotice("org-1", "x", "", start, start.Add(time.Hour))
	require.Error(t, err)

	_, err = NewNotice("org-1", "x", "202401", start, start)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestStatusPending(t *testing.T) {
	assert.True(t, StatusDraft.Pending())
	assert.True(t, StatusGenerated.Pending())
	assert.False(t, StatusSubmitted.Pending())
	assert.False(t, StatusAcknowledged.Pending())
}

func TestOneWayChain(t *testing.T) {
	n := newDraft(t)
	now := time.Now().UTC()

	// cannot skip generation
	err := n.MarkSubmitted(now, "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoticeNotGenerated))

	// cannot acknowledge a draft
	err = n.MarkAcknowledged("SAT-1", now)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoticeNotSubmitted))

	require.NoError(t, n.MarkGenerated("docs/n.xml", 512, now))
	assert.Equal(t, StatusGenerated, n.Status)
	assert.Equal(t, "docs/n.xml", n.DocumentKey)

	// no regeneration
	err = n.MarkGenerated("docs/other.xml", 1, now)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoticeNotDraft))

	require.NoError(t, n.MarkSubmitted(now, "FOLIO-1"))
	assert.Equal(t, StatusSubmitted, n.Status)

	// no double submission
	err = n.MarkSubmitted(now, "FOLIO-2")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidState))

	err = n.MarkAcknowledged("", now)
	require.Error(t, err, "folio is mandatory")

	require.NoError(t, n.MarkAcknowledged("SAT-123", now))
	assert.Equal(t, StatusAcknowledged, n.Status)
	assert.Equal(t, "SAT-123", n.Folio)
}

func TestDeletable(t *testing.T) {
	n := newDraft(t)
	assert.True(t, n.Deletable())

	require.NoError(t, n.MarkGenerated("k", 1, time.Now()))
	assert.False(t, n.Deletable())
}
