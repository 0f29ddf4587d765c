package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigiamx/satavisos/pkg/errors"
)

func TestForMidYearWindow(t *testing.T) {
	p, err := For(2024, time.March)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, time.February, 17, 0, 0, 0, 0, Zone()), p.Start)
	assert.Equal(t, time.Date(2024, time.March, 16, 23, 59, 59, 0, Zone()), p.End)
	assert.Equal(t, "202403", p.ReportedMonth)
	assert.Equal(t, "17 de febrero de 2024 al 16 de marzo de 2024", p.DisplayName)
}

func TestForJanuaryRollsIntoPriorDecember(t *testing.T) {
	p, err := For(2024, time.January)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2023, time.December, 17, 0, 0, 0, 0, Zone()), p.Start)
	assert.Equal(t, time.Date(2024, time.January, 16, 23, 59, 59, 0, Zone()), p.End)
	assert.Equal(t, "202401", p.ReportedMonth)
	assert.Equal(t, "17 de diciembre de 2023 al 16 de enero de 2024", p.DisplayName)
}

func TestForRejectsBadInput(t *testing.T) {
	_, err := For(2024, time.Month(13))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = For(0, time.January)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestContainsBoundaries(t *testing.T) {
	p, err := For(2024, time.March)
	require.NoError(t, err)

	assert.True(t, p.Contains(p.Start))
	assert.True(t, p.Contains(p.End))
	assert.False(t, p.Contains(p.Start.Add(-time.Second)))
	assert.False(t, p.Contains(p.End.Add(time.Second)))
}

func TestDeadlineIsDaySeventeen(t *testing.T) {
	deadline, err := DeadlineFor(2024, time.March)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 17, 23, 59, 59, 0, Zone()), deadline)
}

func TestCandidateMonthsBeforeCycleDay(t *testing.T) {
	// March 10 is still inside the March window.
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, Zone())
	periods := CandidateMonths(now, 3)
	require.Len(t, periods, 3)

	assert.Equal(t, "202403", periods[0].ReportedMonth)
	assert.Equal(t, "202402", periods[1].ReportedMonth)
	assert.Equal(t, "202401", periods[2].ReportedMonth)
}

func TestCandidateMonthsAfterCycleDayShiftsForward(t *testing.T) {
	// March 20 already belongs to the April window.
	now := time.Date(2024, time.March, 20, 12, 0, 0, 0, Zone())
	periods := CandidateMonths(now, 3)
	require.Len(t, periods, 3)

	assert.Equal(t, "202404", periods[0].ReportedMonth)
	assert.Equal(t, "202403", periods[1].ReportedMonth)
	assert.Equal(t, "202402", periods[2].ReportedMonth)
}

func TestCandidateMonthsDecemberShiftCrossesYear(t *testing.T) {
	now := time.Date(2024, time.December, 18, 9, 0, 0, 0, Zone())
	periods := CandidateMonths(now, 2)
	require.Len(t, periods, 2)

	assert.Equal(t, "202501", periods[0].ReportedMonth)
	assert.Equal(t, "202412", periods[1].ReportedMonth)
}

func TestContainingShiftsPastCycleDay(t *testing.T) {
	// January 10 sits inside the January window.
	p, err := Containing(time.Date(2024, time.January, 10, 12, 0, 0, 0, Zone()))
	require.NoError(t, err)
	assert.Equal(t, "202401", p.ReportedMonth)

	// January 20 already belongs to February's window.
	p, err = Containing(time.Date(2024, time.January, 20, 12, 0, 0, 0, Zone()))
	require.NoError(t, err)
	assert.Equal(t, "202402", p.ReportedMonth)

	// December 18 crosses the year boundary.
	p, err = Containing(time.Date(2024, time.December, 18, 9, 0, 0, 0, Zone()))
	require.NoError(t, err)
	assert.Equal(t, "202501", p.ReportedMonth)
}

func TestParseRoundTrip(t *testing.T) {
	p, err := Parse("202401")
	require.NoError(t, err)
	assert.Equal(t, 2024, p.Year)
	assert.Equal(t, time.January, p.Month)

	_, err = Parse("2024-1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = Parse("abcdef")
	require.Error(t, err)
}
