// Package period implements the authority's fixed reporting cycle: the
// window for a (year, month) pair runs from day 17 of the preceding calendar
// month through day 16 of the given month, and the filing deadline is day 17
// of the given month.  All arithmetic happens in the authority's local zone;
// computing boundaries in UTC would shift them across midnight.
package period

import (
	"fmt"
	"time"

	"github.com/vigiamx/satavisos/pkg/errors"
)

// cycleDay is the day of month on which one window closes (inclusive) and
// the next opens.
const cycleDay = 16

// zoneName is the authority's local zone.
const zoneName = "America/Mexico_City"

var zone = mustLoadZone()

func mustLoadZone() *time.Location {
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		// The tzdata for Mexico City ships with every supported platform;
		// failing to load it means the runtime environment is broken.
		panic(fmt.Sprintf("period: cannot load zone %s: %v", zoneName, err))
	}
	return loc
}

// Zone returns the authority's local zone.  Exposed so callers stamping
// operation dates can stay consistent with period boundaries.
func Zone() *time.Location {
	return zone
}

// Period is one reporting window plus its labels.
type Period struct {
	Year  int
	Month time.Month

	// Start is 00:00:00 on day 17 of the preceding calendar month.
	Start time.Time
	// End is 23:59:59 on day 16 of the period's month; the window is
	// inclusive of End.
	End time.Time

	// ReportedMonth is the authority's six-digit period label (YYYYMM of
	// the closing month).
	ReportedMonth string

	// DisplayName is the human-facing window description.
	DisplayName string
}

// Contains reports whether t falls inside the window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// For computes the reporting window for (year, month).  month=1 rolls the
// window start into December of year-1.
func For(year int, month time.Month) (Period, error) {
	if month < time.January || month > time.December {
		return Period{}, errors.Validation(fmt.Sprintf("month %d out of range", month))
	}
	if year < 1 {
		return Period{}, errors.Validation(fmt.Sprintf("year %d out of range", year))
	}

	// time.Date normalizes month 0 to December of the prior year.
	start := time.Date(year, month-1, cycleDay+1, 0, 0, 0, 0, zone)
	end := time.Date(year, month, cycleDay, 23, 59, 59, 0, zone)

	return Period{
		Year:          year,
		Month:         month,
		Start:         start,
		End:           end,
		ReportedMonth: fmt.Sprintf("%04d%02d", year, int(month)),
		DisplayName: fmt.Sprintf("17 de %s de %d al 16 de %s de %d",
			monthNames[start.Month()-1], start.Year(),
			monthNames[month-1], year),
	}, nil
}

// DeadlineFor returns the authority-mandated submission deadline for the
// (year, month) period: the end of day 17 of the period's closing month, one
// day past the window's end.
func DeadlineFor(year int, month time.Month) (time.Time, error) {
	p, err := For(year, month)
	if err != nil {
		return time.Time{}, err
	}
	return p.End.AddDate(0, 0, 1), nil
}

// Containing returns the period whose window covers t.  Past day 16 the
// instant already belongs to the next month's window.
func Containing(t time.Time) (Period, error) {
	local := t.In(zone)
	year, month := local.Year(), local.Month()
	if local.Day() > cycleDay {
		next := time.Date(year, month+1, 1, 0, 0, 0, 0, zone)
		year, month = next.Year(), next.Month()
	}
	return For(year, month)
}

// CandidateMonths returns up to count periods a caller may create a notice
// for, newest first.  When now is already past day 16, the next unstarted
// period leads the list: an alert raised today belongs to that window, so it
// must be offered as a creation candidate.  This shifts the start index
// rather than widening the window.
func CandidateMonths(now time.Time, count int) []Period {
	if count <= 0 {
		count = 3
	}
	local := now.In(zone)

	year, month := local.Year(), local.Month()
	if local.Day() > cycleDay {
		// Today's alerts already fall in next month's window.
		next := time.Date(year, month+1, 1, 0, 0, 0, 0, zone)
		year, month = next.Year(), next.Month()
	}

	periods := make([]Period, 0, count)
	cursor := time.Date(year, month, 1, 0, 0, 0, 0, zone)
	for i := 0; i < count; i++ {
		p, err := For(cursor.Year(), cursor.Month())
		if err != nil {
			break
		}
		periods = append(periods, p)
		cursor = cursor.AddDate(0, -1, 0)
	}
	return periods
}

// Parse converts a six-digit period label back into its window.
func Parse(reportedMonth string) (Period, error) {
	if len(reportedMonth) != 6 {
		return Period{}, errors.Validation("reported month must be YYYYMM").
			WithDetail("got=" + reportedMonth)
	}
	t, err := time.ParseInLocation("200601", reportedMonth, zone)
	if err != nil {
		return Period{}, errors.Validation("reported month must be YYYYMM").WithCause(err)
	}
	return For(t.Year(), t.Month())
}
