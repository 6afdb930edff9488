// Package calendar knows the US equity trading calendar and resolves the
// date windows a screening run covers.
package calendar

import (
	"fmt"
	"time"

	"github.com/guttosm/finfetch/internal/domain/models"
)

// IsTradingDay returns true if d is a NYSE trading day.
// It excludes weekends and full-day exchange holidays.
func IsTradingDay(d time.Time) bool {
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := holidays(d.Year())[models.TruncateDate(d)]
	return !holiday
}

// LastTradingDay returns t if it is a trading day, otherwise the closest
// trading day before it.
func LastTradingDay(t time.Time) time.Time {
	d := models.TruncateDate(t)
	for !IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// TradingDaysBetween counts trading days in [start, end].
func TradingDaysBetween(start, end time.Time) int {
	n := 0
	for d := models.TruncateDate(start); !d.After(models.TruncateDate(end)); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			n++
		}
	}
	return n
}

// Window is an inclusive calendar date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days spanned.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

func (w Window) String() string {
	return w.Start.Format(models.DateLayout) + ".." + w.End.Format(models.DateLayout)
}

// ResolveWindow picks the date range for a run.
//
// Precedence: explicit start (with end or today), then a calendar-day
// lookback of days, then lookbackYears. The end never goes past now and is
// rolled back to the last trading day.
func ResolveWindow(now time.Time, start, end *time.Time, days, lookbackYears int) (Window, error) {
	today := models.TruncateDate(now)

	e := today
	if end != nil {
		e = models.TruncateDate(*end)
		if e.After(today) {
			e = today
		}
	}
	e = LastTradingDay(e)

	var s time.Time
	switch {
	case start != nil:
		s = models.TruncateDate(*start)
	case days > 0:
		s = e.AddDate(0, 0, -days)
	case lookbackYears > 0:
		s = e.AddDate(-lookbackYears, 0, 0)
	default:
		return Window{}, fmt.Errorf("%w: no start, days or lookback given", models.ErrInvalidDateRange)
	}

	if s.After(e) {
		return Window{}, fmt.Errorf("%w: start %s after end %s", models.ErrInvalidDateRange,
			s.Format(models.DateLayout), e.Format(models.DateLayout))
	}
	return Window{Start: s, End: e}, nil
}

func holidays(year int) map[time.Time]struct{} {
	out := make(map[time.Time]struct{}, 12)
	add := func(t time.Time) { out[t] = struct{}{} }

	// Fixed-date holidays move to the nearest weekday when they fall on a weekend.
	add(observed(date(year, time.January, 1)))
	if year >= 2022 {
		add(observed(date(year, time.June, 19))) // Juneteenth
	}
	add(observed(date(year, time.July, 4)))
	add(observed(date(year, time.December, 25)))

	add(nthWeekday(year, time.January, time.Monday, 3))    // Martin Luther King Jr. Day
	add(nthWeekday(year, time.February, time.Monday, 3))   // Presidents' Day
	add(lastWeekday(year, time.May, time.Monday))          // Memorial Day
	add(nthWeekday(year, time.September, time.Monday, 1))  // Labor Day
	add(nthWeekday(year, time.November, time.Thursday, 4)) // Thanksgiving

	add(easterSunday(year).AddDate(0, 0, -2)) // Good Friday
	return out
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		if d.Month() == time.January && d.Day() == 1 {
			return d // NYSE does not close on the prior Friday (Dec 31)
		}
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

func nthWeekday(y int, m time.Month, wd time.Weekday, n int) time.Time {
	d := date(y, m, 1)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, 1)
	}
	return d.AddDate(0, 0, 7*(n-1))
}

func lastWeekday(y int, m time.Month, wd time.Weekday) time.Time {
	d := date(y, m+1, 1).AddDate(0, 0, -1)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// easterSunday returns the date of Easter Sunday for a given year
// (Meeus/Jones/Butcher algorithm).
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return date(year, time.Month(month), day)
}
