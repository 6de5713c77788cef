package schedgen

import (
	"time"
)

// Calendar is the value-typed exclusion set for one generation run: weekends
// plus holidays computed for every year the range touches. It is built per
// run and threaded explicitly so concurrent runs stay isolated.
type Calendar struct {
	from     time.Time
	to       time.Time
	excluded map[string]bool
}

const dateKeyLayout = "2006-01-02"

func dateKey(t time.Time) string { return t.Format(dateKeyLayout) }

// NewCalendar computes the exclusion set for [from, to].
func NewCalendar(from, to time.Time) Calendar {
	c := Calendar{
		from:     from,
		to:       to,
		excluded: make(map[string]bool),
	}
	for y := from.Year(); y <= to.Year(); y++ {
		for _, h := range holidaysForYear(y, from.Location()) {
			c.excluded[dateKey(h)] = true
		}
	}
	return c
}

// IsOperatingDay reports whether the surgeon operates on the given date.
// Pure: depends only on weekday, holiday membership, and the profile's
// configured operating weekdays.
func (c Calendar) IsOperatingDay(d time.Time, p *Profile) bool {
	wd := d.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if c.excluded[dateKey(d)] {
		return false
	}
	return p.OperatingDays[wd]
}

// OperatingDates enumerates the surgeon's operating dates across the range,
// in chronological order.
func (c Calendar) OperatingDates(p *Profile) []time.Time {
	var dates []time.Time
	for d := c.from; !d.After(c.to); d = d.AddDate(0, 0, 1) {
		if c.IsOperatingDay(d, p) {
			dates = append(dates, d)
		}
	}
	return dates
}

// holidaysForYear computes the observed facility holidays algorithmically:
// New Year's Day, MLK Day, Memorial Day, Independence Day, Labor Day,
// Thanksgiving, and Christmas.
func holidaysForYear(year int, loc *time.Location) []time.Time {
	return []time.Time{
		time.Date(year, time.January, 1, 0, 0, 0, 0, loc),
		nthWeekday(year, time.January, time.Monday, 3, loc),
		lastWeekday(year, time.May, time.Monday, loc),
		time.Date(year, time.July, 4, 0, 0, 0, 0, loc),
		nthWeekday(year, time.September, time.Monday, 1, loc),
		nthWeekday(year, time.November, time.Thursday, 4, loc),
		time.Date(year, time.December, 25, 0, 0, 0, 0, loc),
	}
}

func nthWeekday(year int, month time.Month, wd time.Weekday, n int, loc *time.Location) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+(n-1)*7)
}

func lastWeekday(year int, month time.Month, wd time.Weekday, loc *time.Location) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDate(0, 0, -offset)
}
