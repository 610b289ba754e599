package lunar

import (
	"fmt"
	"time"

	"cloudeng.io/datetime"
)

// DateFormat is the layout used to print and parse Gregorian dates.
const DateFormat = "2006-01-02"

// GregorianDate is a civil date in the Gregorian calendar. It has no time
// zone; arithmetic on it never goes through time.Location.
type GregorianDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// ParseGregorianDate parses a date in YYYY-MM-DD form.
func ParseGregorianDate(s string) (GregorianDate, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return GregorianDate{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// FromTime returns the civil date of t in t's own location.
func FromTime(t time.Time) GregorianDate {
	y, m, d := t.Date()
	return GregorianDate{Year: y, Month: int(m), Day: d}
}

// String returns the date in YYYY-MM-DD form.
func (g GregorianDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", g.Year, g.Month, g.Day)
}

// IsValid reports whether the date exists in the Gregorian calendar.
func (g GregorianDate) IsValid() bool {
	if g.Month < 1 || g.Month > 12 || g.Day < 1 {
		return false
	}
	return g.Day <= int(datetime.DaysInMonth(g.Year, datetime.Month(g.Month)))
}

// Before reports whether g is strictly earlier than o.
func (g GregorianDate) Before(o GregorianDate) bool {
	if g.Year != o.Year {
		return g.Year < o.Year
	}
	if g.Month != o.Month {
		return g.Month < o.Month
	}
	return g.Day < o.Day
}

// AddDays returns the date n days after g, rolling over months and years.
// n must not be negative.
func (g GregorianDate) AddDays(n int) GregorianDate {
	y, m, d := g.Year, g.Month, g.Day
	for n > 0 {
		dim := int(datetime.DaysInMonth(y, datetime.Month(m)))
		if d+n <= dim {
			d += n
			break
		}
		n -= dim - d + 1
		d = 1
		m++
		if m > 12 {
			m = 1
			y++
		}
	}
	return GregorianDate{Year: y, Month: m, Day: d}
}

// DaysUntil returns the number of days from g to o; negative when o is
// earlier.
func (g GregorianDate) DaysUntil(o GregorianDate) int {
	if o.Before(g) {
		return -o.DaysUntil(g)
	}
	days := 0
	for y := g.Year; y < o.Year; y++ {
		days += daysInYear(y)
	}
	return days + dayOfYear(o) - dayOfYear(g)
}

func daysInYear(year int) int {
	if datetime.IsLeap(year) {
		return 366
	}
	return 365
}

func dayOfYear(g GregorianDate) int {
	n := g.Day
	for m := 1; m < g.Month; m++ {
		n += int(datetime.DaysInMonth(g.Year, datetime.Month(m)))
	}
	return n
}
