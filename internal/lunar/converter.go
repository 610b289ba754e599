package lunar

import (
	"fmt"
	"time"
)

// Converter converts lunar dates using a Table. It holds no mutable state
// and is safe for concurrent use.
type Converter struct {
	table *Table
	now   func() time.Time
}

// Option configures a Converter.
type Option func(*Converter)

// WithClock sets the clock used to find the current year for Project.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		c.now = now
	}
}

// NewConverter returns a Converter over table.
func NewConverter(table *Table, opts ...Option) *Converter {
	c := &Converter{
		table: table,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Table returns the table the converter reads from.
func (c *Converter) Table() *Table {
	return c.table
}

// Convert returns the Gregorian date of d.
//
// Checks run in order: the year must be in the table (ErrUnsupportedYear),
// a leap month must be that year's leap month (ErrInvalidLeapMonth), the
// month must be 1-12 (ErrInvalidMonth) and the day must fall within the
// month (ErrInvalidDay).
//
// Months are looked up by (ordinal, leap), so in a leap year every ordinary
// month after the leap month starts after the leap copy and never on the
// same day as it.
func (c *Converter) Convert(d LunarDate) (GregorianDate, error) {
	year, ok := c.table.Year(d.Year)
	if !ok {
		first, last := c.table.Range()
		return GregorianDate{}, fmt.Errorf("%w: %d is outside %d-%d", ErrUnsupportedYear, d.Year, first, last)
	}

	if d.IsLeapMonth && year.LeapMonth != d.Month {
		if !year.HasLeapMonth() {
			return GregorianDate{}, fmt.Errorf("%w: %d has no leap month", ErrInvalidLeapMonth, d.Year)
		}
		return GregorianDate{}, fmt.Errorf("%w: leap month of %d is %d, not %d",
			ErrInvalidLeapMonth, d.Year, year.LeapMonth, d.Month)
	}

	month, ok := year.month(d.Month, d.IsLeapMonth)
	if !ok {
		return GregorianDate{}, fmt.Errorf("%w: %d", ErrInvalidMonth, d.Month)
	}

	if d.Day < 1 || d.Day > month.Days {
		return GregorianDate{}, fmt.Errorf("%w: %s has %d days, got day %d",
			ErrInvalidDay, monthName(month), month.Days, d.Day)
	}

	return year.NewYear.AddDays(month.offset + d.Day - 1), nil
}

// Project returns the Gregorian dates of the lunar anniversary month/day in
// every supported year from the current year on, in ascending order. Years
// in which the anniversary does not exist are skipped.
func (c *Converter) Project(month, day int, isLeapMonth bool) []GregorianDate {
	return c.ProjectFrom(c.now().Year(), month, day, isLeapMonth)
}

// ProjectFrom is like Project but starts at fromYear instead of the
// current year.
func (c *Converter) ProjectFrom(fromYear, month, day int, isLeapMonth bool) []GregorianDate {
	first, last := c.table.Range()
	if fromYear < first {
		fromYear = first
	}
	var out []GregorianDate
	for year := fromYear; year <= last; year++ {
		g, err := c.Convert(LunarDate{Year: year, Month: month, Day: day, IsLeapMonth: isLeapMonth})
		if err != nil {
			continue
		}
		out = append(out, g)
	}
	return out
}

func monthName(m Month) string {
	if m.Leap {
		return fmt.Sprintf("leap month %d", m.Ordinal)
	}
	return fmt.Sprintf("month %d", m.Ordinal)
}
